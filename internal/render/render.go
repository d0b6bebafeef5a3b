// Package render exports a base snapshot as a read-only HTML page.
package render

import (
	"io"
	"maps"
	"slices"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/casework/deltatree"
)

// Snapshot writes s as an HTML document. Documents follow the snapshot's tree,
// groups their ordinals, fields their ids. Tree ids without a document are skipped.
func Snapshot(w io.Writer, s *deltatree.SaveFile) error {
	return html.Render(w, Node(s))
}

// Node builds the page for s as a node tree.
func Node(s *deltatree.SaveFile) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	head := element(atom.Head)
	head.AppendChild(withText(element(atom.Title), s.SaveFileName))
	root.AppendChild(head)

	body := element(atom.Body)
	article := element(atom.Article, attr("data-participant", s.ParticipantID))
	article.AppendChild(withText(element(atom.H1), s.SaveFileName))
	if len(s.Header.Fields) > 0 {
		article.AppendChild(definitions(s.Header.Fields, attr("class", "header")))
	}
	for _, item := range s.DocumentTree {
		if section := documentSection(s, item, 2); section != nil {
			article.AppendChild(section)
		}
	}
	body.AppendChild(article)
	root.AppendChild(body)
	doc.AppendChild(root)
	return doc
}

func documentSection(s *deltatree.SaveFile, item deltatree.TreeItem, depth int) *html.Node {
	d := s.Documents[item.ID]
	if d == nil {
		return nil
	}
	section := element(atom.Section, attr("id", d.ID), attr("data-template", d.DocumentID))
	section.AppendChild(withText(element(heading(depth)), d.Name))
	if len(d.Values) > 0 {
		section.AppendChild(fieldList(d.Values))
	}
	for _, g := range deltatree.SortedGroups(d.Groups) {
		section.AppendChild(groupFieldset(g))
	}
	for _, child := range item.Children {
		if sub := documentSection(s, child, depth+1); sub != nil {
			section.AppendChild(sub)
		}
	}
	return section
}

func groupFieldset(g *deltatree.DocumentGroup) *html.Node {
	attrs := []html.Attribute{attr("id", g.ID), attr("data-template", g.GroupID)}
	if g.Ordinal != nil {
		attrs = append(attrs, attr("data-ordinal", strconv.Itoa(*g.Ordinal)))
	}
	fs := element(atom.Fieldset, attrs...)
	fs.AppendChild(withText(element(atom.Legend), g.GroupID))
	if len(g.Fields) > 0 {
		fs.AppendChild(fieldList(g.Fields))
	}
	for _, child := range deltatree.SortedGroups(g.Children) {
		fs.AppendChild(groupFieldset(child))
	}
	return fs
}

func fieldList(fields map[string]*deltatree.DocumentField) *html.Node {
	dl := element(atom.Dl)
	for _, id := range slices.Sorted(maps.Keys(fields)) {
		f := fields[id]
		dl.AppendChild(withText(element(atom.Dt), id))
		dd := withText(element(atom.Dd), f.Value)
		if f.UseDisplay != 0 {
			dd.Attr = append(dd.Attr, attr("data-display", strconv.Itoa(f.UseDisplay)))
		}
		dl.AppendChild(dd)
	}
	return dl
}

func definitions(values map[string]string, attrs ...html.Attribute) *html.Node {
	dl := element(atom.Dl, attrs...)
	for _, k := range slices.Sorted(maps.Keys(values)) {
		dl.AppendChild(withText(element(atom.Dt), k))
		dl.AppendChild(withText(element(atom.Dd), values[k]))
	}
	return dl
}

// heading caps nesting at h6.
func heading(depth int) atom.Atom {
	levels := []atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}
	return levels[min(depth, len(levels))-1]
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}
