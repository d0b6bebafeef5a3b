package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/casework/deltatree"
)

func sample() *deltatree.SaveFile {
	zero, one := 0, 1
	return &deltatree.SaveFile{
		SaveFileTimestamp: time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC),
		SaveFileName:      "Alex <Doe>",
		ParticipantID:     "p-1",
		Header:            deltatree.Header{Fields: map[string]string{"fullname": "Alex Doe"}},
		Documents: map[string]*deltatree.Document{
			"d1": {
				ID: "d1", DocumentID: "intake", Name: "Intake",
				Values: map[string]*deltatree.DocumentField{
					"b": {ID: "b", Value: "second"},
					"a": {ID: "a", Value: "first", UseDisplay: 2},
				},
				Groups: map[string]*deltatree.DocumentGroup{
					"g2": {ID: "g2", GroupID: "phone", Ordinal: &one},
					"g1": {ID: "g1", GroupID: "phone", Ordinal: &zero,
						Children: map[string]*deltatree.DocumentGroup{
							"g1a": {ID: "g1a", GroupID: "ext", Ordinal: &zero},
						}},
				},
			},
			"d2": {ID: "d2", DocumentID: "note", Name: "Note"},
		},
		DocumentTree: []deltatree.TreeItem{
			{ID: "d1", Children: []deltatree.TreeItem{{ID: "d2"}}},
			{ID: "ghost"},
		},
	}
}

// ids collects id attributes in document order.
func ids(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for _, a := range n.Attr {
			if a.Key == "id" {
				out = append(out, a.Val)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func TestSnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Snapshot(&buf, sample()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Alex &lt;Doe&gt;</title>")
	assert.Contains(t, out, `<dd data-display="2">first</dd>`)
	assert.Less(t, strings.Index(out, "<dt>a</dt>"), strings.Index(out, "<dt>b</dt>"))
	assert.Contains(t, out, `<h3>Note</h3>`)
	assert.NotContains(t, out, "ghost")

	parsed, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "g1", "g1a", "g2", "d2"}, ids(parsed))
}

func TestHeading(t *testing.T) {
	assert.Equal(t, "h2", heading(2).String())
	assert.Equal(t, "h6", heading(9).String())
}
