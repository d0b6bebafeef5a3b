package deltatree

import "maps"

// Clone returns a deep copy of the snapshot.
func (s *SaveFile) Clone() *SaveFile {
	if s == nil {
		return nil
	}
	out := *s
	out.Header = s.Header.Clone()
	out.Documents = cloneMap(s.Documents, (*Document).Clone)
	out.DocumentTree = CloneTree(s.DocumentTree)
	return &out
}

// Clone returns a deep copy of the delta.
func (d *DeltaFile) Clone() *DeltaFile {
	if d == nil {
		return nil
	}
	out := *d
	out.Documents = cloneMap(d.Documents, (*DocumentDelta).Clone)
	out.DocumentTree = CloneTree(d.DocumentTree)
	return &out
}

func (h Header) Clone() Header {
	h.Fields = maps.Clone(h.Fields)
	return h
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Ordinal = cloneInt(d.Ordinal)
	out.Values = cloneMap(d.Values, (*DocumentField).Clone)
	out.Groups = cloneMap(d.Groups, (*DocumentGroup).Clone)
	return &out
}

func (g *DocumentGroup) Clone() *DocumentGroup {
	if g == nil {
		return nil
	}
	out := *g
	out.Ordinal = cloneInt(g.Ordinal)
	out.Children = cloneMap(g.Children, (*DocumentGroup).Clone)
	out.Fields = cloneMap(g.Fields, (*DocumentField).Clone)
	return &out
}

func (f *DocumentField) Clone() *DocumentField {
	if f == nil {
		return nil
	}
	out := *f
	return &out
}

func (d *DocumentDelta) Clone() *DocumentDelta {
	if d == nil {
		return nil
	}
	out := *d
	out.Ordinal = cloneInt(d.Ordinal)
	out.Groups = cloneMap(d.Groups, (*GroupDelta).Clone)
	out.Values = cloneMap(d.Values, (*ValueDelta).Clone)
	return &out
}

func (g *GroupDelta) Clone() *GroupDelta {
	if g == nil {
		return nil
	}
	out := *g
	out.Ordinal = cloneInt(g.Ordinal)
	out.Children = cloneMap(g.Children, (*GroupDelta).Clone)
	out.Fields = cloneMap(g.Fields, (*ValueDelta).Clone)
	return &out
}

func (v *ValueDelta) Clone() *ValueDelta {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneMap[V any](m map[string]V, clone func(V) V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
