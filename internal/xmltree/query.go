package xmltree

import (
	"slices"
	"strings"
)

// Find returns the first descendant named name in document order.
func (n *Node) Find(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
		if d, ok := c.Find(name); ok {
			return d, true
		}
	}
	return nil, false
}

// FindAll returns every descendant named name in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, c.FindAll(name)...)
	}
	return out
}

// Has reports whether any descendant is named name.
func (n *Node) Has(name string) bool {
	_, ok := n.Find(name)
	return ok
}

// Child returns the first direct child named name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or def when it is missing.
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// Text concatenates all character data below n, CDATA included.
func (n *Node) Text() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	for _, it := range n.items {
		if it.child != nil {
			it.child.writeText(b)
			continue
		}
		b.WriteString(it.text)
	}
}

// InnerXML is the source markup between n's start and end tags.
func (n *Node) InnerXML() string {
	return string(n.src[n.innerStart:n.innerEnd])
}

func (n *Node) OuterXML() string {
	return string(n.src[n.start:n.end])
}

// InnerXMLWithout is InnerXML with the markup of the given descendants cut
// out. Nodes outside n are ignored.
func (n *Node) InnerXMLWithout(skip ...*Node) string {
	var b strings.Builder
	pos := n.innerStart
	for _, s := range sortedSpans(n, skip) {
		if s.start < pos {
			continue // nested inside an already skipped node
		}
		b.Write(n.src[pos:s.start])
		pos = s.end
	}
	b.Write(n.src[pos:n.innerEnd])
	return b.String()
}

type span struct{ start, end int }

func sortedSpans(n *Node, skip []*Node) []span {
	var out []span
	for _, s := range skip {
		if s == nil || s.start < n.innerStart || s.end > n.innerEnd {
			continue
		}
		out = append(out, span{s.start, s.end})
	}
	slices.SortFunc(out, func(a, b span) int { return a.start - b.start })
	return out
}
