// Package xmltree is a small read-only XML tree. Every lookup that may miss
// returns an ok flag, and markup-preserving accessors slice the original
// source so embedded formatting survives untouched.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
)

type Node struct {
	Name  string // local name; empty for the document node
	Attrs []xml.Attr

	Parent   *Node
	Children []*Node

	items []item
	src   []byte

	start, innerStart, innerEnd, end int
}

// item keeps character data and child elements in document order.
type item struct {
	text  string
	child *Node
}

var encodingDecl = regexp.MustCompile(`^\s*<\?xml[^>]*encoding=["']([^"']+)["']`)

// Parse reads a whole document. The returned node is the document itself;
// its children are the top-level elements.
func Parse(r io.Reader) (*Node, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xml: %w", err)
	}
	return ParseBytes(b)
}

func ParseBytes(b []byte) (*Node, error) {
	src, err := toUTF8(b)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(src))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	// src is already UTF-8; the declaration label is informational only.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	doc := &Node{src: src, innerEnd: len(src), end: len(src)}
	cur := doc
	for {
		prev := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		pos := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{
				Name:       t.Name.Local,
				Attrs:      t.Attr,
				Parent:     cur,
				src:        src,
				innerStart: pos,
			}
			n.start = bytes.LastIndexByte(src[:pos], '<')
			if n.start < 0 {
				n.start = prev
			}
			cur.Children = append(cur.Children, n)
			cur.items = append(cur.items, item{child: n})
			cur = n
		case xml.EndElement:
			if cur == doc {
				return nil, fmt.Errorf("parse xml: unexpected end element </%s>", t.Name.Local)
			}
			if bytes.HasPrefix(src[prev:pos], []byte("</")) {
				cur.innerEnd, cur.end = prev, pos
			} else {
				// synthetic end: self-closing, auto-closed or recovered mismatch
				cur.innerEnd, cur.end = prev, prev
			}
			cur = cur.Parent
		case xml.CharData:
			cur.items = append(cur.items, item{text: string(t)})
		}
	}
	if cur != doc {
		return nil, fmt.Errorf("parse xml: unclosed element <%s>", cur.Name)
	}
	return doc, nil
}

func toUTF8(b []byte) ([]byte, error) {
	m := encodingDecl.FindSubmatch(b)
	if m == nil {
		return b, nil
	}
	label := strings.ToLower(string(m[1]))
	if label == "utf-8" || label == "utf8" {
		return b, nil
	}
	r, err := charset.NewReaderLabel(label, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("xml encoding %q: %w", label, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("xml encoding %q: %w", label, err)
	}
	return out, nil
}
