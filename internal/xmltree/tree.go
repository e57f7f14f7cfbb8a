// Package xmltree decodes XML documents into a generic tree with total,
// nil-safe lookups. Every lookup reports whether it found something instead
// of failing, so callers can walk partially-missing structures.
package xmltree

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Node is one element of the tree.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string // Character data directly inside this element
	Children []*Node

	inner string           // All character data below this element, in document order
	index map[string][]int // child name -> positions in Children
}

// NewNode creates an element node. It is mostly useful for building trees in tests.
func NewNode(name string, attrs map[string]string, text string, children ...*Node) *Node {
	n := &Node{Name: name, Attrs: attrs, Text: text}
	for _, c := range children {
		n.Append(c)
	}
	return n
}

// Append adds a child element, keeping the name index current.
func (n *Node) Append(child *Node) {
	if n == nil || child == nil {
		return
	}
	if n.index == nil {
		n.index = make(map[string][]int)
	}
	n.index[child.Name] = append(n.index[child.Name], len(n.Children))
	n.Children = append(n.Children, child)
}

// Parse decodes an XML document and returns its root element.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity

	var root *Node
	var stack []*Node
	var own, inner []*strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) > 0 {
				stack[len(stack)-1].Append(n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
			own = append(own, &strings.Builder{})
			inner = append(inner, &strings.Builder{})

		case xml.CharData:
			if len(own) > 0 {
				own[len(own)-1].Write(t)
			}
			for _, b := range inner {
				b.Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("decoding XML: unexpected </%s>", t.Name.Local)
			}
			top := stack[len(stack)-1]
			top.Text = own[len(own)-1].String()
			top.inner = inner[len(inner)-1].String()
			stack = stack[:len(stack)-1]
			own = own[:len(own)-1]
			inner = inner[:len(inner)-1]
		}
	}

	if root == nil {
		return nil, fmt.Errorf("decoding XML: no root element")
	}
	return root, nil
}

// Child returns the first direct child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	idx, ok := n.index[name]
	if !ok || len(idx) == 0 {
		return nil, false
	}
	return n.Children[idx[0]], true
}

// ChildrenNamed returns all direct children with the given name, in order.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	idx := n.index[name]
	out := make([]*Node, len(idx))
	for i, pos := range idx {
		out[i] = n.Children[pos]
	}
	return out
}

// Path follows a chain of direct children.
func (n *Node) Path(names ...string) (*Node, bool) {
	cur := n
	for _, name := range names {
		next, ok := cur.Child(name)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Find returns the first descendant with the given name in document order.
func (n *Node) Find(name string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
		if found, ok := c.Find(name); ok {
			return found, true
		}
	}
	return nil, false
}

// FindAll returns every descendant with the given name in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c.Name == name {
			out = append(out, c)
		}
	})
	return out
}

// FindAllWithAttr returns every descendant with the given name whose
// attribute equals value.
func (n *Node) FindAllWithAttr(name, attr, value string) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c.Name != name {
			return
		}
		if v, ok := c.Attr(attr); ok && v == value {
			out = append(out, c)
		}
	})
	return out
}

// FindWithAttr returns the first descendant with the given name and attribute value.
func (n *Node) FindWithAttr(name, attr, value string) (*Node, bool) {
	all := n.FindAllWithAttr(name, attr, value)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// Attr returns an attribute value.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// Value returns the trimmed text of the element including nested inline
// markup (e.g. <i> inside a title). Whitespace runs collapse to one space.
func (n *Node) Value() (string, bool) {
	if n == nil {
		return "", false
	}
	raw := n.inner
	if raw == "" {
		var b strings.Builder
		n.collectText(&b)
		raw = b.String()
	}
	s := strings.Join(strings.Fields(raw), " ")
	return s, s != ""
}

// ChildValue returns the value of the first direct child with the given name.
func (n *Node) ChildValue(name string) (string, bool) {
	c, ok := n.Child(name)
	if !ok {
		return "", false
	}
	return c.Value()
}

// collectText rebuilds the text of a node that was built in code rather
// than parsed: own text first, then each child's text.
func (n *Node) collectText(b *strings.Builder) {
	b.WriteString(n.Text)
	for _, c := range n.Children {
		b.WriteString(" ")
		c.collectText(b)
	}
}

func (n *Node) walk(fn func(*Node)) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		fn(c)
		c.walk(fn)
	}
}

// Articles returns every PubmedArticle and PubmedBookArticle element below
// root in document order, or root itself when it is an article.
func Articles(root *Node) []*Node {
	if root == nil {
		return nil
	}
	if isArticle(root) {
		return []*Node{root}
	}
	var out []*Node
	root.walk(func(c *Node) {
		if isArticle(c) {
			out = append(out, c)
		}
	})
	return out
}

func isArticle(n *Node) bool {
	return n.Name == "PubmedArticle" || n.Name == "PubmedBookArticle"
}
