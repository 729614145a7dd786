// Package dom models the host document as an in-memory tree with a
// subscribable mutation feed. Extraction and watching depend only on
// this capability surface, never on a concrete browser API.
package dom

// NodeType distinguishes element nodes from text nodes.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Style carries the computed style properties relevant to visibility.
type Style struct {
	Display    string
	Visibility string
}

// Box is the rendered geometry of an element.
type Box struct {
	Width  int
	Height int
}

// Frame is an embedded sub-document, reachable only when same-origin.
type Frame struct {
	URL        string
	SameOrigin bool
	Document   *Document
}

// Node is a single node in the document tree. Element nodes may carry
// attributes, an encapsulated shadow subtree, and an embedded frame.
type Node struct {
	Type     NodeType
	Tag      string
	Text     string
	Attrs    map[string]string
	Style    Style
	Box      Box
	Children []*Node

	// ShadowRoot is an encapsulated subtree attached to this element.
	ShadowRoot *Node

	// Frame is set on frame-like elements (iframe, object, embed).
	Frame *Frame

	parent *Node
	doc    *Document
}

// NewElement creates an element node with the given tag.
func NewElement(tag string) *Node {
	return &Node{
		Type:  ElementNode,
		Tag:   tag,
		Attrs: make(map[string]string),
		Box:   Box{Width: 100, Height: 20},
	}
}

// NewText creates a text node.
func NewText(text string) *Node {
	return &Node{Type: TextNode, Text: text}
}

// Parent returns the parent node, nil for roots.
func (n *Node) Parent() *Node {
	return n.parent
}

// Attr returns the attribute value, empty when absent.
func (n *Node) Attr(name string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// WithAttr sets an attribute and returns the node, for tree building.
func (n *Node) WithAttr(name, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
	return n
}

// WithStyle sets display/visibility and returns the node.
func (n *Node) WithStyle(display, visibility string) *Node {
	n.Style = Style{Display: display, Visibility: visibility}
	return n
}

// WithBox sets rendered geometry and returns the node.
func (n *Node) WithBox(w, h int) *Node {
	n.Box = Box{Width: w, Height: h}
	return n
}

// Append attaches children without emitting mutations. Used while
// building a tree before it is observed.
func (n *Node) Append(children ...*Node) *Node {
	for _, child := range children {
		child.parent = n
		child.adopt(n.doc)
		n.Children = append(n.Children, child)
	}
	return n
}

// DirectText concatenates the text of direct child text nodes only,
// never descendant text.
func (n *Node) DirectText() string {
	if n.Type == TextNode {
		return n.Text
	}
	out := ""
	for _, child := range n.Children {
		if child.Type == TextNode {
			out += child.Text
		}
	}
	return out
}

// SetDirectText replaces the node's direct text content. The first
// direct text child is rewritten; remaining text children are cleared.
// A text child is created when none exists.
func (n *Node) SetDirectText(text string) {
	if n.Type == TextNode {
		n.Text = text
		return
	}
	replaced := false
	for _, child := range n.Children {
		if child.Type != TextNode {
			continue
		}
		if !replaced {
			child.Text = text
			replaced = true
			continue
		}
		child.Text = ""
	}
	if !replaced {
		n.Append(NewText(text))
	}
}

// Visible reports whether the node and all its ancestors are rendered:
// non-zero box and not hidden through display or visibility.
func (n *Node) Visible() bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Type != ElementNode {
			continue
		}
		if cur.Style.Display == "none" || cur.Style.Visibility == "hidden" {
			return false
		}
		if cur.Box.Width == 0 || cur.Box.Height == 0 {
			return false
		}
	}
	return true
}

// HasAncestorTag reports whether any ancestor (or the node itself) has
// one of the given tags.
func (n *Node) HasAncestorTag(tags map[string]bool) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Type == ElementNode && tags[cur.Tag] {
			return true
		}
	}
	return false
}

// adopt propagates document ownership down a subtree.
func (n *Node) adopt(doc *Document) {
	n.doc = doc
	for _, child := range n.Children {
		child.adopt(doc)
	}
	if n.ShadowRoot != nil {
		n.ShadowRoot.adopt(doc)
	}
}
