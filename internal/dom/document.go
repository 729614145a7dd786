package dom

// Document is one page-like tree plus its mutation feed.
type Document struct {
	URL  string
	Root *Node
	feed *Feed
}

// NewDocument wraps a built tree into an observable document.
func NewDocument(url string, root *Node) *Document {
	doc := &Document{
		URL:  url,
		Root: root,
		feed: NewFeed(),
	}
	if root != nil {
		root.adopt(doc)
	}
	return doc
}

// Feed returns the document's mutation feed.
func (d *Document) Feed() *Feed {
	return d.feed
}

// AppendChild attaches a subtree to parent and announces the insertion.
func (d *Document) AppendChild(parent, child *Node) {
	parent.Append(child)
	d.feed.Publish([]Mutation{{Type: MutationChildInserted, Target: child}})
}

// SetText rewrites the direct text of a node and announces the change.
func (d *Document) SetText(node *Node, text string) {
	node.SetDirectText(text)
	d.feed.Publish([]Mutation{{Type: MutationTextChanged, Target: node}})
}

// SetAttr rewrites an attribute and announces the change as a text
// mutation, since attribute text (placeholder, label) is translatable
// content.
func (d *Document) SetAttr(node *Node, name, value string) {
	node.WithAttr(name, value)
	d.feed.Publish([]Mutation{{Type: MutationTextChanged, Target: node}})
}

// Walk visits every node in the tree depth-first, including shadow
// subtrees. The visitor returning false prunes descent into that
// node's children.
func (d *Document) Walk(fn func(*Node) bool) {
	walk(d.Root, fn)
}

func walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		walk(child, fn)
	}
	if n.ShadowRoot != nil {
		walk(n.ShadowRoot, fn)
	}
}
