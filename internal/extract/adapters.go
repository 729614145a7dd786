package extract

import "github.com/pageglot/pageglot/internal/dom"

// Adapter is the paired read/write seam for one structural kind.
// Adding a new kind means registering one more pair here; extraction
// logic stays untouched. Writes change only the displayed string,
// never the element's role.
type Adapter struct {
	Read  func(n *dom.Node) string
	Write func(n *dom.Node, text string)
}

func attrAdapter(name string) Adapter {
	return Adapter{
		Read:  func(n *dom.Node) string { return n.Attr(name) },
		Write: func(n *dom.Node, text string) { n.WithAttr(name, text) },
	}
}

var directTextAdapter = Adapter{
	Read:  func(n *dom.Node) string { return n.DirectText() },
	Write: func(n *dom.Node, text string) { n.SetDirectText(text) },
}

var adapters = map[Kind]Adapter{
	KindPlainText:    directTextAdapter,
	KindSVGText:      directTextAdapter,
	KindEmbeddedText: directTextAdapter,
	KindPlaceholder:  attrAdapter("placeholder"),
	KindFormValue:    attrAdapter("value"),
	// Group labels appear as a label attribute (optgroup, option) or
	// as direct text (legend).
	KindGroupLabel: {
		Read: func(n *dom.Node) string {
			if v := n.Attr("label"); v != "" {
				return v
			}
			return n.DirectText()
		},
		Write: func(n *dom.Node, text string) {
			if n.Attr("label") != "" {
				n.WithAttr("label", text)
				return
			}
			n.SetDirectText(text)
		},
	},
	KindAccessibleLabel: {
		Read: func(n *dom.Node) string {
			if v := n.Attr("aria-label"); v != "" {
				return v
			}
			return n.Attr("title")
		},
		Write: func(n *dom.Node, text string) {
			if n.Attr("aria-label") != "" {
				n.WithAttr("aria-label", text)
				return
			}
			n.WithAttr("title", text)
		},
	},
}

// ReadText extracts the text for a kind through its read adapter.
func ReadText(kind Kind, n *dom.Node) string {
	adapter, ok := adapters[kind]
	if !ok {
		return ""
	}
	return adapter.Read(n)
}

// WriteText replaces the text for a kind through its write adapter.
func WriteText(kind Kind, n *dom.Node, text string) {
	adapter, ok := adapters[kind]
	if !ok {
		return
	}
	adapter.Write(n, text)
}
