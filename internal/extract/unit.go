// Package extract classifies the translatable text of a document into
// text units, each bound to a node and a structural kind with a paired
// read/write adapter.
package extract

import (
	"sync"

	"github.com/pageglot/pageglot/internal/dom"
)

// Kind is the structural classification of a text unit. The kind
// decides which adapter pair reads and rewrites the text.
type Kind string

const (
	KindPlainText       Kind = "plain_text"
	KindPlaceholder     Kind = "placeholder"
	KindFormValue       Kind = "form_value"
	KindAccessibleLabel Kind = "accessible_label"
	KindGroupLabel      Kind = "group_label"
	KindSVGText         Kind = "svg_text"
	KindEmbeddedText    Kind = "embedded_text"
)

// TextUnit is one classified, translatable piece of text bound to a
// document location. OriginalText is immutable once captured until the
// unit is explicitly restored.
type TextUnit struct {
	Node         *dom.Node
	Kind         Kind
	OriginalText string
	Visible      bool
	Translated   bool

	// lastWritten is the translation last applied through the write
	// adapter, used to tell our own replacement mutations apart from
	// genuine content changes.
	lastWritten string
}

// ApplyTranslation rewrites the unit's text through its kind's write
// adapter and tags the unit as translated.
func (u *TextUnit) ApplyTranslation(text string) {
	WriteText(u.Kind, u.Node, text)
	u.lastWritten = text
	u.Translated = true
}

// Restore rewrites the captured original text and clears the
// translated tag. Restoring an already-restored unit is a no-op with
// respect to content.
func (u *TextUnit) Restore() {
	WriteText(u.Kind, u.Node, u.OriginalText)
	u.lastWritten = ""
	u.Translated = false
}

// WrittenText returns the translation last applied to the unit, empty
// when the unit carries its original text.
func (u *TextUnit) WrittenText() string {
	return u.lastWritten
}

type unitKey struct {
	node *dom.Node
	kind Kind
}

// Registry is the side-table mapping node identity to captured units.
// Per-node metadata lives here instead of on the document's own nodes.
type Registry struct {
	mu    sync.Mutex
	units map[unitKey]*TextUnit
}

func NewRegistry() *Registry {
	return &Registry{units: make(map[unitKey]*TextUnit)}
}

// Lookup returns the captured unit for a node and kind.
func (r *Registry) Lookup(node *dom.Node, kind Kind) (*TextUnit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	unit, ok := r.units[unitKey{node: node, kind: kind}]
	return unit, ok
}

// capture records a unit unless the same node and kind were already
// captured with the same text. It returns the unit and whether it is
// newly discovered content.
func (r *Registry) capture(node *dom.Node, kind Kind, text string, visible bool) (*TextUnit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := unitKey{node: node, kind: kind}
	if existing, ok := r.units[key]; ok {
		if existing.OriginalText == text || existing.lastWritten == text {
			return existing, false
		}
		// The content genuinely changed since capture; re-capture.
		existing.OriginalText = text
		existing.lastWritten = ""
		existing.Translated = false
		existing.Visible = visible
		return existing, true
	}

	unit := &TextUnit{
		Node:         node,
		Kind:         kind,
		OriginalText: text,
		Visible:      visible,
	}
	r.units[key] = unit
	return unit, true
}

// Units returns a snapshot of all captured units.
func (r *Registry) Units() []*TextUnit {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]*TextUnit, 0, len(r.units))
	for _, unit := range r.units {
		ret = append(ret, unit)
	}
	return ret
}

// RestoreAll rewrites every translated unit back to its captured
// original text. Restoring twice in a row leaves the same content as
// restoring once.
func (r *Registry) RestoreAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, unit := range r.units {
		if unit.Translated {
			unit.Restore()
		}
	}
}

// Clear drops all captured bookkeeping. Used when the document has
// been replaced by navigation.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = make(map[unitKey]*TextUnit)
}
