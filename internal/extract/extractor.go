package extract

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pageglot/pageglot/internal/dom"
	"github.com/pageglot/pageglot/pkg/log"
)

// minTextLength is the minimum direct text length, in runes, for a
// node to yield a unit.
const minTextLength = 3

// excludedTags are subtrees that never contain user-facing prose.
var excludedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"code":     true,
	"pre":      true,
	"kbd":      true,
	"samp":     true,
	"template": true,
}

// graphicalTags render pixel content that cannot be translated in
// place. They are reported once per page as an advisory.
var graphicalTags = map[string]bool{
	"canvas": true,
	"map":    true,
}

var frameTags = map[string]bool{
	"iframe": true,
	"object": true,
	"embed":  true,
}

var buttonInputTypes = map[string]bool{
	"button": true,
	"submit": true,
	"reset":  true,
}

// Advisory is a once-per-page report about content that was skipped
// rather than translated.
type Advisory struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Tag    string `json:"tag"`
	URL    string `json:"url,omitempty"`
}

const (
	AdvisoryCrossOriginFrame = "cross_origin_frame"
	AdvisoryGraphicalContent = "graphical_content"
)

// Extractor scans a document tree and produces deduplicated, classified
// text units. Deduplication and re-capture bookkeeping live in the
// registry side-table, so scoped rescans of added nodes are idempotent.
type Extractor struct {
	registry *Registry

	// advMu guards the advisory state: the watcher goroutine reports
	// advisories while snapshot readers copy them out.
	advMu      sync.Mutex
	advisories []Advisory
	advised    map[*dom.Node]bool
}

func NewExtractor(registry *Registry) *Extractor {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Extractor{
		registry: registry,
		advised:  make(map[*dom.Node]bool),
	}
}

// Registry exposes the extractor's side-table.
func (e *Extractor) Registry() *Registry {
	return e.registry
}

// Advisories returns the advisories reported so far for this page.
func (e *Extractor) Advisories() []Advisory {
	e.advMu.Lock()
	defer e.advMu.Unlock()
	ret := make([]Advisory, len(e.advisories))
	copy(ret, e.advisories)
	return ret
}

// Reset drops unit bookkeeping and advisories. Called when the
// document has been replaced by navigation.
func (e *Extractor) Reset() {
	e.registry.Clear()

	e.advMu.Lock()
	defer e.advMu.Unlock()
	e.advisories = nil
	e.advised = make(map[*dom.Node]bool)
}

// ExtractDocument scans the whole tree and returns the newly
// discovered units.
func (e *Extractor) ExtractDocument(doc *dom.Document) []*TextUnit {
	if doc == nil || doc.Root == nil {
		return nil
	}
	return e.ExtractNode(doc.Root)
}

// ExtractNode scans one subtree only. Used by the change watcher to
// re-extract added nodes without walking the whole document.
func (e *Extractor) ExtractNode(root *dom.Node) []*TextUnit {
	if root == nil {
		return nil
	}
	// A node inserted under an excluded container yields nothing.
	if root.HasAncestorTag(excludedTags) {
		return nil
	}
	return e.scan(root, false)
}

func (e *Extractor) scan(n *dom.Node, inFrame bool) []*TextUnit {
	if n == nil || n.Type != dom.ElementNode {
		return nil
	}
	if excludedTags[n.Tag] {
		return nil
	}

	if graphicalTags[n.Tag] {
		e.advise(n, Advisory{
			ID:     uuid.NewString(),
			Reason: AdvisoryGraphicalContent,
			Tag:    n.Tag,
		})
		return nil
	}

	var units []*TextUnit

	if frameTags[n.Tag] && n.Frame != nil {
		units = append(units, e.scanFrame(n)...)
	} else {
		units = append(units, e.classify(n, inFrame)...)

		for _, child := range n.Children {
			units = append(units, e.scan(child, inFrame)...)
		}
		if n.ShadowRoot != nil {
			// Encapsulated fragments follow the same rules as light
			// tree content.
			units = append(units, e.scan(n.ShadowRoot, inFrame)...)
		}
	}

	return units
}

func (e *Extractor) scanFrame(n *dom.Node) []*TextUnit {
	if !n.Frame.SameOrigin {
		e.advise(n, Advisory{
			ID:     uuid.NewString(),
			Reason: AdvisoryCrossOriginFrame,
			Tag:    n.Tag,
			URL:    n.Frame.URL,
		})
		return nil
	}
	if n.Frame.Document == nil || n.Frame.Document.Root == nil {
		return nil
	}
	return e.scan(n.Frame.Document.Root, true)
}

// classify captures every unit the node yields. A single node can
// yield several kinds (a button with a value and a title, say).
func (e *Extractor) classify(n *dom.Node, inFrame bool) []*TextUnit {
	visible := n.Visible()
	if !visible {
		return nil
	}

	var units []*TextUnit
	add := func(kind Kind, text string) {
		if !acceptText(text) {
			return
		}
		if unit, fresh := e.registry.capture(n, kind, strings.TrimSpace(text), visible); fresh {
			units = append(units, unit)
		}
	}

	// Direct text of the element itself.
	if text := n.DirectText(); strings.TrimSpace(text) != "" {
		switch {
		case n.Tag == "legend":
			add(KindGroupLabel, ReadText(KindGroupLabel, n))
		case n.HasAncestorTag(map[string]bool{"svg": true}):
			add(KindSVGText, text)
		case inFrame:
			add(KindEmbeddedText, text)
		default:
			add(KindPlainText, text)
		}
	}

	// Attribute-carried text.
	if v := n.Attr("placeholder"); v != "" {
		add(KindPlaceholder, v)
	}
	if n.Tag == "input" && buttonInputTypes[n.Attr("type")] {
		add(KindFormValue, n.Attr("value"))
	}
	if n.Attr("aria-label") != "" || n.Attr("title") != "" {
		add(KindAccessibleLabel, ReadText(KindAccessibleLabel, n))
	}
	if (n.Tag == "optgroup" || n.Tag == "option") && n.Attr("label") != "" {
		add(KindGroupLabel, n.Attr("label"))
	}

	return units
}

func (e *Extractor) advise(n *dom.Node, adv Advisory) {
	e.advMu.Lock()
	defer e.advMu.Unlock()
	if e.advised[n] {
		return
	}
	e.advised[n] = true
	e.advisories = append(e.advisories, adv)
	log.Debug("advisory %s on <%s> %s", adv.Reason, adv.Tag, adv.URL)
}

func acceptText(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minTextLength
}
