package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageglot/pageglot/internal/dom"
)

func TestExtractDocument_SkipsHiddenAndShortText(t *testing.T) {
	visible := dom.NewElement("p").Append(dom.NewText("Hello world"))
	hidden := dom.NewElement("p").WithStyle("none", "").Append(dom.NewText("Secret"))
	short := dom.NewElement("p").Append(dom.NewText("ok"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(visible, hidden, short))

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)

	require.Len(t, units, 1)
	assert.Equal(t, "Hello world", units[0].OriginalText)
	assert.Equal(t, KindPlainText, units[0].Kind)
	assert.True(t, units[0].Visible)
}

func TestExtractDocument_Kinds(t *testing.T) {
	body := dom.NewElement("body").Append(
		dom.NewElement("input").WithAttr("placeholder", "Search here"),
		dom.NewElement("input").WithAttr("type", "submit").WithAttr("value", "Send form"),
		dom.NewElement("button").WithAttr("aria-label", "Close dialog"),
		dom.NewElement("optgroup").WithAttr("label", "Fruit options"),
		dom.NewElement("legend").Append(dom.NewText("Shipping address")),
		dom.NewElement("svg").Append(dom.NewElement("text").Append(dom.NewText("Chart title"))),
	)
	doc := dom.NewDocument("https://example.test", body)

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)

	byKind := make(map[Kind]string)
	for _, u := range units {
		byKind[u.Kind] = u.OriginalText
	}
	assert.Equal(t, "Search here", byKind[KindPlaceholder])
	assert.Equal(t, "Send form", byKind[KindFormValue])
	assert.Equal(t, "Close dialog", byKind[KindAccessibleLabel])
	assert.Equal(t, "Fruit options", byKind[KindGroupLabel])
	assert.Equal(t, "Chart title", byKind[KindSVGText])
	require.Contains(t, byKind, KindGroupLabel)
}

func TestExtractDocument_LegendYieldsGroupLabel(t *testing.T) {
	legend := dom.NewElement("legend").Append(dom.NewText("Billing details"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(legend))

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)

	require.Len(t, units, 1)
	assert.Equal(t, KindGroupLabel, units[0].Kind)
	assert.Equal(t, "Billing details", units[0].OriginalText)
}

func TestExtractDocument_ExcludedContainers(t *testing.T) {
	body := dom.NewElement("body").Append(
		dom.NewElement("script").Append(dom.NewText("var greeting = 'Hello world';")),
		dom.NewElement("pre").Append(
			dom.NewElement("span").Append(dom.NewText("preformatted sample")),
		),
		dom.NewElement("p").Append(dom.NewText("Regular prose")),
	)
	doc := dom.NewDocument("https://example.test", body)

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)

	require.Len(t, units, 1)
	assert.Equal(t, "Regular prose", units[0].OriginalText)
}

func TestExtractNode_InsertedUnderExcludedAncestor(t *testing.T) {
	inserted := dom.NewElement("span").Append(dom.NewText("runtime snippet"))
	pre := dom.NewElement("pre").Append(inserted)
	dom.NewDocument("https://example.test", dom.NewElement("body").Append(pre))

	ex := NewExtractor(nil)
	assert.Empty(t, ex.ExtractNode(inserted))
}

func TestExtractDocument_ShadowRoot(t *testing.T) {
	host := dom.NewElement("my-widget")
	host.ShadowRoot = dom.NewElement("div").Append(
		dom.NewElement("p").Append(dom.NewText("Shadow content")),
	)
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(host))

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)

	require.Len(t, units, 1)
	assert.Equal(t, "Shadow content", units[0].OriginalText)
}

func TestExtractDocument_SameOriginFrame(t *testing.T) {
	inner := dom.NewDocument("https://example.test/frame",
		dom.NewElement("body").Append(dom.NewElement("p").Append(dom.NewText("Framed story"))))
	frame := dom.NewElement("iframe")
	frame.Frame = &dom.Frame{URL: inner.URL, SameOrigin: true, Document: inner}
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(frame))

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)

	require.Len(t, units, 1)
	assert.Equal(t, KindEmbeddedText, units[0].Kind)
	assert.Equal(t, "Framed story", units[0].OriginalText)
	assert.Empty(t, ex.Advisories())
}

func TestExtractDocument_CrossOriginFrameAdvisedOnce(t *testing.T) {
	frame := dom.NewElement("iframe")
	frame.Frame = &dom.Frame{URL: "https://other.test/widget", SameOrigin: false}
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(frame))

	ex := NewExtractor(nil)
	assert.Empty(t, ex.ExtractDocument(doc))
	assert.Empty(t, ex.ExtractDocument(doc))

	advisories := ex.Advisories()
	require.Len(t, advisories, 1)
	assert.Equal(t, AdvisoryCrossOriginFrame, advisories[0].Reason)
	assert.Equal(t, "https://other.test/widget", advisories[0].URL)
}

func TestExtractDocument_GraphicalContentAdvisory(t *testing.T) {
	canvas := dom.NewElement("canvas").Append(dom.NewText("fallback text here"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(canvas))

	ex := NewExtractor(nil)
	assert.Empty(t, ex.ExtractDocument(doc))

	advisories := ex.Advisories()
	require.Len(t, advisories, 1)
	assert.Equal(t, AdvisoryGraphicalContent, advisories[0].Reason)
	assert.Equal(t, "canvas", advisories[0].Tag)
}

func TestExtractor_ConcurrentAdvisoryReads(t *testing.T) {
	ex := NewExtractor(nil)
	const nodes = 64

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < nodes; i++ {
			ex.ExtractNode(dom.NewElement("canvas"))
		}
	}()

	// Snapshot readers race the reporting goroutine; every intermediate
	// copy must be well formed.
	for {
		advisories := ex.Advisories()
		for _, adv := range advisories {
			assert.Equal(t, AdvisoryGraphicalContent, adv.Reason)
		}
		select {
		case <-done:
			require.Len(t, ex.Advisories(), nodes)
			return
		default:
		}
	}
}

func TestExtractDocument_RescanIsIdempotent(t *testing.T) {
	p := dom.NewElement("p").Append(dom.NewText("Hello world"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(p))

	ex := NewExtractor(nil)
	require.Len(t, ex.ExtractDocument(doc), 1)
	assert.Empty(t, ex.ExtractDocument(doc))
}

func TestExtractNode_TranslatedTextIsNotRecaptured(t *testing.T) {
	p := dom.NewElement("p").Append(dom.NewText("Hello world"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(p))

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)
	require.Len(t, units, 1)

	units[0].ApplyTranslation("Bonjour le monde")
	// The replacement itself must not register as new content.
	assert.Empty(t, ex.ExtractNode(p))
	assert.True(t, units[0].Translated)
}

func TestExtractNode_GenuineChangeRecaptures(t *testing.T) {
	p := dom.NewElement("p").Append(dom.NewText("Hello world"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(p))

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)
	require.Len(t, units, 1)
	units[0].ApplyTranslation("Bonjour le monde")

	p.SetDirectText("Completely new copy")
	fresh := ex.ExtractNode(p)
	require.Len(t, fresh, 1)
	assert.Equal(t, "Completely new copy", fresh[0].OriginalText)
	assert.False(t, fresh[0].Translated)
}

func TestRegistry_RestoreAllIsIdempotent(t *testing.T) {
	p := dom.NewElement("p").Append(dom.NewText("Hello world"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(p))

	ex := NewExtractor(nil)
	units := ex.ExtractDocument(doc)
	require.Len(t, units, 1)
	units[0].ApplyTranslation("Bonjour le monde")
	require.Equal(t, "Bonjour le monde", p.DirectText())

	ex.Registry().RestoreAll()
	assert.Equal(t, "Hello world", p.DirectText())
	assert.False(t, units[0].Translated)

	ex.Registry().RestoreAll()
	assert.Equal(t, "Hello world", p.DirectText())
}

func TestAdapters_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		node *dom.Node
		read string
	}{
		{
			name: "plain text",
			kind: KindPlainText,
			node: dom.NewElement("p").Append(dom.NewText("Hello world")),
			read: "Hello world",
		},
		{
			name: "placeholder",
			kind: KindPlaceholder,
			node: dom.NewElement("input").WithAttr("placeholder", "Search here"),
			read: "Search here",
		},
		{
			name: "form value",
			kind: KindFormValue,
			node: dom.NewElement("input").WithAttr("type", "submit").WithAttr("value", "Send form"),
			read: "Send form",
		},
		{
			name: "accessible label falls back to title",
			kind: KindAccessibleLabel,
			node: dom.NewElement("button").WithAttr("title", "Close dialog"),
			read: "Close dialog",
		},
		{
			name: "group label attribute",
			kind: KindGroupLabel,
			node: dom.NewElement("optgroup").WithAttr("label", "Fruit options"),
			read: "Fruit options",
		},
		{
			name: "group label legend text",
			kind: KindGroupLabel,
			node: dom.NewElement("legend").Append(dom.NewText("Shipping address")),
			read: "Shipping address",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.read, ReadText(tt.kind, tt.node))
			WriteText(tt.kind, tt.node, "translated")
			assert.Equal(t, "translated", ReadText(tt.kind, tt.node))
		})
	}
}

func TestAdapters_AccessibleLabelPrefersAriaLabel(t *testing.T) {
	n := dom.NewElement("button").
		WithAttr("aria-label", "Close dialog").
		WithAttr("title", "Close")

	require.Equal(t, "Close dialog", ReadText(KindAccessibleLabel, n))
	WriteText(KindAccessibleLabel, n, "Cerrar")
	assert.Equal(t, "Cerrar", n.Attr("aria-label"))
	assert.Equal(t, "Close", n.Attr("title"))
}
