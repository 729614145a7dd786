package watch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageglot/pageglot/internal/dom"
	"github.com/pageglot/pageglot/internal/extract"
)

type unitSink struct {
	mu    sync.Mutex
	units []*extract.TextUnit
}

func (s *unitSink) forward(units []*extract.TextUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = append(s.units, units...)
}

func (s *unitSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

func (s *unitSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.units))
	for _, unit := range s.units {
		out = append(out, unit.OriginalText)
	}
	return out
}

func TestWatcher_ForwardsInsertedContent(t *testing.T) {
	doc := dom.NewDocument("https://example.test", dom.NewElement("body"))
	sink := &unitSink{}
	w := New(extract.NewExtractor(nil), nil, sink.forward)

	w.Attach(doc)
	defer w.Detach()

	doc.AppendChild(doc.Root, dom.NewElement("p").Append(dom.NewText("Late arriving story")))

	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Late arriving story"}, sink.texts())
}

func TestWatcher_RepeatedMutationsForwardOnce(t *testing.T) {
	p := dom.NewElement("p").Append(dom.NewText("Stable paragraph"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(p))
	sink := &unitSink{}
	extractor := extract.NewExtractor(nil)
	w := New(extractor, nil, sink.forward)

	w.Attach(doc)

	// The same node announced many times yields one unit.
	for i := 0; i < 5; i++ {
		doc.Feed().Publish([]dom.Mutation{{Type: dom.MutationTextChanged, Target: p}})
	}
	w.Detach()

	assert.Equal(t, 1, sink.len())
}

func TestWatcher_TextMutationResolvesToParentElement(t *testing.T) {
	p := dom.NewElement("p").Append(dom.NewText("Original copy"))
	doc := dom.NewDocument("https://example.test", dom.NewElement("body").Append(p))
	sink := &unitSink{}
	extractor := extract.NewExtractor(nil)
	// Capture the existing content first, as a full pass would.
	extractor.ExtractDocument(doc)

	w := New(extractor, nil, sink.forward)
	w.Attach(doc)

	doc.SetText(p, "Replaced copy")
	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, 10*time.Millisecond)
	w.Detach()

	assert.Equal(t, []string{"Replaced copy"}, sink.texts())
}

func TestWatcher_GatedByContinuous(t *testing.T) {
	doc := dom.NewDocument("https://example.test", dom.NewElement("body"))
	sink := &unitSink{}
	w := New(extract.NewExtractor(nil), func() bool { return false }, sink.forward)

	w.Attach(doc)
	doc.AppendChild(doc.Root, dom.NewElement("p").Append(dom.NewText("Dropped content")))
	time.Sleep(50 * time.Millisecond)
	w.Detach()

	assert.Equal(t, 0, sink.len())
}

func TestWatcher_DetachStopsForwarding(t *testing.T) {
	doc := dom.NewDocument("https://example.test", dom.NewElement("body"))
	sink := &unitSink{}
	w := New(extract.NewExtractor(nil), nil, sink.forward)

	w.Attach(doc)
	w.Detach()

	doc.AppendChild(doc.Root, dom.NewElement("p").Append(dom.NewText("After detach")))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sink.len())

	// Detaching again is harmless.
	w.Detach()
}

func TestWatcher_ReattachFollowsNewDocument(t *testing.T) {
	first := dom.NewDocument("https://example.test/one", dom.NewElement("body"))
	second := dom.NewDocument("https://example.test/two", dom.NewElement("body"))
	sink := &unitSink{}
	w := New(extract.NewExtractor(nil), nil, sink.forward)

	w.Attach(first)
	w.Attach(second)
	defer w.Detach()

	first.AppendChild(first.Root, dom.NewElement("p").Append(dom.NewText("Old page content")))
	second.AppendChild(second.Root, dom.NewElement("p").Append(dom.NewText("New page content")))

	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"New page content"}, sink.texts())
}
