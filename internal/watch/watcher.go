// Package watch consumes the document's mutation feed and re-extracts
// text units from added or changed nodes only, feeding them onward
// while the session is in a continuous phase.
package watch

import (
	"sync"

	"github.com/pageglot/pageglot/internal/dom"
	"github.com/pageglot/pageglot/internal/extract"
	"github.com/pageglot/pageglot/pkg/log"
)

// Watcher subscribes to a document's change feed. Extraction dedup
// lives in the extractor's registry, so rapid repeated mutations never
// re-announce unchanged units.
type Watcher struct {
	extractor *extract.Extractor

	// continuous gates forwarding: units are only handed on while the
	// controller's session is in a continuous phase.
	continuous func() bool

	// forward receives newly discovered units, typically feeding the
	// batch scheduler.
	forward func(units []*extract.TextUnit)

	mu     sync.Mutex
	cancel func()
	done   chan struct{}
}

func New(extractor *extract.Extractor, continuous func() bool, forward func([]*extract.TextUnit)) *Watcher {
	if continuous == nil {
		continuous = func() bool { return true }
	}
	return &Watcher{
		extractor:  extractor,
		continuous: continuous,
		forward:    forward,
	}
}

// Attach subscribes to the document's feed and starts consuming
// mutation batches. Attaching twice detaches the earlier subscription.
func (w *Watcher) Attach(doc *dom.Document) {
	w.Detach()

	ch, cancel := doc.Feed().Subscribe()
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go func() {
		defer close(done)
		for muts := range ch {
			w.handle(muts)
		}
	}()
}

// Detach unsubscribes from the feed and waits for the consumer to
// drain.
func (w *Watcher) Detach() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (w *Watcher) handle(muts []dom.Mutation) {
	var units []*extract.TextUnit
	for _, mut := range muts {
		if mut.Target == nil {
			continue
		}
		target := mut.Target
		if target.Type == dom.TextNode {
			target = target.Parent()
			if target == nil {
				continue
			}
		}
		units = append(units, w.extractor.ExtractNode(target)...)
	}
	if len(units) == 0 {
		return
	}

	if !w.continuous() {
		log.Debug("watcher dropped %d units, session not continuous", len(units))
		return
	}
	if w.forward != nil {
		w.forward(units)
	}
}
