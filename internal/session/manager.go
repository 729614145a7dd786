package session

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/pageglot/pageglot/internal/cache"
	"github.com/pageglot/pageglot/internal/dom"
	"github.com/pageglot/pageglot/internal/scheduler"
	"github.com/pageglot/pageglot/pkg/log"
)

// Manager owns the per-page controllers. It is constructed once and
// passed to collaborators; the keyed map lookup is the only sharing
// mechanism across sessions.
type Manager struct {
	client  scheduler.Translator
	results *cache.Cache
	config  Config

	mu       sync.Mutex
	sessions map[string]*Controller

	sweepGroup singleflight.Group
}

func NewManager(client scheduler.Translator, results *cache.Cache, config Config) *Manager {
	return &Manager{
		client:   client,
		results:  results,
		config:   config,
		sessions: make(map[string]*Controller),
	}
}

// Attach binds a document to the page's controller, creating an idle
// controller on first sight of the page id.
func (m *Manager) Attach(pageID string, doc *dom.Document) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[pageID]; ok {
		existing.Navigated(doc)
		return existing
	}
	controller := NewController(pageID, doc, m.client, m.config)
	m.sessions[pageID] = controller
	return controller
}

// Session returns the controller for a page id.
func (m *Manager) Session(pageID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	controller, ok := m.sessions[pageID]
	return controller, ok
}

// Remove stops and destroys a page's session, as on page unload.
func (m *Manager) Remove(pageID string) {
	m.mu.Lock()
	controller, ok := m.sessions[pageID]
	delete(m.sessions, pageID)
	m.mu.Unlock()

	if ok {
		controller.Stop()
	}
}

// List snapshots every live session.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make([]Snapshot, 0, len(m.sessions))
	for _, controller := range m.sessions {
		ret = append(ret, controller.Snapshot())
	}
	return ret
}

// StopAll stops every session, for process shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.sessions))
	for _, controller := range m.sessions {
		controllers = append(controllers, controller)
	}
	m.mu.Unlock()

	for _, controller := range controllers {
		controller.Stop()
	}
}

// ScheduleMaintenance registers the periodic cache sweep on the given
// cron. Overlapping triggers collapse into one sweep.
func (m *Manager) ScheduleMaintenance(c *cron.Cron, expr string) error {
	if m.results == nil {
		return fmt.Errorf("no result cache configured")
	}
	_, err := c.AddFunc(expr, func() {
		_, _, _ = m.sweepGroup.Do("sweep", func() (any, error) {
			removed := m.results.Sweep()
			if removed > 0 {
				log.Info("cache sweep removed %d expired entries", removed)
			}
			return nil, nil
		})
	})
	return err
}
