// Package session hosts the per-page continuous translation
// controller and the manager that keys sessions by page identifier.
package session

import (
	"time"

	"github.com/pageglot/pageglot/internal/extract"
	"github.com/pageglot/pageglot/internal/scheduler"
)

// Phase is the controller's state machine position.
type Phase string

const (
	// PhaseIdle is the default state and the terminal state on stop
	// or unload.
	PhaseIdle Phase = "idle"
	// PhaseTranslating covers the initial full-page pass.
	PhaseTranslating Phase = "translating"
	// PhaseActive means the pass completed and the change watcher is
	// live: new content translates automatically.
	PhaseActive Phase = "active"
	// PhaseRestarting preserves session languages across navigation
	// until the new page finishes loading.
	PhaseRestarting Phase = "restarting"
)

// EventType labels the asynchronous notifications surfaced to the
// presentation layer.
type EventType string

const (
	EventStarted    EventType = "started"
	EventActive     EventType = "active"
	EventRestarting EventType = "restarting"
	EventError      EventType = "error"
)

// Event is one asynchronous session notification.
type Event struct {
	Type   EventType `json:"type"`
	PageID string    `json:"page_id"`
	Reason string    `json:"reason,omitempty"`
	Time   time.Time `json:"time"`
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	PageID         string             `json:"page_id"`
	Phase          Phase              `json:"phase"`
	Enabled        bool               `json:"enabled"`
	SourceLanguage string             `json:"source_language,omitempty"`
	TargetLanguage string             `json:"target_language,omitempty"`
	StartedAt      time.Time          `json:"started_at,omitempty"`
	Advisories     []extract.Advisory `json:"advisories,omitempty"`
}

// Config tunes per-session behavior.
type Config struct {
	// PassTimeout bounds one full translation pass; exceeding it
	// forces the session to Idle with a timeout error.
	PassTimeout time.Duration

	// SettleDelay is the pause after navigation before the new page
	// is scanned.
	SettleDelay time.Duration

	Scheduler scheduler.Config
}

const (
	DefaultPassTimeout = 120 * time.Second
	DefaultSettleDelay = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.PassTimeout <= 0 {
		c.PassTimeout = DefaultPassTimeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	return c
}
