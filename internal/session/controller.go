package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pageglot/pageglot/internal/dom"
	"github.com/pageglot/pageglot/internal/extract"
	"github.com/pageglot/pageglot/internal/remote"
	"github.com/pageglot/pageglot/internal/scheduler"
	"github.com/pageglot/pageglot/internal/watch"
	"github.com/pageglot/pageglot/pkg/log"
)

// autoLanguage asks the controller to detect the source language from
// the page content.
const autoLanguage = "auto"

// Controller is the per-page continuous translation state machine:
// Idle → Translating → Active → Restarting → Translating → Active →
// Idle. All phase transitions happen under one mutex; batch work runs
// on the session's single run loop, so scheduler state is never
// touched concurrently.
type Controller struct {
	pageID    string
	config    Config
	client    scheduler.Translator
	extractor *extract.Extractor
	sched     *scheduler.Scheduler
	watcher   *watch.Watcher

	mu        sync.Mutex
	doc       *dom.Document
	phase     Phase
	enabled   bool
	source    string // as requested, may be "auto"
	resolved  string // source actually used for calls
	target    string
	startedAt time.Time

	// active is the cooperative cancellation flag checked by the
	// scheduler before starting or applying each batch.
	active atomic.Bool

	// runMu serializes translation passes: the session has one
	// logical thread of batch work.
	runMu sync.Mutex

	events *eventFeed

	// sleep is the settle-delay suspension point, replaceable in
	// tests.
	sleep func(d time.Duration)
}

// NewController creates an idle controller for the given page.
func NewController(pageID string, doc *dom.Document, client scheduler.Translator, config Config) *Controller {
	c := &Controller{
		pageID:    pageID,
		config:    config.withDefaults(),
		client:    client,
		doc:       doc,
		phase:     PhaseIdle,
		extractor: extract.NewExtractor(nil),
		events:    newEventFeed(),
		sleep:     func(d time.Duration) { time.Sleep(d) },
	}
	c.sched = scheduler.New(c.config.Scheduler, client, c.active.Load)
	c.watcher = watch.New(c.extractor, c.isContinuous, c.onDiscovered)
	return c
}

// SubscribeEvents registers a notification subscriber. Every
// subscriber receives its own stream, so concurrent consumers never
// steal each other's events; the cancel func drops the subscription.
func (c *Controller) SubscribeEvents() (<-chan Event, func()) {
	return c.events.subscribe()
}

// Phase returns the current state machine position.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns the externally visible session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		PageID:         c.pageID,
		Phase:          c.phase,
		Enabled:        c.enabled,
		SourceLanguage: c.source,
		TargetLanguage: c.target,
		StartedAt:      c.startedAt,
		Advisories:     c.extractor.Advisories(),
	}
}

// Start begins a translation session: Idle → Translating, full-page
// extraction and batch run, then → Active with the change watcher
// live. A failure leaves the session Idle with a typed error, never a
// half-translated page in a non-idle state.
func (c *Controller) Start(sourceLang, targetLang string) error {
	if err := validateLanguages(sourceLang, targetLang); err != nil {
		return err
	}

	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return remoteValidation(fmt.Errorf("session %s already in phase %s", c.pageID, c.phase))
	}
	if c.doc == nil {
		c.phase = PhaseIdle
		c.mu.Unlock()
		return &remote.Error{Class: remote.ClassNetwork, Op: "start", Cause: errors.New("host document unreachable")}
	}
	c.phase = PhaseTranslating
	c.enabled = true
	c.source = sourceLang
	c.resolved = ""
	c.target = targetLang
	c.startedAt = time.Now()
	c.active.Store(true)
	doc := c.doc
	c.mu.Unlock()

	c.emit(EventStarted, "")

	if err := c.runPass(doc); err != nil {
		c.fail(err)
		return err
	}

	c.becomeActive(doc)
	return nil
}

// UpdateLanguage restores every translated unit to its captured
// original text, then re-enters Translating with the new language
// pair. Restoring twice in a row produces the same text as restoring
// once.
func (c *Controller) UpdateLanguage(sourceLang, targetLang string) error {
	if err := validateLanguages(sourceLang, targetLang); err != nil {
		return err
	}

	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return remoteValidation(fmt.Errorf("session %s not active", c.pageID))
	}
	c.phase = PhaseTranslating
	c.source = sourceLang
	c.resolved = ""
	c.target = targetLang
	doc := c.doc
	c.mu.Unlock()

	c.watcher.Detach()
	c.runMu.Lock()
	c.extractor.Registry().RestoreAll()
	c.runMu.Unlock()

	c.emit(EventStarted, "")

	if err := c.runPass(doc); err != nil {
		c.fail(err)
		return err
	}

	c.becomeActive(doc)
	return nil
}

// Navigated handles a navigation event while Active: the session keeps
// its languages but clears original-content bookkeeping, because the
// document has been replaced.
func (c *Controller) Navigated(newDoc *dom.Document) {
	c.watcher.Detach()

	c.mu.Lock()
	c.doc = newDoc
	c.extractor.Reset()
	restarting := c.phase == PhaseActive
	if restarting {
		c.phase = PhaseRestarting
	}
	c.mu.Unlock()

	if restarting {
		c.emit(EventRestarting, "")
	}
}

// PageLoaded resumes a restarting session once the new page finished
// loading, re-running the pass with the preserved languages.
func (c *Controller) PageLoaded() error {
	c.mu.Lock()
	if c.phase != PhaseRestarting {
		c.mu.Unlock()
		return nil
	}
	c.phase = PhaseTranslating
	doc := c.doc
	c.mu.Unlock()

	if doc == nil {
		err := &remote.Error{Class: remote.ClassNetwork, Op: "restart", Cause: errors.New("host document unreachable")}
		c.fail(err)
		return err
	}

	c.sleep(c.config.SettleDelay)
	c.emit(EventStarted, "")

	if err := c.runPass(doc); err != nil {
		c.fail(err)
		return err
	}

	c.becomeActive(doc)
	return nil
}

// Stop moves the session to Idle from any state. In-flight batches
// see the cleared active flag and cancel themselves.
func (c *Controller) Stop() {
	c.active.Store(false)
	c.watcher.Detach()

	c.mu.Lock()
	c.phase = PhaseIdle
	c.enabled = false
	c.mu.Unlock()
}

// runPass extracts the whole page and drives the scheduler once,
// under the session-level pass timeout.
func (c *Controller) runPass(doc *dom.Document) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.extractor.ExtractDocument(doc)

	// Schedule everything not yet carrying a translation. After a
	// language update this re-covers restored units, not only newly
	// discovered ones.
	all := c.extractor.Registry().Units()
	if len(all) == 0 {
		return remoteValidation(errors.New("no translatable content"))
	}
	units := make([]*extract.TextUnit, 0, len(all))
	for _, unit := range all {
		if !unit.Translated {
			units = append(units, unit)
		}
	}

	source := c.sourceForCalls(units)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.PassTimeout)
	defer cancel()

	translated, err := c.sched.Run(ctx, units, source, c.targetLang())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &remote.Error{Class: remote.ClassTimeout, Op: "pass", Cause: err}
		}
		return err
	}

	log.Info("session %s translated %d units (%s → %s)", c.pageID, translated, source, c.targetLang())
	return nil
}

// sourceForCalls resolves "auto" through content detection, memoizing
// the result for the watcher's incremental passes.
func (c *Controller) sourceForCalls(units []*extract.TextUnit) string {
	c.mu.Lock()
	source := c.source
	resolved := c.resolved
	c.mu.Unlock()

	if source != autoLanguage {
		return source
	}
	if resolved != "" {
		return resolved
	}

	detected := detectSourceLanguage(units)
	if detected == "" {
		detected = "en"
	}
	c.mu.Lock()
	c.resolved = detected
	c.mu.Unlock()
	log.Info("session %s detected source language %q", c.pageID, detected)
	return detected
}

func (c *Controller) targetLang() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *Controller) becomeActive(doc *dom.Document) {
	c.mu.Lock()
	// Stop may have landed while the pass was draining; Idle wins and
	// the watcher stays detached.
	if !c.active.Load() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseActive
	c.mu.Unlock()

	c.watcher.Attach(doc)
	c.emit(EventActive, "")
}

func (c *Controller) isContinuous() bool {
	return c.Phase() == PhaseActive
}

// onDiscovered receives units the watcher found in later mutations and
// runs them through the scheduler on the session's run loop.
func (c *Controller) onDiscovered(units []*extract.TextUnit) {
	if !c.active.Load() {
		return
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.PassTimeout)
	defer cancel()

	source := c.sourceForCalls(units)
	if _, err := c.sched.Run(ctx, units, source, c.targetLang()); err != nil {
		log.Error("session %s incremental pass: %v", c.pageID, err)
	}
}

// fail transitions to Idle and surfaces the error as a notification.
func (c *Controller) fail(err error) {
	c.active.Store(false)
	c.watcher.Detach()

	c.mu.Lock()
	c.phase = PhaseIdle
	c.enabled = false
	c.mu.Unlock()

	c.emit(EventError, err.Error())
}

func (c *Controller) emit(eventType EventType, reason string) {
	c.events.publish(Event{
		Type:   eventType,
		PageID: c.pageID,
		Reason: reason,
		Time:   time.Now(),
	})
}

func validateLanguages(sourceLang, targetLang string) error {
	if sourceLang == "" || targetLang == "" {
		return remoteValidation(errors.New("source and target language are required"))
	}
	if sourceLang != autoLanguage {
		if _, err := remote.SupportedLanguage(sourceLang); err != nil {
			return err
		}
	}
	if _, err := remote.SupportedLanguage(targetLang); err != nil {
		return err
	}
	return nil
}

func remoteValidation(err error) error {
	return &remote.Error{Class: remote.ClassValidation, Op: "session", Cause: err}
}
