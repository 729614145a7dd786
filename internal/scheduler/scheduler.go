package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pageglot/pageglot/internal/extract"
	"github.com/pageglot/pageglot/pkg/log"
)

const (
	DefaultBatchSize       = 6
	DefaultInterBatchDelay = 400 * time.Millisecond
)

// Translator is the remote capability the scheduler drives. Satisfied
// by remote.Client.
type Translator interface {
	Translate(ctx context.Context, texts []string, sourceLang, targetLang string) (map[string]string, error)
}

// Config tunes batch sizing and pacing.
type Config struct {
	BatchSize       int
	InterBatchDelay time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.InterBatchDelay <= 0 {
		out.InterBatchDelay = DefaultInterBatchDelay
	}
	return out
}

// Scheduler owns exclusive write access to the units of each batch it
// processes, for the batch's lifetime. Batches run strictly
// sequentially with a minimum inter-batch delay; cancellation is
// cooperative through the session-scoped active func.
type Scheduler struct {
	config Config
	client Translator

	// active is checked before starting and before applying each
	// batch; a false result stops cleanly without error.
	active func() bool

	mu       sync.Mutex
	inflight map[string]bool

	// sleep is the inter-batch suspension point, replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(config Config, client Translator, active func() bool) *Scheduler {
	if active == nil {
		active = func() bool { return true }
	}
	return &Scheduler{
		config:   config.withDefaults(),
		client:   client,
		active:   active,
		inflight: make(map[string]bool),
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run splits units into batches and processes them in submission
// order. Batch-level failures are logged and abandoned; subsequent
// batches still run. Returns the number of units translated.
func (s *Scheduler) Run(ctx context.Context, units []*extract.TextUnit, sourceLang, targetLang string) (int, error) {
	batches := split(units, s.config.BatchSize)
	translated := 0

	for i, batch := range batches {
		if i > 0 {
			if err := s.sleep(ctx, s.config.InterBatchDelay); err != nil {
				return translated, err
			}
		}
		n, err := s.RunBatch(ctx, batch, sourceLang, targetLang)
		if err != nil {
			if ctx.Err() != nil {
				return translated, err
			}
			// Abandon this batch, keep the session going.
			log.Error("batch %s abandoned: %v", batch.ID, err)
			continue
		}
		translated += n
	}
	return translated, nil
}

// RunBatch processes a single batch. A batch id already in flight is
// dropped: late duplicate notifications never cause a second call.
func (s *Scheduler) RunBatch(ctx context.Context, batch *Batch, sourceLang, targetLang string) (int, error) {
	if !s.active() {
		batch.Status = StatusCancelled
		return 0, nil
	}

	s.mu.Lock()
	if s.inflight[batch.ID] {
		s.mu.Unlock()
		log.Debug("batch %s already in flight, dropped", batch.ID)
		return 0, nil
	}
	s.inflight[batch.ID] = true
	batch.Status = StatusInFlight
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, batch.ID)
		s.mu.Unlock()
	}()

	// Duplicate original strings across units share one translation.
	unitsByText := make(map[string][]*extract.TextUnit)
	texts := make([]string, 0, len(batch.Units))
	for _, unit := range batch.Units {
		if !ShouldTranslate(unit.OriginalText) {
			continue
		}
		if _, seen := unitsByText[unit.OriginalText]; !seen {
			texts = append(texts, unit.OriginalText)
		}
		unitsByText[unit.OriginalText] = append(unitsByText[unit.OriginalText], unit)
	}
	if len(texts) == 0 {
		batch.Status = StatusDone
		return 0, nil
	}

	translations, err := s.client.Translate(ctx, texts, sourceLang, targetLang)
	if err != nil {
		batch.Status = StatusPending
		return 0, err
	}

	if !s.active() {
		batch.Status = StatusCancelled
		return 0, nil
	}

	applied := 0
	for text, units := range unitsByText {
		translated, ok := translations[text]
		if !ok || translated == "" || translated == text {
			// Unresolved or identical strings stay unchanged.
			continue
		}
		for _, unit := range units {
			unit.ApplyTranslation(translated)
			applied++
		}
	}

	batch.Status = StatusDone
	return applied, nil
}
