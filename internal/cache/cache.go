// Package cache is the content-addressed result cache for translation
// and summary payloads. It is a performance optimization, not a source
// of truth: keys hash a bounded content prefix, trading a small
// collision risk for compact keys.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pageglot/pageglot/internal/store"
	"github.com/pageglot/pageglot/pkg/log"
)

const (
	// keyPrefixLength bounds how much content feeds the key hash.
	keyPrefixLength = 200

	// storeKeyPrefix namespaces cache rows in the durable store.
	storeKeyPrefix = "cache/"

	DefaultMaxEntries     = 50
	DefaultTranslationTTL = 24 * time.Hour
	DefaultSummaryTTL     = 6 * time.Hour

	// evictFraction of entries removed in one pass once the cache is
	// over its maximum.
	evictFraction = 0.2
)

// PayloadKind selects the TTL class of an entry.
type PayloadKind string

const (
	PayloadTranslation PayloadKind = "translation"
	PayloadSummary     PayloadKind = "summary"
)

// SummaryPoint is one bullet of a page summary.
type SummaryPoint struct {
	Emoji string `json:"emoji"`
	Text  string `json:"text"`
}

// Summary is the renderable structure a summarize call resolves to.
type Summary struct {
	Title  string         `json:"title"`
	Points []SummaryPoint `json:"points"`
}

// Payload is the cached result of a remote call: a translation map or
// a summary structure, never both.
type Payload struct {
	Kind         PayloadKind       `json:"kind"`
	Translations map[string]string `json:"translations,omitempty"`
	Summary      *Summary          `json:"summary,omitempty"`
}

// Entry is one cached payload with its access bookkeeping.
type Entry struct {
	Key          string    `json:"key"`
	Payload      Payload   `json:"payload"`
	Timestamp    time.Time `json:"timestamp"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int       `json:"access_count"`
}

// Option configures a Cache.
type Option func(*Cache)

func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

func WithTranslationTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.translationTTL = ttl }
}

func WithSummaryTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.summaryTTL = ttl }
}

// WithClock overrides the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache maps (source language, target language, content digest) to a
// payload. Mutations happen under one mutex; persistence writes are
// fire-and-forget so callers never block on the durable store.
type Cache struct {
	maxEntries     int
	translationTTL time.Duration
	summaryTTL     time.Duration
	now            func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry

	durable store.Store
}

// New creates a Cache mirroring into durable, which may be nil for a
// purely in-memory cache.
func New(durable store.Store, opts ...Option) *Cache {
	c := &Cache{
		maxEntries:     DefaultMaxEntries,
		translationTTL: DefaultTranslationTTL,
		summaryTTL:     DefaultSummaryTTL,
		now:            time.Now,
		entries:        make(map[string]*Entry),
		durable:        durable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the content-addressed cache key from the language pair
// and a bounded prefix of the content.
func Key(sourceLang, targetLang, content string) string {
	prefix := content
	if len(prefix) > keyPrefixLength {
		prefix = prefix[:keyPrefixLength]
	}
	sum := sha256.Sum256([]byte(sourceLang + "|" + targetLang + "|" + prefix))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached payload for the language pair and content, or
// a miss when absent or expired.
func (c *Cache) Get(sourceLang, targetLang, content string) (Payload, bool) {
	key := Key(sourceLang, targetLang, content)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Payload{}, false
	}
	if c.expired(entry) {
		delete(c.entries, key)
		c.removeDurable(key)
		return Payload{}, false
	}

	entry.LastAccessed = c.now()
	entry.AccessCount++
	return entry.Payload, true
}

// Set stores a payload for the language pair and content and mirrors
// it to the durable store without blocking the caller.
func (c *Cache) Set(sourceLang, targetLang, content string, payload Payload) {
	key := Key(sourceLang, targetLang, content)
	now := c.now()

	c.mu.Lock()
	entry := &Entry{
		Key:          key,
		Payload:      payload,
		Timestamp:    now,
		LastAccessed: now,
	}
	c.entries[key] = entry
	c.evictLocked()
	c.mu.Unlock()

	c.persist(entry)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep drops expired entries in memory and in the durable store, and
// returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			c.removeDurable(key)
			removed++
		}
	}
	return removed
}

// Load reconciles the in-memory cache from the durable store: expired
// entries are dropped and the cleaned set is re-persisted.
func (c *Cache) Load() error {
	if c.durable == nil {
		return nil
	}

	keys, err := c.durable.Keys(storeKeyPrefix)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, storeKey := range keys {
		raw, ok, err := c.durable.Get(storeKey)
		if err != nil || !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			c.removeDurable(entry.Key)
			continue
		}
		if c.expired(&entry) {
			c.removeDurable(entry.Key)
			continue
		}
		c.entries[entry.Key] = &entry
	}
	c.evictLocked()

	log.Info("cache loaded %d entries from durable store", len(c.entries))
	return nil
}

func (c *Cache) ttlFor(kind PayloadKind) time.Duration {
	if kind == PayloadSummary {
		return c.summaryTTL
	}
	return c.translationTTL
}

func (c *Cache) expired(entry *Entry) bool {
	return c.now().Sub(entry.Timestamp) >= c.ttlFor(entry.Payload.Kind)
}

// evictLocked removes the least-recently-accessed 20% in one pass once
// the entry count exceeds the maximum.
func (c *Cache) evictLocked() {
	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}

	all := make([]*Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		all = append(all, entry)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastAccessed.Before(all[j].LastAccessed)
	})

	toRemove := int(float64(len(all)) * evictFraction)
	if toRemove < 1 {
		toRemove = 1
	}
	for _, entry := range all[:toRemove] {
		delete(c.entries, entry.Key)
		c.removeDurable(entry.Key)
	}
}

func (c *Cache) persist(entry *Entry) {
	if c.durable == nil {
		return
	}
	snapshot := *entry
	go func() {
		raw, err := json.Marshal(snapshot)
		if err != nil {
			log.Error("cache persist marshal %s: %v", snapshot.Key, err)
			return
		}
		if err := c.durable.Set(storeKeyPrefix+snapshot.Key, raw); err != nil {
			log.Error("cache persist %s: %v", snapshot.Key, err)
		}
	}()
}

func (c *Cache) removeDurable(key string) {
	if c.durable == nil || key == "" {
		return
	}
	go func() {
		if err := c.durable.Remove(storeKeyPrefix + key); err != nil {
			log.Error("cache remove %s: %v", key, err)
		}
	}()
}
