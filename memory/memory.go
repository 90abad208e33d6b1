package memory

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEntries is the default capacity of a Link.
const DefaultMaxEntries = 10000

// DefaultCategory is used when an Entry is stored without a category.
const DefaultCategory = "general"

var (
	// ErrNotFound is returned when retrieving a key that is not stored or
	// whose Entry has expired.
	ErrNotFound = errors.New("memory entry not found")

	// ErrEmptyKey is returned when storing an Entry under an empty key.
	ErrEmptyKey = errors.New("empty key")
)

// An Entry is a single remembered value.
type Entry struct {
	Key         string         `json:"key"`
	Value       any            `json:"value"`
	Category    string         `json:"category"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	StoredAt    time.Time      `json:"storedAt"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	AccessedAt  time.Time      `json:"accessedAt"`
	AccessCount int            `json:"accessCount"`
}

// Expired returns whether the Entry is expired at the given time.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// A Link is the memory of a single agent.
//
// Use NewLink to create a Link.
type Link struct {
	agentID    uuid.UUID
	maxEntries int

	mux     sync.RWMutex
	entries map[string]Entry
}

// NewLink returns the memory Link for the given agent. A maxEntries lower
// than 1 defaults to DefaultMaxEntries.
func NewLink(agentID uuid.UUID, maxEntries int) *Link {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &Link{
		agentID:    agentID,
		maxEntries: maxEntries,
		entries:    make(map[string]Entry),
	}
}

// AgentID returns the UUID of the agent this Link belongs to.
func (l *Link) AgentID() uuid.UUID {
	return l.agentID
}

// StoreOption configures an Entry that is being stored.
type StoreOption func(*Entry)

// WithCategory stores the Entry under the given category.
func WithCategory(category string) StoreOption {
	return func(e *Entry) {
		e.Category = category
	}
}

// WithMetadata attaches metadata to the Entry.
func WithMetadata(metadata map[string]any) StoreOption {
	return func(e *Entry) {
		e.Metadata = metadata
	}
}

// WithTTL makes the Entry expire after the given duration.
func WithTTL(ttl time.Duration) StoreOption {
	return func(e *Entry) {
		expires := e.StoredAt.Add(ttl)
		e.ExpiresAt = &expires
	}
}

// Store stores value under key, replacing a previous Entry with the same key.
// When the Link is at capacity, expired and oldest Entries are evicted first.
func (l *Link) Store(key string, value any, opts ...StoreOption) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}

	now := time.Now()
	e := Entry{
		Key:        key,
		Value:      value,
		Category:   DefaultCategory,
		StoredAt:   now,
		AccessedAt: now,
	}
	for _, opt := range opts {
		opt(&e)
	}

	l.mux.Lock()
	defer l.mux.Unlock()

	if _, ok := l.entries[key]; !ok && len(l.entries) >= l.maxEntries {
		l.evict()
	}

	l.entries[key] = e

	return nil
}

// evict removes expired Entries and, if the Link is still over 80% of its
// capacity, the oldest Entries until it is not.
func (l *Link) evict() {
	now := time.Now()
	for key, e := range l.entries {
		if e.Expired(now) {
			delete(l.entries, key)
		}
	}

	threshold := l.maxEntries * 8 / 10
	if len(l.entries) <= threshold {
		return
	}

	entries := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StoredAt.Before(entries[j].StoredAt)
	})

	for _, e := range entries[:len(entries)-threshold] {
		delete(l.entries, e.Key)
	}
}

// Retrieve returns the Entry stored under key. Expired Entries are removed
// and reported as ErrNotFound.
func (l *Link) Retrieve(key string) (Entry, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}

	now := time.Now()
	if e.Expired(now) {
		delete(l.entries, key)
		return Entry{}, ErrNotFound
	}

	e.AccessedAt = now
	e.AccessCount++
	l.entries[key] = e

	return e, nil
}

// RetrieveCategory returns all non-expired Entries of the given category.
func (l *Link) RetrieveCategory(category string) []Entry {
	l.mux.RLock()
	defer l.mux.RUnlock()

	now := time.Now()
	var out []Entry
	for _, e := range l.entries {
		if e.Category == category && !e.Expired(now) {
			out = append(out, e)
		}
	}
	sortEntries(out)

	return out
}

// Search returns the non-expired Entries whose key or stringified value
// contains query. Matching is case-insensitive. An empty category searches
// all categories.
func (l *Link) Search(query, category string) []Entry {
	query = strings.ToLower(query)

	l.mux.RLock()
	defer l.mux.RUnlock()

	now := time.Now()
	var out []Entry
	for _, e := range l.entries {
		if e.Expired(now) {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		if strings.Contains(strings.ToLower(e.Key), query) || strings.Contains(strings.ToLower(stringify(e.Value)), query) {
			out = append(out, e)
		}
	}
	sortEntries(out)

	return out
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Update replaces the value of the Entry stored under key, keeping its
// category, metadata and expiry.
func (l *Link) Update(key string, value any) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	e, ok := l.entries[key]
	if !ok || e.Expired(time.Now()) {
		return ErrNotFound
	}

	e.Value = value
	l.entries[key] = e

	return nil
}

// Delete removes the Entry stored under key.
func (l *Link) Delete(key string) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	if _, ok := l.entries[key]; !ok {
		return ErrNotFound
	}
	delete(l.entries, key)

	return nil
}

// ClearCategory removes all Entries of the given category and returns how
// many were removed.
func (l *Link) ClearCategory(category string) int {
	l.mux.Lock()
	defer l.mux.Unlock()

	var removed int
	for key, e := range l.entries {
		if e.Category == category {
			delete(l.entries, key)
			removed++
		}
	}

	return removed
}

// Cleanup removes expired Entries and returns how many were removed.
func (l *Link) Cleanup() int {
	l.mux.Lock()
	defer l.mux.Unlock()

	now := time.Now()
	var removed int
	for key, e := range l.entries {
		if e.Expired(now) {
			delete(l.entries, key)
			removed++
		}
	}

	return removed
}

// Stats are usage statistics of a Link.
type Stats struct {
	AgentID    uuid.UUID      `json:"agentId"`
	Entries    int            `json:"entries"`
	MaxEntries int            `json:"maxEntries"`
	Categories map[string]int `json:"categories"`
}

// Stats returns the current usage statistics.
func (l *Link) Stats() Stats {
	l.mux.RLock()
	defer l.mux.RUnlock()

	now := time.Now()
	categories := make(map[string]int)
	var count int
	for _, e := range l.entries {
		if e.Expired(now) {
			continue
		}
		categories[e.Category]++
		count++
	}

	return Stats{
		AgentID:    l.agentID,
		Entries:    count,
		MaxEntries: l.maxEntries,
		Categories: categories,
	}
}

// Export returns all non-expired Entries.
func (l *Link) Export() []Entry {
	l.mux.RLock()
	defer l.mux.RUnlock()

	now := time.Now()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.Expired(now) {
			out = append(out, e)
		}
	}
	sortEntries(out)

	return out
}

// Import stores the given Entries, replacing existing Entries with the same
// keys, and returns how many were imported. Entries with an empty key or an
// expiry in the past are skipped.
func (l *Link) Import(entries []Entry) int {
	l.mux.Lock()
	defer l.mux.Unlock()

	now := time.Now()
	var imported int
	for _, e := range entries {
		if strings.TrimSpace(e.Key) == "" || e.Expired(now) {
			continue
		}
		if e.Category == "" {
			e.Category = DefaultCategory
		}
		if e.StoredAt.IsZero() {
			e.StoredAt = now
		}
		if e.AccessedAt.IsZero() {
			e.AccessedAt = e.StoredAt
		}
		l.entries[e.Key] = e
		imported++
	}

	return imported
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StoredAt.Equal(entries[j].StoredAt) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].StoredAt.Before(entries[j].StoredAt)
	})
}
