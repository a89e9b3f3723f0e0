// Package history keeps recent attribute values so callers can see how a
// value evolved across requests.
package history

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/obarth/ogate/internal/object"
)

// Entry is one recorded value.
type Entry struct {
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Key identifies one tracked series: an attribute of a management object
// under one kind of access ("read" or "write").
type Key struct {
	Kind      string
	Name      object.Name
	Attribute string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Name.String(), k.Attribute)
}

// Store records and retrieves value series. Recording for untracked keys
// is a no-op; tracking starts with Track.
type Store interface {
	Track(key Key, maxEntries int)
	Untrack(key Key)
	Record(key Key, value any, at time.Time)
	Get(key Key) []Entry
}

// DefaultMaxEntries bounds a tracked series when Track is given zero.
const DefaultMaxEntries = 10

// MemoryStore is an in-memory Store with per-entry expiry. Series vanish
// after the retention period without new samples.
type MemoryStore struct {
	mu     sync.Mutex
	cache  *gocache.Cache
	limits map[string]int
}

// NewMemoryStore creates a store that retains series for the given
// duration past their last sample.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		cache:  gocache.New(retention, retention/2),
		limits: map[string]int{},
	}
}

func (s *MemoryStore) Track(key Key, maxEntries int) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[key.String()] = maxEntries
}

func (s *MemoryStore) Untrack(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limits, key.String())
	s.cache.Delete(key.String())
}

func (s *MemoryStore) Record(key Key, value any, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	limit, tracked := s.limits[k]
	if !tracked {
		return
	}

	var entries []Entry
	if existing, found := s.cache.Get(k); found {
		entries = existing.([]Entry)
	}
	entries = append(entries, Entry{Value: value, Timestamp: at})
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	s.cache.Set(k, entries, gocache.DefaultExpiration)
}

// Get returns the recorded series, oldest first. Untracked or expired
// keys yield nil.
func (s *MemoryStore) Get(key Key) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.cache.Get(key.String())
	if !found {
		return nil
	}
	entries := existing.([]Entry)
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
