package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obarth/ogate/internal/object"
)

func testKey() Key {
	return Key{Kind: "read", Name: object.MustParseName("my:type=Cache"), Attribute: "Size"}
}

func TestMemoryStore_RecordAndGet(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	key := testKey()
	s.Track(key, 5)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.Record(key, int64(1), base)
	s.Record(key, int64(2), base.Add(time.Second))

	entries := s.Get(key)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Value)
	assert.Equal(t, int64(2), entries[1].Value)
	assert.True(t, entries[1].Timestamp.After(entries[0].Timestamp))
}

func TestMemoryStore_UntrackedIsNoop(t *testing.T) {
	s := NewMemoryStore(time.Minute)

	s.Record(testKey(), int64(1), time.Now())
	assert.Nil(t, s.Get(testKey()))
}

func TestMemoryStore_TrimsToLimit(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	key := testKey()
	s.Track(key, 3)

	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Record(key, int64(i), base.Add(time.Duration(i)*time.Second))
	}

	entries := s.Get(key)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(7), entries[0].Value)
	assert.Equal(t, int64(9), entries[2].Value)
}

func TestMemoryStore_Untrack(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	key := testKey()
	s.Track(key, 5)
	s.Record(key, int64(1), time.Now())

	s.Untrack(key)
	assert.Nil(t, s.Get(key))

	s.Record(key, int64(2), time.Now())
	assert.Nil(t, s.Get(key))
}

func TestMemoryStore_DefaultLimit(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	key := testKey()
	s.Track(key, 0)

	base := time.Now()
	for i := 0; i < DefaultMaxEntries+5; i++ {
		s.Record(key, int64(i), base.Add(time.Duration(i)*time.Second))
	}
	assert.Len(t, s.Get(key), DefaultMaxEntries)
}
