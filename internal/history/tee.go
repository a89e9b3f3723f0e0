package history

import (
	"context"
	"time"

	"github.com/obarth/ogate/internal/log"
)

// Sink receives a copy of every recorded entry, typically for durable
// archival.
type Sink interface {
	Append(ctx context.Context, key Key, value any, at time.Time) error
}

// TeeStore records into an in-memory store and mirrors every sample to a
// sink. Sink failures are logged and never block serving.
type TeeStore struct {
	Store
	sink Sink
}

func NewTeeStore(store Store, sink Sink) *TeeStore {
	return &TeeStore{Store: store, sink: sink}
}

func (t *TeeStore) Record(key Key, value any, at time.Time) {
	t.Store.Record(key, value, at)
	if err := t.sink.Append(context.Background(), key, value, at); err != nil {
		log.Warn(log.CatHistory, "history archive append failed", "key", key.String(), "error", err.Error())
	}
}
