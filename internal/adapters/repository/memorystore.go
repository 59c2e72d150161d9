package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/stuffscore/pkg/metrics"
)

// MemoryStore keeps snapshots in process.
type MemoryStore struct {
	opts storeOptions

	mu    sync.RWMutex
	snaps map[string]memoryEntry
}

type memoryEntry struct {
	snap      *Snapshot
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{opts: o, snaps: make(map[string]memoryEntry)}
}

// Publish implements Store.
func (s *MemoryStore) Publish(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := memoryEntry{snap: snap}
	if s.opts.ttl > 0 {
		e.expiresAt = s.opts.now().Add(s.opts.ttl)
	}
	s.mu.Lock()
	s.snaps[snap.Population] = e
	s.mu.Unlock()
	metrics.RecordSnapshotPublished(snap.Population, snap.GeneratedAt, snap.ComputeMs)
	return nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(ctx context.Context, population string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.snaps[population]
	s.mu.RUnlock()

	if !ok || (!e.expiresAt.IsZero() && !s.opts.now().Before(e.expiresAt)) {
		metrics.RecordCacheMiss("memory")
		return nil, fmt.Errorf("%w: snapshot %s", ErrNotFound, population)
	}
	metrics.RecordCacheHit("memory")
	return e.snap, nil
}

// Invalidate implements Store.
func (s *MemoryStore) Invalidate(_ context.Context, population string) error {
	s.mu.Lock()
	delete(s.snaps, population)
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	clear(s.snaps)
	s.mu.Unlock()
	return nil
}
