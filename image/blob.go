package image

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobScheme prefixes locators of in-memory binary results.
const BlobScheme = "blob:"

// Blob is an image payload held in memory.
type Blob struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Locator returns the blob: address of b.
func (b *Blob) Locator() string { return BlobScheme + b.ID }

// BlobOption configures a BlobStore.
type BlobOption func(*BlobStore)

// WithBlobTTL expires blobs older than ttl on Sweep. Zero keeps them until
// revoked or pushed out by the byte cap.
func WithBlobTTL(ttl time.Duration) BlobOption {
	return func(s *BlobStore) { s.ttl = ttl }
}

// WithBlobMaxBytes caps the total payload size; Put evicts the oldest blobs
// to stay under it. The newest blob is always kept.
func WithBlobMaxBytes(n int64) BlobOption {
	return func(s *BlobStore) { s.maxBytes = n }
}

// WithBlobLogger sets the logger used for evictions.
func WithBlobLogger(logger *zap.Logger) BlobOption {
	return func(s *BlobStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// BlobStore keeps binary results addressable until revoked, expired or
// evicted by the byte cap.
type BlobStore struct {
	mu       sync.RWMutex
	blobs    map[string]*Blob
	order    []string // insertion order, may hold revoked ids
	bytes    int64
	ttl      time.Duration
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewBlobStore creates an empty store.
func NewBlobStore(opts ...BlobOption) *BlobStore {
	s := &BlobStore{
		blobs:  make(map[string]*Blob),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "blob_store"))
	return s
}

// Put stores data and returns the new blob.
func (s *BlobStore) Put(data []byte, contentType string) *Blob {
	b := &Blob{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Data:        data,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[b.ID] = b
	s.order = append(s.order, b.ID)
	s.bytes += int64(len(data))

	evicted := 0
	for s.maxBytes > 0 && s.bytes > s.maxBytes && len(s.blobs) > 1 {
		if s.evictOldestLocked() {
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("blobs evicted by size cap",
			zap.Int("count", evicted),
			zap.Int64("bytes", s.bytes),
		)
	}
	return b
}

func (s *BlobStore) evictOldestLocked() bool {
	id := s.order[0]
	s.order = s.order[1:]
	return s.removeLocked(id)
}

func (s *BlobStore) removeLocked(id string) bool {
	b, ok := s.blobs[id]
	if !ok {
		return false
	}
	delete(s.blobs, id)
	s.bytes -= int64(len(b.Data))
	return true
}

// Get accepts either a blob: locator or a bare id.
func (s *BlobStore) Get(locator string) (*Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[strings.TrimPrefix(locator, BlobScheme)]
	return b, ok
}

// Revoke drops the blob and reports whether it existed.
func (s *BlobStore) Revoke(locator string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(strings.TrimPrefix(locator, BlobScheme))
}

// Len returns the number of stored blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Size returns the total payload bytes held.
func (s *BlobStore) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}

// Sweep revokes blobs older than the TTL and returns how many were dropped.
func (s *BlobStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	expired := 0
	kept := s.order[:0]
	for _, id := range s.order {
		b, ok := s.blobs[id]
		if !ok {
			continue
		}
		if b.CreatedAt.After(cutoff) {
			kept = append(kept, id)
			continue
		}
		s.removeLocked(id)
		expired++
	}
	s.order = kept

	if expired > 0 {
		s.logger.Debug("blobs expired", zap.Int("count", expired), zap.Int64("bytes", s.bytes))
	}
	return expired
}

// Run sweeps expired blobs every ttl/2 until ctx ends.
func (s *BlobStore) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}

	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
