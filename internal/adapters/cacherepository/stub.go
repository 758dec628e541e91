package cacherepository

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
)

// Stub is an in-memory durable tier for development and tests
type Stub struct {
	mu      sync.Mutex
	entries map[string]Entry
	nowFunc func() time.Time
}

func NewStub() *Stub {
	return NewStubWithNowFunc(time.Now)
}

func NewStubWithNowFunc(nowFunc func() time.Time) *Stub {
	return &Stub{
		entries: make(map[string]Entry),
		nowFunc: nowFunc,
	}
}

func (s *Stub) Set(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Payload = slices.Clone(entry.Payload)
	s.entries[entry.Key] = entry
	return nil
}

func (s *Stub) Get(ctx context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !entry.ExpiresAt.After(s.nowFunc()) {
		return Entry{}, domain.ErrCacheMiss
	}
	entry.Payload = slices.Clone(entry.Payload)
	return entry, nil
}

func (s *Stub) Invalidate(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *Stub) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key := range s.entries {
		if rx.MatchString(key) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Stub) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	var removed int64
	for key, entry := range s.entries {
		if !entry.ExpiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}
