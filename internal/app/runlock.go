package app

import (
	"context"
	"sync"

	"github.com/Amund211/esportsync/internal/domain"
)

type RunLock interface {
	// Acquire returns domain.ErrSyncInProgress when a run is already in progress
	Acquire(ctx context.Context) (release func(), err error)
}

type localRunLock struct {
	mu sync.Mutex
}

// NewLocalRunLock keeps runs within this process from overlapping
func NewLocalRunLock() RunLock {
	return &localRunLock{}
}

func (l *localRunLock) Acquire(ctx context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	return l.mu.Unlock, nil
}
