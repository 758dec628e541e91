package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
	ErrBudgetExhausted        = errors.New("hourly request budget exhausted")
	ErrCacheMiss              = errors.New("cache miss")
	ErrInvalidGame            = errors.New("invalid game")
	ErrSyncInProgress         = errors.New("sync already in progress")
)

// UpstreamError is a non-2xx response from the esports data API
type UpstreamError struct {
	StatusCode int
	Status     string
	Path       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned %d %s", e.Path, e.StatusCode, e.Status)
}

// Retryable is true for server errors and rate limiting
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (e *UpstreamError) Is(target error) bool {
	if target != ErrTemporarilyUnavailable {
		return false
	}
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// SchemaError is an upstream payload that does not have the expected shape
type SchemaError struct {
	Resource string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.Resource, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

type TimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTemporarilyUnavailable
}

// PersistenceError is a failed read or write against the durable store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %s", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a failed upstream call may succeed when repeated
func IsRetryable(err error) bool {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Retryable()
	}
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}
