package domain

import "time"

type CacheEntry[T any] struct {
	Data     T
	StoredAt time.Time
	TTL      time.Duration
}

func (e CacheEntry[T]) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL)
}

// FreshAt reports whether the entry may be served at the given time.
// An entry is still fresh at exactly StoredAt+TTL.
func (e CacheEntry[T]) FreshAt(now time.Time) bool {
	return !now.After(e.ExpiresAt())
}
