package domain_test

import (
	"testing"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestCacheEntry(t *testing.T) {
	t.Parallel()

	storedAt := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	entry := domain.CacheEntry[string]{Data: "teams", StoredAt: storedAt, TTL: 30 * time.Minute}

	require.Equal(t, storedAt.Add(30*time.Minute), entry.ExpiresAt())

	for _, c := range []struct {
		name  string
		at    time.Time
		fresh bool
	}{
		{name: "when stored", at: storedAt, fresh: true},
		{name: "before expiry", at: storedAt.Add(29 * time.Minute), fresh: true},
		{name: "at expiry", at: storedAt.Add(30 * time.Minute), fresh: true},
		{name: "after expiry", at: storedAt.Add(31 * time.Minute), fresh: false},
	} {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, c.fresh, entry.FreshAt(c.at))
		})
	}
}
