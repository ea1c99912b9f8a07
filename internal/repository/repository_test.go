package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btc-metrics/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store
}

func ts(base time.Time, offset int) string {
	return base.Add(time.Duration(offset) * 20 * time.Second).UTC().Format(time.RFC3339)
}

func TestSQLiteStore_Init(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.db")

	store := NewSQLiteStore(path)
	assert.NoError(t, store.Init(), "Init should not return an error")
	assert.NoError(t, store.Close())

	// Re-opening an existing database keeps the schema.
	store = NewSQLiteStore(path)
	assert.NoError(t, store.Init())
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_StoreSample(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sample := domain.MetricSample{
		BlockHeight: 840000,
		BTCPrice:    63512.25,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	require.NoError(t, store.StoreSample(ctx, sample))

	got, err := store.LatestSamples(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sample, got[0])

	err = store.StoreSample(ctx, sample)
	assert.ErrorIs(t, err, ErrDuplicateTimestamp, "timestamps are unique")
}

func TestSQLiteStore_LatestSamples(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

	var stored []domain.MetricSample
	for i := 0; i < 60; i++ {
		s := domain.MetricSample{BlockHeight: int64(840000 + i), BTCPrice: float64(64000 + i), Timestamp: ts(base, i)}
		require.NoError(t, store.StoreSample(ctx, s))
		stored = append(stored, s)
	}

	// case 1: newest 50, oldest first
	got, err := store.LatestSamples(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, stored[10:], got)

	// case 2: small limit
	got, err = store.LatestSamples(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, stored[57:], got)

	// case 3: non-positive limit falls back to the maximum
	got, err = store.LatestSamples(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 60)

	// case 4: cancelled context
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.LatestSamples(cctx, 5)
	assert.Error(t, err)
}

func TestSQLiteStore_LatestSamplesEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LatestSamples(context.Background(), 50)
	require.NoError(t, err)
	assert.NotNil(t, got, "empty result encodes as [] not null")
	assert.Empty(t, got)
}

func TestSQLiteStore_GetSamples(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

	var stored []domain.MetricSample
	for i := 0; i < 6; i++ {
		s := domain.MetricSample{BlockHeight: int64(840000 + i), BTCPrice: float64(10 * (i + 1)), Timestamp: ts(base, i)}
		require.NoError(t, store.StoreSample(ctx, s))
		stored = append(stored, s)
	}

	cases := []struct {
		name          string
		start, end    string
		limit, offset int
		want          []domain.MetricSample
	}{
		{"full range", ts(base, -10), ts(base, 10), 0, 0, stored},
		{"partial range", ts(base, 1), ts(base, 4), 0, 0, stored[1:5]},
		{"empty range", ts(base, 20), ts(base, 30), 0, 0, []domain.MetricSample{}},
		{"limit 2 offset 0", ts(base, -10), ts(base, 10), 2, 0, stored[0:2]},
		{"limit 2 offset 2", ts(base, -10), ts(base, 10), 2, 2, stored[2:4]},
		{"limit 3 offset 3", ts(base, -10), ts(base, 10), 3, 3, stored[3:6]},
		{"offset beyond data", ts(base, -10), ts(base, 10), 2, 10, []domain.MetricSample{}},
		{"negative offset", ts(base, -10), ts(base, 10), 2, -5, stored[0:2]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.GetSamples(ctx, tc.start, tc.end, tc.limit, tc.offset)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		got, err := store.GetSamples(cctx, ts(base, -10), ts(base, 10), 0, 0)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "context canceled")
		assert.Len(t, got, 0)
	})
}

func TestSQLiteStore_ConcurrentWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			done <- store.StoreSample(ctx, domain.MetricSample{
				BlockHeight: int64(i),
				BTCPrice:    1,
				Timestamp:   fmt.Sprintf("2024-01-01T00:00:%02dZ", i),
			})
		}(i)
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-done)
	}

	got, err := store.LatestSamples(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}
