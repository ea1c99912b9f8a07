package buffer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btc-metrics/internal/domain"
)

func sample(ts string, height int64, price float64) domain.MetricSample {
	return domain.MetricSample{Timestamp: ts, BlockHeight: height, BTCPrice: price}
}

func seq(from, to int) []domain.MetricSample {
	var out []domain.MetricSample
	for i := from; i <= to; i++ {
		out = append(out, sample(fmt.Sprintf("t%d", i), int64(800000+i), float64(60000+i)))
	}
	return out
}

func TestMerge_EmptyWindow(t *testing.T) {
	s := []domain.MetricSample{
		sample("t1", 800000, 60000),
		sample("t2", 800001, 60010),
	}

	got := Merge(Window{}, s)

	assert.Equal(t, []string{"t1", "t2"}, got.Timestamps())
	assert.Equal(t, Window(s), got)
}

func TestMerge_DuplicateKeepsEarliest(t *testing.T) {
	w := Window{sample("t1", 800000, 60000)}
	s := []domain.MetricSample{
		sample("t1", 800000, 99999),
		sample("t2", 800001, 60010),
	}

	got := Merge(w, s)

	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].Timestamp)
	assert.Equal(t, 60000.0, got[0].BTCPrice, "the sample already in the window must win")
	assert.Equal(t, "t2", got[1].Timestamp)
	assert.Equal(t, 60010.0, got[1].BTCPrice)
}

func TestMerge_DuplicateInsideSingleFetch(t *testing.T) {
	s := []domain.MetricSample{
		sample("t1", 1, 1),
		sample("t1", 2, 2),
		sample("t2", 3, 3),
	}

	got := Merge(nil, s)

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].BlockHeight)
}

func TestMerge_TruncatesFromFront(t *testing.T) {
	w := Window(seq(1, 10))

	got := Merge(w, seq(11, 11))

	require.Len(t, got, Capacity)
	assert.Equal(t, Window(seq(2, 11)), got)
}

func TestMerge_ReplayIsIdempotent(t *testing.T) {
	w := Window(seq(1, 7))

	got := Merge(w, []domain.MetricSample{
		sample("t3", 0, 0),
		sample("t1", 0, 0),
		sample("t7", 0, 0),
	})

	assert.Equal(t, w, got)
	assert.Equal(t, w, Merge(w, nil))
}

func TestMerge_BoundedSize(t *testing.T) {
	cases := []struct {
		name    string
		current Window
		samples []domain.MetricSample
		want    int
	}{
		{"both empty", nil, nil, 0},
		{"large fetch", nil, seq(1, 50), Capacity},
		{"full window plus overlap", Window(seq(1, 10)), seq(5, 30), Capacity},
		{"partial", Window(seq(1, 3)), seq(4, 6), 6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.current, tc.samples)
			assert.Len(t, got, tc.want)
			assert.LessOrEqual(t, len(got), Capacity)
		})
	}
}

func TestMerge_PreservesArrivalOrder(t *testing.T) {
	w := Window{sample("2024-01-01T00:00:20Z", 3, 3)}
	s := []domain.MetricSample{
		sample("2024-01-01T00:00:10Z", 2, 2),
		sample("2024-01-01T00:00:00Z", 1, 1),
	}

	got := Merge(w, s)

	assert.Equal(t, []string{
		"2024-01-01T00:00:20Z",
		"2024-01-01T00:00:10Z",
		"2024-01-01T00:00:00Z",
	}, got.Timestamps(), "order follows arrival, not timestamp value")
}

func TestMerge_ExactStringKey(t *testing.T) {
	// Same instant, different spelling: both kept.
	s := []domain.MetricSample{
		sample("2024-01-01T00:00:00Z", 1, 1),
		sample("2024-01-01T00:00:00+00:00", 1, 1),
	}

	assert.Len(t, Merge(nil, s), 2)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	w := make(Window, 0, 20)
	w = append(w, seq(1, 3)...)
	s := seq(4, 5)

	got := Merge(w, s)
	got[0].BTCPrice = -1

	assert.Equal(t, 60001.0, w[0].BTCPrice)
	assert.Len(t, w, 3)
	assert.Equal(t, "t4", s[0].Timestamp)
}

func TestMergeN_NonPositiveCapacity(t *testing.T) {
	assert.Empty(t, MergeN(Window(seq(1, 3)), seq(4, 5), 0))
	assert.Empty(t, MergeN(nil, seq(1, 2), -1))
}

func TestWindow_Accessors(t *testing.T) {
	w := Window{sample("a", 10, 1.5), sample("b", 11, 2.5)}

	assert.Equal(t, []float64{1.5, 2.5}, w.Prices())
	assert.Equal(t, []float64{10, 11}, w.Heights())

	last, ok := w.Latest()
	assert.True(t, ok)
	assert.Equal(t, "b", last.Timestamp)

	_, ok = Window{}.Latest()
	assert.False(t, ok)
}
