// Package buffer keeps the bounded window of recent samples shown by the dashboard.
package buffer

import "btc-metrics/internal/domain"

// Capacity is the number of samples retained in a Window.
const Capacity = 10

// Window is an arrival-ordered list of samples with unique timestamps.
type Window []domain.MetricSample

// Merge appends samples to current, drops repeated timestamps (the earlier
// entry wins) and keeps only the last Capacity entries.
func Merge(current Window, samples []domain.MetricSample) Window {
	return MergeN(current, samples, Capacity)
}

// MergeN is Merge with an explicit capacity. The inputs are never modified
// and the returned Window does not share memory with current.
func MergeN(current Window, samples []domain.MetricSample, capacity int) Window {
	if capacity <= 0 {
		return Window{}
	}

	seen := make(map[string]struct{}, len(current)+len(samples))
	merged := make(Window, 0, len(current)+len(samples))

	add := func(s domain.MetricSample) {
		if _, ok := seen[s.Timestamp]; ok {
			return
		}
		seen[s.Timestamp] = struct{}{}
		merged = append(merged, s)
	}

	for _, s := range current {
		add(s)
	}
	for _, s := range samples {
		add(s)
	}

	if len(merged) > capacity {
		merged = merged[len(merged)-capacity:]
	}

	out := make(Window, len(merged))
	copy(out, merged)
	return out
}

// Timestamps lists the window's keys in order.
func (w Window) Timestamps() []string {
	ts := make([]string, len(w))
	for i, s := range w {
		ts[i] = s.Timestamp
	}
	return ts
}

// Prices returns the BTC prices in window order, for charting.
func (w Window) Prices() []float64 {
	out := make([]float64, len(w))
	for i, s := range w {
		out[i] = s.BTCPrice
	}
	return out
}

// Heights returns the block heights in window order as float64, for charting.
func (w Window) Heights() []float64 {
	out := make([]float64, len(w))
	for i, s := range w {
		out[i] = float64(s.BlockHeight)
	}
	return out
}

// Latest returns the last sample of the window, if any.
func (w Window) Latest() (domain.MetricSample, bool) {
	if len(w) == 0 {
		return domain.MetricSample{}, false
	}
	return w[len(w)-1], true
}
