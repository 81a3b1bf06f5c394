// internal/report/stats.go
package report

import (
	"slices"
	"time"

	"message-sender/internal/model"
)

// Summarize computes latency statistics over results. Percentiles use the
// nearest-rank method on the sorted latencies.
func Summarize(results []model.Result) model.LatencyStats {
	if len(results) == 0 {
		return model.LatencyStats{}
	}

	lat := make([]time.Duration, len(results))
	var total time.Duration
	for i, r := range results {
		lat[i] = r.Latency
		total += r.Latency
	}
	slices.Sort(lat)

	n := len(lat)
	return model.LatencyStats{
		Count: n,
		Min:   lat[0],
		Mean:  total / time.Duration(n),
		P50:   lat[rank(n, 50, 100)],
		P95:   lat[rank(n, 95, 100)],
		P99:   lat[rank(n, 99, 100)],
		Max:   lat[n-1],
	}
}

func rank(n, num, den int) int {
	r := (n*num + den - 1) / den
	if r < 1 {
		r = 1
	}
	return r - 1
}
