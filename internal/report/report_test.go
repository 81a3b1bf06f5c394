package report

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-sender/internal/model"
)

func results(ms ...int) []model.Result {
	out := make([]model.Result, len(ms))
	for i, m := range ms {
		out[i] = model.Result{RecordID: i, Latency: time.Duration(m) * time.Millisecond}
	}
	return out
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, model.LatencyStats{}, Summarize(nil))
}

func TestSummarize(t *testing.T) {
	var ms []int
	for i := 100; i >= 1; i-- {
		ms = append(ms, i)
	}
	s := Summarize(results(ms...))

	assert.Equal(t, 100, s.Count)
	assert.Equal(t, time.Millisecond, s.Min)
	assert.Equal(t, 100*time.Millisecond, s.Max)
	assert.Equal(t, 50*time.Millisecond, s.P50)
	assert.Equal(t, 95*time.Millisecond, s.P95)
	assert.Equal(t, 99*time.Millisecond, s.P99)
	assert.Equal(t, 50500*time.Microsecond, s.Mean)
}

func TestSummarizeSingle(t *testing.T) {
	s := Summarize(results(7))
	assert.Equal(t, 7*time.Millisecond, s.P50)
	assert.Equal(t, 7*time.Millisecond, s.P99)
	assert.Equal(t, s.Min, s.Max)
}

func TestCollectorFansIn(t *testing.T) {
	var seen int
	c := NewCollector(4, func(model.Result) { seen++ })

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				c.Emit(model.Result{RecordID: w*25 + i, WorkerID: w})
			}
		}(w)
	}
	wg.Wait()

	got := c.Close()
	require.Len(t, got, 200)
	assert.Equal(t, 200, seen)

	ids := make(map[int]bool)
	for _, r := range got {
		ids[r.RecordID] = true
	}
	assert.Len(t, ids, 200)
}

func TestConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	at := time.Date(2024, 3, 1, 12, 30, 45, 123000000, time.UTC)
	c.Start(at, 3)
	c.Result(model.Result{RecordID: 2, ReceivedAt: at, Latency: 1500 * time.Microsecond, Reply: `{"ok":true}`})
	c.Finish(&model.Run{
		ID:           uuid.New(),
		MessageCount: 3,
		Workers:      1,
		Received:     3,
		FinishedAt:   at,
		Elapsed:      2 * time.Millisecond,
		Latency:      model.LatencyStats{Count: 3, Min: time.Millisecond, Max: 2 * time.Millisecond},
	})

	out := buf.String()
	assert.Contains(t, out, "[2024-03-01 12:30:45.123] Sending 3 messages...\n")
	assert.Contains(t, out, `[2024-03-01 12:30:45.123] Reply received: {"ok":true}`)
	assert.Contains(t, out, "Latency for message 2: 1.5000 ms.")
	assert.Contains(t, out, "Sending 3 messages took 2.0000 ms.")
	assert.Contains(t, out, "Replies: 3/3, workers: 1 (failed 0)")
	assert.NotContains(t, out, "Errors:")
}
