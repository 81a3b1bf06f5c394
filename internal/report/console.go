// internal/report/console.go
package report

import (
	"fmt"
	"io"
	"time"

	"message-sender/internal/model"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// Console writes the operator-facing lines of a run.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Start(at time.Time, count int) {
	fmt.Fprintf(c.w, "[%s] Sending %d messages...\n", at.Format(timestampLayout), count)
}

func (c *Console) Result(r model.Result) {
	fmt.Fprintf(c.w, "[%s] Reply received: %s\n", r.ReceivedAt.Format(timestampLayout), r.Reply)
	fmt.Fprintf(c.w, "Latency for message %d: %s ms.\n", r.RecordID, millis(r.Latency))
}

func (c *Console) Finish(run *model.Run) {
	fmt.Fprintf(c.w, "[%s] Sending %d messages finished.\n", run.FinishedAt.Format(timestampLayout), run.MessageCount)
	fmt.Fprintf(c.w, "Sending %d messages took %s ms.\n", run.MessageCount, millis(run.Elapsed))

	s := run.Latency
	if s.Count > 0 {
		fmt.Fprintf(c.w, "Replies: %d/%d, workers: %d (failed %d)\n", run.Received, run.MessageCount, run.Workers, run.FailedWorkers)
		fmt.Fprintf(c.w, "Latency ms: min %s, mean %s, p50 %s, p95 %s, p99 %s, max %s\n",
			millis(s.Min), millis(s.Mean), millis(s.P50), millis(s.P95), millis(s.P99), millis(s.Max))
	}
	if run.Error != "" {
		fmt.Fprintf(c.w, "Errors: %s\n", run.Error)
	}
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.4f", float64(d)/float64(time.Millisecond))
}
