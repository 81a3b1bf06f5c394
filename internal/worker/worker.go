package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"message-sender/internal/metrics"
	"message-sender/internal/model"
	"message-sender/internal/pool"
	"message-sender/internal/transport"
)

// Stats describes what one worker got through before it finished or failed.
type Stats struct {
	WorkerID int           `json:"worker_id"`
	Range    Range         `json:"range"`
	Sent     int           `json:"sent"`
	Received int           `json:"received"`
	Busy     time.Duration `json:"busy"`
	Err      string        `json:"error,omitempty"`
}

// Worker owns one connection and sends its records strictly in order,
// waiting for a reply after each one.
type Worker struct {
	ID      int
	Dialer  transport.Dialer
	Buffers *pool.BufferPool
	Log     logrus.FieldLogger
}

// Run dials once and walks records. The first connection error aborts the
// remaining records; there is no retry.
func (w *Worker) Run(ctx context.Context, records []model.Record, emit func(model.Result)) (Stats, error) {
	stats := Stats{WorkerID: w.ID}
	if len(records) > 0 {
		stats.Range = Range{Start: records[0].ID, End: records[len(records)-1].ID + 1}
	}
	log := w.Log.WithFields(logrus.Fields{"worker": w.ID, "range": stats.Range.String()})

	conn, err := w.Dialer.Dial(ctx)
	if err != nil {
		metrics.WorkerErrors.WithLabelValues("dial").Inc()
		return stats, err
	}
	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	// unblocks a pending read when the run is cancelled
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		if stop() {
			conn.Close()
		}
	}()

	buf := w.Buffers.GetBuffer()
	defer w.Buffers.PutBuffer(buf)

	log.Debug("[Worker] connected")
	for _, rec := range records {
		sentAt := time.Now()
		if err := conn.Send(rec.Payload); err != nil {
			metrics.WorkerErrors.WithLabelValues("write").Inc()
			return stats, fmt.Errorf("send message %d: %w", rec.ID, err)
		}
		stats.Sent++
		metrics.MessagesSent.Inc()

		n, err := conn.Receive(buf)
		if err != nil {
			metrics.WorkerErrors.WithLabelValues("read").Inc()
			return stats, fmt.Errorf("read reply to message %d: %w", rec.ID, err)
		}
		receivedAt := time.Now()
		latency := receivedAt.Sub(sentAt)

		stats.Received++
		stats.Busy += latency
		metrics.RepliesReceived.Inc()
		metrics.RoundTrip.Observe(latency.Seconds())

		emit(model.Result{
			RecordID:   rec.ID,
			WorkerID:   w.ID,
			SentAt:     sentAt,
			ReceivedAt: receivedAt,
			Latency:    latency,
			ReplySize:  n,
			Reply:      strings.ToValidUTF8(string(buf[:n]), "\uFFFD"),
		})
	}
	log.WithField("sent", stats.Sent).Debug("[Worker] slice done")
	return stats, nil
}
