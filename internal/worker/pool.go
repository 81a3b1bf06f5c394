package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"message-sender/internal/model"
	"message-sender/internal/pool"
	"message-sender/internal/transport"
)

// Range is a half-open interval [Start, End) of record indexes.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// WorkerCount is how many workers a batch of total records gets:
// total/batchSize, capped at max, and never zero for a non-empty batch.
func WorkerCount(total, batchSize, max int) int {
	if total < 1 {
		return 0
	}
	if batchSize < 1 {
		batchSize = 1
	}
	n := total / batchSize
	if max > 0 && n > max {
		n = max
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Partition splits total records into workers contiguous ranges of
// total/workers records each; the last range also takes the remainder.
func Partition(total, workers int) []Range {
	if total < 1 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	per := total / workers
	ranges := make([]Range, workers)
	for i := range ranges {
		start := i * per
		end := start + per
		if i == workers-1 {
			end = total
		}
		ranges[i] = Range{Start: start, End: end}
	}
	return ranges
}

// Summary is the aggregate outcome of one Dispatch.
type Summary struct {
	Workers    int
	StartedAt  time.Time
	FinishedAt time.Time
	Elapsed    time.Duration
	Stats      []Stats
	Failed     int
}

func (s Summary) Sent() int {
	total := 0
	for _, st := range s.Stats {
		total += st.Sent
	}
	return total
}

func (s Summary) Received() int {
	total := 0
	for _, st := range s.Stats {
		total += st.Received
	}
	return total
}

type PoolOptions struct {
	BatchSize  int
	MaxWorkers int
	BufferSize int
}

// Pool fans a batch out over workers and joins them.
type Pool struct {
	dialer  transport.Dialer
	opts    PoolOptions
	buffers *pool.BufferPool
	log     logrus.FieldLogger
}

func NewPool(dialer transport.Dialer, opts PoolOptions, log logrus.FieldLogger) *Pool {
	if opts.BufferSize < 1 {
		opts.BufferSize = 1024
	}
	return &Pool{
		dialer:  dialer,
		opts:    opts,
		buffers: pool.NewBufferPool(opts.BufferSize),
		log:     log,
	}
}

// Dispatch runs one worker per partition and waits for every one of them.
// Worker failures do not stop the other workers; they are joined into the
// returned error once all workers have finished. emit is called from the
// worker goroutines and must be safe for concurrent use.
func (p *Pool) Dispatch(ctx context.Context, records []model.Record, emit func(model.Result)) (Summary, error) {
	workers := WorkerCount(len(records), p.opts.BatchSize, p.opts.MaxWorkers)
	ranges := Partition(len(records), workers)

	summary := Summary{
		Workers: len(ranges),
		Stats:   make([]Stats, len(ranges)),
	}
	errs := make([]error, len(ranges))

	p.log.WithFields(logrus.Fields{
		"messages": len(records),
		"workers":  len(ranges),
	}).Info("[Pool] Dispatching batch")

	summary.StartedAt = time.Now()

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func(i int, r Range) {
			defer wg.Done()

			w := &Worker{ID: i, Dialer: p.dialer, Buffers: p.buffers, Log: p.log}
			stats, err := w.Run(ctx, records[r.Start:r.End], emit)
			stats.Range = r
			if err != nil {
				stats.Err = err.Error()
				errs[i] = fmt.Errorf("worker %d %s: %w", i, r, err)
				p.log.WithFields(logrus.Fields{"worker": i, "range": r.String()}).
					WithError(err).Error("[Pool] Worker aborted")
			}
			summary.Stats[i] = stats
		}(i, r)
	}
	wg.Wait()

	summary.FinishedAt = time.Now()
	summary.Elapsed = summary.FinishedAt.Sub(summary.StartedAt)
	for _, err := range errs {
		if err != nil {
			summary.Failed++
		}
	}

	return summary, errors.Join(errs...)
}
