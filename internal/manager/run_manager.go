// internal/manager/run_manager.go
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"message-sender/internal/config"
	"message-sender/internal/generator"
	"message-sender/internal/metrics"
	"message-sender/internal/model"
	"message-sender/internal/report"
	"message-sender/internal/transport"
	"message-sender/internal/worker"
)

var (
	ErrBusy        = errors.New("a run is already in progress")
	ErrRunNotFound = errors.New("run not found")
)

// RunStore persists runs and their round trips.
type RunStore interface {
	InsertRun(ctx context.Context, r *model.Run) error
	UpdateRun(ctx context.Context, r *model.Run) error
	InsertResults(ctx context.Context, runID uuid.UUID, results []model.Result) error
}

// RunPublisher announces finished runs.
type RunPublisher interface {
	PublishRun(r *model.Run) error
}

type Options struct {
	Config    *config.Config
	Store     RunStore     // optional
	Publisher RunPublisher // optional
	Console   io.Writer    // optional, receives the per-message lines
	Log       logrus.FieldLogger
}

// RunManager executes batches one at a time and remembers their outcome.
type RunManager struct {
	cfg       *config.Config
	store     RunStore
	publisher RunPublisher
	console   *report.Console
	log       logrus.FieldLogger

	mu   sync.RWMutex
	runs map[uuid.UUID]*model.Run
	// holds a token while a run is active
	slot chan struct{}
	wg   sync.WaitGroup
}

func NewRunManager(opts Options) *RunManager {
	m := &RunManager{
		cfg:       opts.Config,
		store:     opts.Store,
		publisher: opts.Publisher,
		log:       opts.Log,
		runs:      make(map[uuid.UUID]*model.Run),
		slot:      make(chan struct{}, 1),
	}
	if opts.Console != nil {
		m.console = report.NewConsole(opts.Console)
	}
	return m
}

type prepared struct {
	run     *model.Run
	records []model.Record
	dialer  transport.Dialer
}

// Execute runs one batch to completion, first waiting for an active run to
// finish. The returned run is filled in even when some workers failed; the
// error then joins the worker failures. A nil run means the batch never
// started, either because req is invalid or because ctx ended while waiting.
func (m *RunManager) Execute(ctx context.Context, req model.RunRequest) (*model.Run, error) {
	p, err := m.begin(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, p)
}

// Start runs one batch in the background and returns its id, or ErrBusy if
// a run is active. ctx bounds the run, so callers should not pass a
// request-scoped context.
func (m *RunManager) Start(ctx context.Context, req model.RunRequest) (uuid.UUID, error) {
	p, err := m.begin(ctx, req, false)
	if err != nil {
		return uuid.Nil, err
	}
	id := p.run.ID

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.execute(ctx, p); err != nil {
			m.log.WithField("run_id", id).WithError(err).Warn("[Manager] Background run finished with errors")
		}
	}()
	return id, nil
}

// Wait blocks until every background run has finished.
func (m *RunManager) Wait() {
	m.wg.Wait()
}

// begin validates req and takes the run slot. With wait set it blocks until
// the slot frees up or ctx ends; otherwise it fails fast with ErrBusy.
func (m *RunManager) begin(ctx context.Context, req model.RunRequest, wait bool) (*prepared, error) {
	if req.Address == "" {
		req.Address = m.cfg.Target.Address
	}
	if req.Port == 0 {
		req.Port = m.cfg.Target.Port
	}
	addr := net.JoinHostPort(req.Address, strconv.Itoa(req.Port))

	records, err := generator.Generate(req.MessageCount)
	if err != nil {
		return nil, err
	}

	dialer, err := transport.NewDialer(transport.OptionsFromConfig(m.cfg, addr))
	if err != nil {
		return nil, err
	}

	if wait {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case m.slot <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		select {
		case m.slot <- struct{}{}:
		default:
			return nil, ErrBusy
		}
	}

	// ids are taken once the slot is held so that they sort in start order
	id, err := uuid.NewV7()
	if err != nil {
		<-m.slot
		return nil, fmt.Errorf("new run id: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	run := &model.Run{
		ID:           id,
		Operator:     req.Operator,
		Target:       addr,
		MessageCount: len(records),
		Workers:      worker.WorkerCount(len(records), m.cfg.Dispatch.BatchSize, m.cfg.Dispatch.MaxWorkers),
		Status:       model.RunRunning,
		StartedAt:    time.Now(),
	}
	m.runs[id] = run

	return &prepared{run: run, records: records, dialer: dialer}, nil
}

func (m *RunManager) execute(ctx context.Context, p *prepared) (*model.Run, error) {
	defer func() { <-m.slot }()

	m.mu.RLock()
	run := *p.run
	m.mu.RUnlock()

	log := m.log.WithFields(logrus.Fields{"run_id": run.ID, "target": run.Target})

	if m.store != nil {
		if err := m.store.InsertRun(ctx, &run); err != nil {
			log.WithError(err).Warn("[Manager] Failed to store run")
		}
	}

	var handlers []func(model.Result)
	if m.console != nil {
		m.console.Start(run.StartedAt, run.MessageCount)
		handlers = append(handlers, m.console.Result)
	}
	collector := report.NewCollector(min(run.Workers, 1024), handlers...)

	pool := worker.NewPool(p.dialer, worker.PoolOptions{
		BatchSize:  m.cfg.Dispatch.BatchSize,
		MaxWorkers: m.cfg.Dispatch.MaxWorkers,
		BufferSize: m.cfg.Target.BufferSize,
	}, log)
	summary, dispatchErr := pool.Dispatch(ctx, p.records, collector.Emit)
	results := collector.Close()

	run.Workers = summary.Workers
	run.Sent = summary.Sent()
	run.Received = summary.Received()
	run.FailedWorkers = summary.Failed
	run.FinishedAt = summary.FinishedAt
	run.Elapsed = summary.Elapsed
	run.Latency = report.Summarize(results)
	run.Status = model.RunCompleted
	if dispatchErr != nil {
		run.Status = model.RunFailed
		run.Error = dispatchErr.Error()
	}

	m.mu.Lock()
	*p.run = run
	m.mu.Unlock()

	metrics.RunDuration.WithLabelValues(string(run.Status)).Observe(run.Elapsed.Seconds())
	if m.console != nil {
		m.console.Finish(&run)
	}
	log.WithFields(logrus.Fields{
		"sent":     run.Sent,
		"received": run.Received,
		"failed":   run.FailedWorkers,
		"elapsed":  run.Elapsed,
	}).Info("[Manager] Run finished")

	// the run itself is over; persistence must not be cut short by its ctx
	persistCtx := context.WithoutCancel(ctx)
	if m.store != nil {
		if err := m.store.UpdateRun(persistCtx, &run); err != nil {
			log.WithError(err).Warn("[Manager] Failed to update run")
		}
		if err := m.store.InsertResults(persistCtx, run.ID, results); err != nil {
			log.WithError(err).Warn("[Manager] Failed to store results")
		}
	}
	if m.publisher != nil {
		if err := m.publisher.PublishRun(&run); err != nil {
			log.WithError(err).Warn("[Manager] Failed to publish run")
		}
	}

	return &run, dispatchErr
}

// Get returns a snapshot of a run started by this manager
func (m *RunManager) Get(id uuid.UUID) (*model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	cp := *r
	return &cp, nil
}

// List returns snapshots of all runs, newest first
func (m *RunManager) List() []model.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]model.Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, *r)
	}
	slices.SortFunc(runs, func(a, b model.Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return runs
}

// Busy reports whether a run is in progress
func (m *RunManager) Busy() bool {
	return len(m.slot) > 0
}
