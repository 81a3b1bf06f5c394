package manager

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-sender/internal/config"
	"message-sender/internal/echo"
	"message-sender/internal/generator"
	"message-sender/internal/logging"
	"message-sender/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]model.Run
	results map[uuid.UUID][]model.Result
}

func newMemStore() *memStore {
	return &memStore{runs: map[uuid.UUID]model.Run{}, results: map[uuid.UUID][]model.Result{}}
}

func (s *memStore) InsertRun(_ context.Context, r *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = *r
	return nil
}

func (s *memStore) UpdateRun(_ context.Context, r *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; !ok {
		return errors.New("missing")
	}
	s.runs[r.ID] = *r
	return nil
}

func (s *memStore) InsertResults(_ context.Context, id uuid.UUID, results []model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = results
	return nil
}

type memPublisher struct {
	mu   sync.Mutex
	runs []model.Run
}

func (p *memPublisher) PublishRun(r *model.Run) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, *r)
	return nil
}

func startEcho(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go echo.NewServer(config.FramingRaw, logging.Discard()).Serve(ctx, ln)

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p
}

func testConfig(host string, port int) *config.Config {
	cfg := config.Default()
	cfg.Target.Address = host
	cfg.Target.Port = port
	cfg.Timeouts.Read = 5 * time.Second
	return cfg
}

func TestExecuteCompletesRun(t *testing.T) {
	host, port := startEcho(t)
	store := newMemStore()
	pub := &memPublisher{}
	var console bytes.Buffer

	m := NewRunManager(Options{
		Config:    testConfig(host, port),
		Store:     store,
		Publisher: pub,
		Console:   &console,
		Log:       logging.Discard(),
	})

	run, err := m.Execute(context.Background(), model.RunRequest{MessageCount: 5})
	require.NoError(t, err)

	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 5, run.MessageCount)
	assert.Equal(t, 5, run.Workers)
	assert.Equal(t, 5, run.Sent)
	assert.Equal(t, 5, run.Received)
	assert.Equal(t, 5, run.Latency.Count)
	assert.GreaterOrEqual(t, run.Elapsed, run.Latency.Max)
	assert.Equal(t, net.JoinHostPort(host, strconv.Itoa(port)), run.Target)

	stored, ok := store.runs[run.ID]
	require.True(t, ok)
	assert.Equal(t, model.RunCompleted, stored.Status)
	assert.Len(t, store.results[run.ID], 5)

	require.Len(t, pub.runs, 1)
	assert.Equal(t, run.ID, pub.runs[0].ID)

	got, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.False(t, m.Busy())

	assert.Contains(t, console.String(), "Sending 5 messages...")
	assert.Contains(t, console.String(), "Latency for message 4:")
}

func TestExecuteRejectsInvalidCount(t *testing.T) {
	m := NewRunManager(Options{Config: config.Default(), Log: logging.Discard()})

	_, err := m.Execute(context.Background(), model.RunRequest{MessageCount: 0})
	assert.ErrorIs(t, err, generator.ErrInvalidCount)
	assert.Empty(t, m.List())
	assert.False(t, m.Busy())
}

func TestExecuteMarksFailedRun(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	store := newMemStore()
	m := NewRunManager(Options{Config: testConfig(host, port), Store: store, Log: logging.Discard()})

	run, err := m.Execute(context.Background(), model.RunRequest{MessageCount: 4})
	require.Error(t, err)
	require.NotNil(t, run)

	assert.Equal(t, model.RunFailed, run.Status)
	assert.Equal(t, 4, run.FailedWorkers)
	assert.Zero(t, run.Received)
	assert.NotEmpty(t, run.Error)
	assert.Equal(t, model.RunFailed, store.runs[run.ID].Status)
}

func TestStartRunsInBackground(t *testing.T) {
	host, port := startEcho(t)
	m := NewRunManager(Options{Config: testConfig(host, port), Log: logging.Discard()})

	id, err := m.Start(context.Background(), model.RunRequest{MessageCount: 3})
	require.NoError(t, err)
	m.Wait()

	run, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 3, run.Received)
}

func TestStartWhileBusy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// accepts but never replies, so the first run stays in progress
	hold := make(chan struct{})
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		<-hold
		c.Close()
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	m := NewRunManager(Options{Config: testConfig(host, port), Log: logging.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	first, err := m.Start(ctx, model.RunRequest{MessageCount: 1})
	require.NoError(t, err)
	assert.True(t, m.Busy())

	_, err = m.Start(context.Background(), model.RunRequest{MessageCount: 1})
	assert.ErrorIs(t, err, ErrBusy)

	cancel()
	close(hold)
	m.Wait()

	run, err := m.Get(first)
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, run.Status)
	assert.False(t, m.Busy())
}

func TestGetUnknownRun(t *testing.T) {
	m := NewRunManager(Options{Config: config.Default(), Log: logging.Discard()})
	_, err := m.Get(uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListNewestFirst(t *testing.T) {
	host, port := startEcho(t)
	m := NewRunManager(Options{Config: testConfig(host, port), Log: logging.Discard()})

	a, err := m.Execute(context.Background(), model.RunRequest{MessageCount: 1})
	require.NoError(t, err)
	b, err := m.Execute(context.Background(), model.RunRequest{MessageCount: 2})
	require.NoError(t, err)

	runs := m.List()
	require.Len(t, runs, 2)
	assert.Equal(t, b.ID, runs[0].ID)
	assert.Equal(t, a.ID, runs[1].ID)
}

func silentListener(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestExecuteWaitsForActiveRun(t *testing.T) {
	silentHost, silentPort := silentListener(t)
	echoHost, echoPort := startEcho(t)
	m := NewRunManager(Options{Config: testConfig(silentHost, silentPort), Log: logging.Discard()})

	runCtx, stopRun := context.WithCancel(context.Background())
	first, err := m.Start(runCtx, model.RunRequest{MessageCount: 1})
	require.NoError(t, err)

	done := make(chan *model.Run, 1)
	go func() {
		run, _ := m.Execute(context.Background(), model.RunRequest{Address: echoHost, Port: echoPort, MessageCount: 2})
		done <- run
	}()

	select {
	case <-done:
		t.Fatal("second run started while the first held the slot")
	case <-time.After(100 * time.Millisecond):
	}

	stopRun()
	select {
	case run := <-done:
		require.NotNil(t, run)
		assert.Equal(t, model.RunCompleted, run.Status)
		assert.Equal(t, 2, run.Received)
	case <-time.After(5 * time.Second):
		t.Fatal("second run never started")
	}
	m.Wait()

	prev, err := m.Get(first)
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, prev.Status)
	assert.False(t, m.Busy())
}

func TestExecuteStopsWaitingWhenContextEnds(t *testing.T) {
	host, port := silentListener(t)
	m := NewRunManager(Options{Config: testConfig(host, port), Log: logging.Discard()})

	runCtx, stopRun := context.WithCancel(context.Background())
	_, err := m.Start(runCtx, model.RunRequest{MessageCount: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	run, err := m.Execute(ctx, model.RunRequest{MessageCount: 1})
	assert.Nil(t, run)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, m.List(), 1)

	stopRun()
	m.Wait()
	assert.False(t, m.Busy())
}

func TestStartRecordsOperator(t *testing.T) {
	host, port := startEcho(t)
	m := NewRunManager(Options{Config: testConfig(host, port), Log: logging.Discard()})

	id, err := m.Start(context.Background(), model.RunRequest{MessageCount: 1, Operator: "dana"})
	require.NoError(t, err)
	m.Wait()

	run, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "dana", run.Operator)
}
