package worker

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-sender/internal/config"
	"message-sender/internal/echo"
	"message-sender/internal/generator"
	"message-sender/internal/logging"
	"message-sender/internal/model"
	"message-sender/internal/transport"
)

func TestWorkerCount(t *testing.T) {
	cases := []struct {
		total, batch, max, want int
	}{
		{0, 1, 10, 0},
		{1, 1, 10, 1},
		{10, 1, 1000000, 10},
		{10, 1, 4, 4},
		{10, 3, 100, 3},
		{2, 5, 100, 1},
		{10, 0, 100, 10},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, WorkerCount(c.total, c.batch, c.max), "total=%d batch=%d max=%d", c.total, c.batch, c.max)
	}
}

func TestPartitionCoversEveryRecordOnce(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for workers := 1; workers <= total; workers++ {
			ranges := Partition(total, workers)
			require.Len(t, ranges, workers)

			next := 0
			per := total / workers
			for i, r := range ranges {
				assert.Equal(t, next, r.Start, "total=%d workers=%d", total, workers)
				if i < len(ranges)-1 {
					assert.Equal(t, per, r.Len())
				}
				next = r.End
			}
			assert.Equal(t, total, next)
			assert.Equal(t, per+total%workers, ranges[len(ranges)-1].Len())
		}
	}
}

func TestPartitionEdges(t *testing.T) {
	assert.Nil(t, Partition(0, 3))
	assert.Equal(t, []Range{{0, 1}, {1, 2}}, Partition(2, 5))
	assert.Equal(t, []Range{{0, 7}}, Partition(7, 0))
}

// recordingServer echoes raw reads and remembers what each connection sent.
type recordingServer struct {
	mu    sync.Mutex
	conns int
	got   []string
}

func (s *recordingServer) start(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns++
			s.mu.Unlock()
			go func() {
				defer c.Close()
				buf := make([]byte, 1024)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					s.mu.Lock()
					s.got = append(s.got, string(buf[:n]))
					s.mu.Unlock()
					if _, err := c.Write(buf[:n]); err != nil {
						return
					}
				}
			}()
		}
	}()
	return ln.Addr().String()
}

func newTestPool(t *testing.T, addr, framing string, maxWorkers int) *Pool {
	t.Helper()
	d, err := transport.NewDialer(transport.Options{
		Transport:   config.TransportTCP,
		Framing:     framing,
		Addr:        addr,
		DialTimeout: time.Second,
		ReadTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return NewPool(d, PoolOptions{BatchSize: 1, MaxWorkers: maxWorkers, BufferSize: 1024}, logging.Discard())
}

type collected struct {
	mu      sync.Mutex
	results []model.Result
}

func (c *collected) emit(r model.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func TestDispatchThreeRecordsOneWorker(t *testing.T) {
	srv := &recordingServer{}
	addr := srv.start(t)

	records, err := generator.Generate(3)
	require.NoError(t, err)

	var out collected
	summary, err := newTestPool(t, addr, config.FramingRaw, 1).Dispatch(context.Background(), records, out.emit)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Workers)
	assert.Equal(t, 3, summary.Sent())
	assert.Equal(t, 3, summary.Received())
	assert.Zero(t, summary.Failed)

	require.Len(t, out.results, 3)
	for i, r := range out.results {
		assert.Equal(t, i, r.RecordID)
		assert.Equal(t, string(records[i].Payload), r.Reply)
		assert.Equal(t, len(records[i].Payload), r.ReplySize)
		assert.False(t, r.ReceivedAt.Before(r.SentAt))
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, 1, srv.conns)
	require.Len(t, srv.got, 3)
	assert.JSONEq(t, `{"PlayerId":"player1","Value1":"example_1","Value2":"example_1"}`, srv.got[1])
}

func TestDispatchElapsedCoversSlowestWorker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go echo.NewServer(config.FramingLength, logging.Discard()).Serve(ctx, ln)

	records, err := generator.Generate(40)
	require.NoError(t, err)

	var out collected
	summary, err := newTestPool(t, ln.Addr().String(), config.FramingLength, 4).Dispatch(context.Background(), records, out.emit)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Workers)
	assert.Len(t, out.results, 40)
	assert.GreaterOrEqual(t, summary.Elapsed, time.Duration(0))

	var slowest time.Duration
	seen := make(map[int]bool)
	for _, st := range summary.Stats {
		slowest = max(slowest, st.Busy)
		assert.Equal(t, 10, st.Sent)
		assert.Equal(t, 10, st.Range.Len())
	}
	for _, r := range out.results {
		assert.False(t, seen[r.RecordID])
		seen[r.RecordID] = true
	}
	assert.GreaterOrEqual(t, summary.Elapsed, slowest)
}

func TestDispatchDialFailureJoinsErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	records, err := generator.Generate(6)
	require.NoError(t, err)

	var out collected
	summary, err := newTestPool(t, addr, config.FramingRaw, 3).Dispatch(context.Background(), records, out.emit)
	require.Error(t, err)

	assert.Equal(t, 3, summary.Failed)
	assert.Zero(t, summary.Sent())
	assert.Empty(t, out.results)
	for _, st := range summary.Stats {
		assert.NotEmpty(t, st.Err)
	}
	assert.Contains(t, err.Error(), "worker 0 [0,2)")
	assert.Contains(t, err.Error(), "worker 2 [4,6)")
}

func TestDispatchFailedWorkerStopsOnlyItsSlice(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// replies to the first message of each connection, then hangs up
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				buf := make([]byte, 1024)
				n, err := c.Read(buf)
				if err != nil {
					return
				}
				c.Write(buf[:n])
			}()
		}
	}()

	records, err := generator.Generate(6)
	require.NoError(t, err)

	var out collected
	summary, err := newTestPool(t, ln.Addr().String(), config.FramingRaw, 2).Dispatch(context.Background(), records, out.emit)
	require.Error(t, err)

	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.Received())
	assert.Len(t, out.results, 2)
	for _, st := range summary.Stats {
		assert.Equal(t, 1, st.Received)
	}
}

func TestDispatchCancelUnblocksRead(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	hold := make(chan struct{})
	defer close(hold)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		<-hold
	}()

	d, err := transport.NewDialer(transport.Options{Addr: ln.Addr().String()})
	require.NoError(t, err)
	p := NewPool(d, PoolOptions{BatchSize: 1, MaxWorkers: 1}, logging.Discard())

	records, err := generator.Generate(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := p.Dispatch(ctx, records, func(model.Result) {})
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not return after cancel")
	}
}
