// internal/report/collector.go
package report

import "message-sender/internal/model"

// Collector fans results from all workers into a single goroutine, so the
// handlers never run concurrently and need no locking.
type Collector struct {
	in       chan model.Result
	done     chan struct{}
	handlers []func(model.Result)
	results  []model.Result
}

func NewCollector(buffer int, handlers ...func(model.Result)) *Collector {
	c := &Collector{
		in:       make(chan model.Result, buffer),
		done:     make(chan struct{}),
		handlers: handlers,
	}
	go c.collectLoop()
	return c
}

func (c *Collector) collectLoop() {
	defer close(c.done)

	for r := range c.in {
		c.results = append(c.results, r)
		for _, h := range c.handlers {
			h(r)
		}
	}
}

// Emit hands a result to the collector. Safe for concurrent use; must not be
// called after Close.
func (c *Collector) Emit(r model.Result) {
	c.in <- r
}

// Close drains pending results and returns everything collected, in arrival
// order.
func (c *Collector) Close() []model.Result {
	close(c.in)
	<-c.done
	return c.results
}
