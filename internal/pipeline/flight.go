package pipeline

import (
	"context"
	"sync"

	"github.com/fomo-labs/docproof/internal/extract"
)

// flightGroup coalesces concurrent extractions of the same fingerprint into
// one engine invocation. The work runs on a context detached from the first
// caller so that caller's cancellation cannot fail every waiter.
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*call
}

type call struct {
	done chan struct{}
	res  *extract.Result
	err  error
}

func newFlightGroup() *flightGroup {
	return &flightGroup{calls: map[string]*call{}}
}

// do runs fn once per key among concurrent callers and hands every caller
// the same result. Waiters honor their own context: a caller that gives up
// stops waiting without affecting the shared work.
func (g *flightGroup) do(ctx context.Context, key string, fn func(ctx context.Context) (*extract.Result, error)) (*extract.Result, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.res, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	go func() {
		c.res, c.err = fn(context.WithoutCancel(ctx))
		close(c.done)

		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
	}()

	select {
	case <-c.done:
		return c.res, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
