// Package coordinator turns a stream of raw search inputs into one
// authoritative result set. Every issued search carries a generation; a
// completion is applied only while its generation is still the latest, so
// results of superseded searches are never observed.
package coordinator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/pkg/catalog"
	"github.com/Astemirdum/book-search/pkg/query"
)

// Store runs one search. Implementations must return promptly once ctx is
// cancelled; Close waits for every in-flight Search.
type Store interface {
	Search(ctx context.Context, q query.Query) ([]catalog.Book, error)
}

type Status int

const (
	Idle Status = iota
	Pending
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is what the presentation layer renders. Books is non-nil in
// Succeeded and Err is set in Failed; both are empty otherwise.
type State struct {
	Status     Status
	Generation uint64
	Query      query.Query
	Books      []catalog.Book
	Err        error
}

type request struct {
	generation uint64
	query      query.Query
}

type Option func(*Coordinator)

// WithAbortSuperseded controls whether starting a search cancels the context
// of the one it supersedes. Enabled by default.
func WithAbortSuperseded(abort bool) Option {
	return func(c *Coordinator) {
		c.abortSuperseded = abort
	}
}

// WithObserver registers fn to be called synchronously on every transition,
// while the coordinator lock is held. fn must not call back into the
// coordinator.
func WithObserver(fn func(State)) Option {
	return func(c *Coordinator) {
		c.observer = fn
	}
}

type Coordinator struct {
	store           Store
	log             *zap.Logger
	abortSuperseded bool
	observer        func(State)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	generation uint64
	observed   bool
	state      State
	abort      context.CancelFunc
	settled    chan struct{}
	closed     bool
	pub        *publisher
}

// New returns an Idle coordinator. Cancelling ctx cancels every in-flight
// store call; Close must still be called to release the coordinator.
func New(ctx context.Context, store Store, log *zap.Logger, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(ctx)
	c := &Coordinator{
		store:           store,
		log:             log.Named("coordinator"),
		abortSuperseded: true,
		ctx:             ctx,
		cancel:          cancel,
		settled:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	close(c.settled)
	return c
}

// Input feeds the full current input text. It starts a search unless the
// normalized text equals the last observed one, and reports whether it did.
func (c *Coordinator) Input(raw string) bool {
	q := query.Parse(raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if c.observed && c.state.Query.Equal(q) {
		return false
	}
	c.observed = true
	c.startLocked(q)
	return true
}

// Retry re-issues the current query under a new generation. It only acts on
// a Failed state.
func (c *Coordinator) Retry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.Status != Failed {
		return false
	}
	c.startLocked(c.state.Query)
	return true
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Updates returns a channel carrying the current state followed by every
// later transition, in order. The channel is closed by Close after the
// remaining transitions are delivered; it must be drained.
func (c *Coordinator) Updates() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pub == nil {
		c.pub = newPublisher()
		c.pub.push(c.state)
		if c.closed {
			c.pub.close()
		}
	}
	return c.pub.out
}

// Await blocks until the latest search settles or ctx is done.
func (c *Coordinator) Await(ctx context.Context) (State, error) {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	select {
	case <-settled:
		return c.State(), nil
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

// Close cancels in-flight searches and waits for their Store calls to
// return. The state is left as it was and pending Await calls return.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	select {
	case <-c.settled:
	default:
		close(c.settled)
	}
	if c.pub != nil {
		c.pub.close()
	}
	c.mu.Unlock()
}

func (c *Coordinator) startLocked(q query.Query) {
	c.generation++
	if c.abort != nil && c.abortSuperseded {
		c.abort()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.abort = cancel

	req := request{generation: c.generation, query: q}
	c.settled = make(chan struct{})
	c.setStateLocked(State{Status: Pending, Generation: req.generation, Query: q})

	c.wg.Add(1)
	go c.fetch(ctx, cancel, req)
}

func (c *Coordinator) fetch(ctx context.Context, cancel context.CancelFunc, req request) {
	defer c.wg.Done()
	defer cancel()

	books, err := c.store.Search(ctx, req.query)
	c.complete(req, books, err)
}

func (c *Coordinator) complete(req request, books []catalog.Book, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// nothing is applied once the root context is cancelled
	if c.closed || c.ctx.Err() != nil || req.generation != c.generation {
		return
	}

	next := State{Generation: req.generation, Query: req.query}
	if err != nil {
		next.Status = Failed
		next.Err = err
		c.log.Debug("search failed",
			zap.Uint64("generation", req.generation),
			zap.String("query", req.query.Normalized),
			zap.Error(err))
	} else {
		if books == nil {
			books = []catalog.Book{}
		}
		next.Status = Succeeded
		next.Books = books
	}
	c.setStateLocked(next)
	close(c.settled)
}

func (c *Coordinator) setStateLocked(s State) {
	c.state = s
	if c.observer != nil {
		c.observer(s)
	}
	if c.pub != nil {
		c.pub.push(s)
	}
}
