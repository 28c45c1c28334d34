package server

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned for invocations submitted after the executor has
// shut down.
var ErrStopped = errors.New("server: stopped")

// Invoker executes one resolved API call. Satisfied by *dispatch.Table.
type Invoker interface {
	Call(apiPath string, args []any, kwargs map[string]any) (any, error)
}

type outcome struct {
	result any
	err    error
}

type job struct {
	path   string
	args   []any
	kwargs map[string]any
	reply  chan outcome
}

// Executor confines every invocation to a single goroutine, the only call
// site that touches the engine. Network handlers feed it from many
// goroutines and block until their reply arrives, which yields strict
// per-connection ordering without any locking in the engine.
type Executor struct {
	invoker  Invoker
	queue    chan *job
	done     chan struct{}
	stopOnce sync.Once
}

// NewExecutor creates an executor over inv. Run must be called exactly once.
func NewExecutor(inv Invoker) *Executor {
	return &Executor{
		invoker: inv,
		queue:   make(chan *job, 16),
		done:    make(chan struct{}),
	}
}

// Run consumes the queue until Stop. Queued jobs left at shutdown are
// answered with ErrStopped rather than abandoned.
func (e *Executor) Run() {
	for {
		select {
		case j := <-e.queue:
			result, err := e.invoker.Call(j.path, j.args, j.kwargs)
			j.reply <- outcome{result: result, err: err}
		case <-e.done:
			for {
				select {
				case j := <-e.queue:
					j.reply <- outcome{err: ErrStopped}
				default:
					return
				}
			}
		}
	}
}

// Stop terminates the run loop. Safe to call more than once.
func (e *Executor) Stop() {
	e.stopOnce.Do(func() { close(e.done) })
}

// Do submits an invocation and blocks until its result is available or ctx
// expires. There is no mid-invocation cancellation: a timed-out caller
// abandons the reply, but the invocation still runs to completion on the
// executor goroutine.
func (e *Executor) Do(ctx context.Context, path string, args []any, kwargs map[string]any) (any, error) {
	j := &job{path: path, args: args, kwargs: kwargs, reply: make(chan outcome, 1)}
	select {
	case e.queue <- j:
	case <-e.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case out := <-j.reply:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
