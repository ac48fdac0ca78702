package core

import (
	"context"
	"sync"

	"pkt.systems/tabsession/schema"
)

// loop is a window's single-threaded execution context. Every mutation of a
// window's collection runs as a closure on its loop. A closure must never
// call back into its own loop with call; that would wait on itself.
type loop struct {
	queue    chan func()
	stopping chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

func newLoop(depth int) *loop {
	if depth <= 0 {
		depth = schema.DefaultQueueDepth
	}
	return &loop{
		queue:    make(chan func(), depth),
		stopping: make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

func (l *loop) start() {
	go l.run()
}

func (l *loop) run() {
	defer close(l.exited)
	for {
		select {
		case <-l.stopping:
			return
		default:
		}
		select {
		case <-l.stopping:
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// post enqueues fn. It reports false once the loop is stopping.
func (l *loop) post(fn func()) bool {
	select {
	case <-l.stopping:
		return false
	default:
	}
	select {
	case <-l.stopping:
		return false
	case l.queue <- fn:
		return true
	}
}

// call runs fn on the loop and waits for it. A loop that exits before fn
// ran yields ErrWindowClosed. Giving up through ctx does not withdraw fn.
func (l *loop) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.post(func() {
		defer close(done)
		fn()
	}) {
		return schema.ErrWindowClosed
	}
	select {
	case <-done:
		return nil
	case <-l.exited:
		select {
		case <-done:
			return nil
		default:
			return schema.ErrWindowClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop asks the loop to exit after the closure in progress. Safe to call
// from the loop itself.
func (l *loop) stop() {
	l.stopOnce.Do(func() { close(l.stopping) })
}

// wait blocks until the loop goroutine has exited.
func (l *loop) wait(ctx context.Context) error {
	select {
	case <-l.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
