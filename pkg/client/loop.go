package client

import (
	"context"
	"sync"
)

// Loop serializes work onto a single goroutine. Transport readers, dial
// goroutines, one-shot exchanges and UI actions all post closures here, so
// the session, dispatcher and connection manager never run concurrently.
type Loop struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop with room for size pending closures
func NewLoop(size int) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post queues fn to run on the loop goroutine. It blocks while the queue is
// full and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes queued closures in order until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Done is closed once Run has returned
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
