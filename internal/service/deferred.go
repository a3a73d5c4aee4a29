package service

import (
	"context"
	"sync"
)

type deferredKey struct{}

// deferredEvents holds publishes issued inside a transaction owned by an
// outer caller.  They run only after that caller commits.
type deferredEvents struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// withDeferredEvents returns a ctx on which TicketService queues its events
// instead of publishing them.
func withDeferredEvents(ctx context.Context) (context.Context, *deferredEvents) {
	d := &deferredEvents{}
	return context.WithValue(ctx, deferredKey{}, d), d
}

func deferredFrom(ctx context.Context) *deferredEvents {
	d, _ := ctx.Value(deferredKey{}).(*deferredEvents)
	return d
}

func (d *deferredEvents) add(fn func(context.Context)) {
	d.mu.Lock()
	d.fns = append(d.fns, fn)
	d.mu.Unlock()
}

// flush runs the queued publishes in order.  ctx must not carry d.
func (d *deferredEvents) flush(ctx context.Context) {
	d.mu.Lock()
	fns := d.fns
	d.fns = nil
	d.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// discard drops the queued publishes after a rollback.
func (d *deferredEvents) discard() {
	d.mu.Lock()
	d.fns = nil
	d.mu.Unlock()
}
