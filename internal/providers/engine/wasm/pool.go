package wasm

import (
	"context"
	"sync"
)

// pool bounds the number of live instances. Idle instances are reused; an
// instance that failed a call is closed instead of being returned.
type pool struct {
	create func(ctx context.Context) (*instance, error)
	idle   chan *instance
	slots  chan struct{}

	mu     sync.Mutex
	closed bool
}

func newPool(size int, create func(ctx context.Context) (*instance, error)) *pool {
	if size <= 0 {
		size = 1
	}
	return &pool{
		create: create,
		idle:   make(chan *instance, size),
		slots:  make(chan struct{}, size),
	}
}

func (p *pool) get(ctx context.Context) (*instance, error) {
	if p.isClosed() {
		return nil, errPoolClosed
	}

	select {
	case inst := <-p.idle:
		return inst, nil
	default:
	}

	select {
	case inst := <-p.idle:
		return inst, nil
	case p.slots <- struct{}{}:
		inst, err := p.create(ctx)
		if err != nil {
			<-p.slots
			return nil, err
		}
		return inst, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// put never blocks on idle: slots caps live instances at its capacity.
// The closed check and the send share the lock so close cannot miss it.
func (p *pool) put(ctx context.Context, inst *instance, healthy bool) {
	p.mu.Lock()
	if healthy && !p.closed {
		p.idle <- inst
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	inst.close(ctx)
	<-p.slots
}

func (p *pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// close releases idle instances. Instances in use are closed when returned.
func (p *pool) close(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case inst := <-p.idle:
			inst.close(ctx)
			<-p.slots
		default:
			return
		}
	}
}
