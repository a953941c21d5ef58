package wasm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolReusesHealthyInstances(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	p := newPool(1, func(context.Context) (*instance, error) {
		created.Add(1)
		return &instance{}, nil
	})
	ctx := context.Background()

	first, err := p.get(ctx)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	p.put(ctx, first, true)
	second, err := p.get(ctx)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if second != first || created.Load() != 1 {
		t.Fatalf("expected the idle instance to be reused, created %d", created.Load())
	}

	p.put(ctx, second, false)
	third, err := p.get(ctx)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if third == first || created.Load() != 2 {
		t.Fatalf("expected a discarded instance to be replaced, created %d", created.Load())
	}
}

func TestPoolBlocksAtCapacity(t *testing.T) {
	t.Parallel()

	p := newPool(1, func(context.Context) (*instance, error) {
		return &instance{}, nil
	})
	held, err := p.get(context.Background())
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while the only instance is held, got %v", err)
	}

	p.put(context.Background(), held, true)
	if _, err := p.get(context.Background()); err != nil {
		t.Fatalf("expected the returned instance to be available, got %v", err)
	}
}

func TestPoolReleasesSlotWhenCreateFails(t *testing.T) {
	t.Parallel()

	fail := true
	p := newPool(1, func(context.Context) (*instance, error) {
		if fail {
			return nil, errors.New("instantiate failed")
		}
		return &instance{}, nil
	})

	if _, err := p.get(context.Background()); err == nil {
		t.Fatal("expected create error")
	}
	fail = false
	if _, err := p.get(context.Background()); err != nil {
		t.Fatalf("expected the slot to be released, got %v", err)
	}
}

func TestPoolClose(t *testing.T) {
	t.Parallel()

	p := newPool(2, func(context.Context) (*instance, error) {
		return &instance{}, nil
	})
	inst, err := p.get(context.Background())
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	p.put(context.Background(), inst, true)

	p.close(context.Background())
	p.close(context.Background())
	if _, err := p.get(context.Background()); !errors.Is(err, errPoolClosed) {
		t.Fatalf("expected errPoolClosed, got %v", err)
	}
}

func TestPoolPutAfterCloseReleasesSlot(t *testing.T) {
	t.Parallel()

	p := newPool(1, func(context.Context) (*instance, error) {
		return &instance{}, nil
	})
	inst, err := p.get(context.Background())
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}

	p.close(context.Background())
	p.put(context.Background(), inst, true)

	if len(p.idle) != 0 {
		t.Fatalf("expected no idle instances after close, got %d", len(p.idle))
	}
	if len(p.slots) != 0 {
		t.Fatalf("expected the slot to be released, got %d in use", len(p.slots))
	}
}
