package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeHandle struct {
	closed atomic.Bool
}

func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	return nil
}

func TestGetOrCreateSingleFlight(t *testing.T) {
	var loads atomic.Int32
	h := &fakeHandle{}
	c := NewCache(func(ctx context.Context) (Handle, error) {
		loads.Add(1)
		return h, nil
	})

	const n = 32
	var wg sync.WaitGroup
	handles := make([]Handle, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = c.GetOrCreate(context.Background())
		}(i)
	}
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Fatalf("expected exactly 1 load, got %d", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if handles[i] != h {
			t.Fatalf("caller %d got a different handle", i)
		}
	}
}

func TestUnloadTruthTable(t *testing.T) {
	c := NewCache(func(ctx context.Context) (Handle, error) {
		return &fakeHandle{}, nil
	})
	if c.Unload() {
		t.Fatalf("unload on empty cache must return false")
	}
	if _, err := c.GetOrCreate(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Loaded() {
		t.Fatalf("expected loaded")
	}
	if !c.Unload() {
		t.Fatalf("first unload after load must return true")
	}
	if c.Unload() {
		t.Fatalf("second unload must return false")
	}
	if c.Loaded() {
		t.Fatalf("expected empty after unload")
	}
}

func TestUnloadClosesHandle(t *testing.T) {
	h := &fakeHandle{}
	c := NewCache(func(ctx context.Context) (Handle, error) { return h, nil })
	if _, err := c.GetOrCreate(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	c.Unload()
	if !h.closed.Load() {
		t.Fatalf("unload must close the handle")
	}
}

func TestFailedLoadIsNotCached(t *testing.T) {
	var loads atomic.Int32
	boom := errors.New("boom")
	c := NewCache(func(ctx context.Context) (Handle, error) {
		if loads.Add(1) == 1 {
			return nil, boom
		}
		return &fakeHandle{}, nil
	})

	_, err := c.GetOrCreate(context.Background())
	if err == nil || !IsLoadFailed(err) {
		t.Fatalf("expected load failure, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if c.Loaded() {
		t.Fatalf("failed load must leave cache empty")
	}
	// Retry succeeds.
	if _, err := c.GetOrCreate(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := loads.Load(); got != 2 {
		t.Fatalf("expected 2 load attempts, got %d", got)
	}
}

func TestConcurrentLoadUnload(t *testing.T) {
	c := NewCache(func(ctx context.Context) (Handle, error) {
		return &fakeHandle{}, nil
	})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := c.GetOrCreate(context.Background()); err != nil {
					t.Errorf("get: %v", err)
					return
				}
				c.Unload()
			}
		}()
	}
	wg.Wait()
}
