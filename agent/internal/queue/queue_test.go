package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wetterblick/uploader/pkg/types"
)

func reading(ts int64) types.Reading {
	return types.Reading{DateTime: ts, USUnits: types.US, Fields: map[string]any{}}
}

func TestQueue_FIFO(t *testing.T) {
	q := New(0, nil)
	for i := int64(1); i <= 3; i++ {
		if err := q.Put(reading(i)); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	if got := q.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	for want := int64(1); want <= 3; want++ {
		r, err := q.Get(context.Background())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if r.DateTime != want {
			t.Errorf("Get() DateTime = %d, want %d", r.DateTime, want)
		}
	}
}

func TestQueue_ShutdownDeliversPendingFirst(t *testing.T) {
	q := New(0, nil)
	_ = q.Put(reading(1))
	q.Shutdown()
	q.Shutdown()

	if got := q.Len(); got != 1 {
		t.Errorf("Len() with sentinel = %d, want 1", got)
	}
	if r, err := q.Get(context.Background()); err != nil || r.DateTime != 1 {
		t.Fatalf("Get() = (%d, %v), want (1, nil)", r.DateTime, err)
	}
	if _, err := q.Get(context.Background()); !errors.Is(err, ErrShutdown) {
		t.Fatalf("Get() after sentinel err = %v, want ErrShutdown", err)
	}
	if err := q.Put(reading(2)); !errors.Is(err, ErrShutdown) {
		t.Errorf("Put() after Shutdown err = %v, want ErrShutdown", err)
	}
}

func TestQueue_EvictsOldestWhenFull(t *testing.T) {
	q := New(3, nil)
	for i := int64(0); i < 5; i++ {
		_ = q.Put(reading(i))
	}
	if got := q.Evicted(); got != 2 {
		t.Errorf("Evicted() = %d, want 2", got)
	}
	for _, want := range []int64{2, 3, 4} {
		r, _ := q.Get(context.Background())
		if r.DateTime != want {
			t.Errorf("Get() DateTime = %d, want %d", r.DateTime, want)
		}
	}
}

func TestQueue_GetBlocksUntilPut(t *testing.T) {
	q := New(0, nil)
	got := make(chan int64, 1)
	go func() {
		r, err := q.Get(context.Background())
		if err == nil {
			got <- r.DateTime
		}
	}()

	time.Sleep(20 * time.Millisecond)
	_ = q.Put(reading(42))

	select {
	case ts := <-got:
		if ts != 42 {
			t.Errorf("DateTime = %d, want 42", ts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Get() did not return after Put")
	}
}

func TestQueue_GetHonoursContext(t *testing.T) {
	q := New(0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() err = %v, want DeadlineExceeded", err)
	}
}

func TestQueue_GetCancelledKeepsItems(t *testing.T) {
	q := New(0, nil)
	_ = q.Put(reading(1))
	_ = q.Put(reading(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Get(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Get() error = %v, want context.Canceled", err)
	}
	if got := q.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	r, err := q.Get(context.Background())
	if err != nil || r.DateTime != 1 {
		t.Errorf("Get() = (%d, %v), want (1, nil)", r.DateTime, err)
	}
}

func TestQueue_ConcurrentPut(t *testing.T) {
	q := New(0, nil)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = q.Put(reading(int64(p*100 + i)))
			}
		}(p)
	}
	wg.Wait()
	if got := q.Len(); got != 200 {
		t.Errorf("Len() = %d, want 200", got)
	}
}
