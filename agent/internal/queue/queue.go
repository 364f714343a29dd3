package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/wetterblick/uploader/pkg/types"
)

// ErrShutdown is returned by Get once the shutdown sentinel is dequeued and by
// Put after Shutdown has been called.
var ErrShutdown = errors.New("queue: shut down")

type item struct {
	reading  types.Reading
	sentinel bool
}

// Queue is a FIFO of Readings terminated by an optional shutdown sentinel.
type Queue struct {
	mu       sync.Mutex
	items    []item
	capacity int
	stopped  bool
	notify   chan struct{}
	evicted  atomic.Uint64
	logger   *slog.Logger
}

// New returns an empty Queue. capacity <= 0 means unbounded.
func New(capacity int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		logger:   logger,
	}
}

// Put appends r. When the queue is at capacity the oldest reading is evicted
// to make room.
func (q *Queue) Put(r types.Reading) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrShutdown
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		evicted := q.items[0].reading
		q.items = q.items[1:]
		q.evicted.Add(1)
		q.logger.Warn("queue: full, evicted oldest reading",
			"date_time", evicted.DateTime, "capacity", q.capacity)
	}
	q.items = append(q.items, item{reading: r})
	q.mu.Unlock()

	q.wake()
	return nil
}

// Shutdown enqueues the sentinel. It is idempotent.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.items = append(q.items, item{sentinel: true})
	q.mu.Unlock()

	q.wake()
}

// Get blocks until a reading is available and returns it. It returns
// ErrShutdown when the sentinel is reached and ctx.Err() when ctx is done,
// leaving queued readings in place.
func (q *Queue) Get(ctx context.Context) (types.Reading, error) {
	for {
		if err := ctx.Err(); err != nil {
			return types.Reading{}, err
		}
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items[0] = item{}
			q.items = q.items[1:]
			q.mu.Unlock()
			if it.sentinel {
				return types.Reading{}, ErrShutdown
			}
			return it.reading, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return types.Reading{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len returns the number of readings waiting, excluding the sentinel.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if n > 0 && q.items[n-1].sentinel {
		n--
	}
	return n
}

// Evicted returns how many readings were dropped because the queue was full.
func (q *Queue) Evicted() uint64 {
	return q.evicted.Load()
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
