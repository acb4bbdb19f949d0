package buffer

import (
	"sync"

	"github.com/gilliangoud/RRCLiveLaps/errors"
)

type ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	next     uint64 // sequence of the next append
	stats    *Statistics
	metrics  *bufferMetrics
	opts     *bufferOptions[T]
}

func newRing[T any](capacity int, opts *bufferOptions[T]) (*ring[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *bufferMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newRing", "metrics registration")
		}
	}

	return &ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// oldestLocked returns the oldest retained sequence; callers hold mu
func (r *ring[T]) oldestLocked() uint64 {
	if r.next <= uint64(r.capacity) {
		return 0
	}
	return r.next - uint64(r.capacity)
}

func (r *ring[T]) Append(item T) uint64 {
	r.mu.Lock()

	seq := r.next
	idx := int(seq % uint64(r.capacity))

	overwrote := seq >= uint64(r.capacity)
	dropped := r.items[idx]

	r.items[idx] = item
	r.next++

	size := r.lenLocked()
	r.mu.Unlock()

	r.stats.Append()
	if overwrote {
		r.stats.Overwrite()
	}
	r.stats.UpdateSize(int64(size))

	if r.metrics != nil {
		r.metrics.recordAppend(size, r.capacity, overwrote)
	}

	// callback runs outside the lock so it may touch the ring
	if overwrote && r.opts.dropCallback != nil {
		r.opts.dropCallback(dropped)
	}

	return seq
}

func (r *ring[T]) Read(seq uint64) (T, uint64, ReadStatus) {
	var zero T

	r.mu.RLock()
	oldest := r.oldestLocked()
	next := r.next
	var item T
	if seq >= oldest && seq < next {
		item = r.items[int(seq%uint64(r.capacity))]
	}
	r.mu.RUnlock()

	switch {
	case seq < oldest:
		r.stats.Lag()
		if r.metrics != nil {
			r.metrics.recordLag()
		}
		return zero, oldest, ReadLagged
	case seq >= next:
		return zero, oldest, ReadPending
	default:
		r.stats.Read()
		return item, oldest, ReadOK
	}
}

func (r *ring[T]) Next() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.next
}

func (r *ring[T]) Oldest() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.oldestLocked()
}

func (r *ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lenLocked()
}

func (r *ring[T]) lenLocked() int {
	if r.next < uint64(r.capacity) {
		return int(r.next)
	}
	return r.capacity
}

func (r *ring[T]) Capacity() int {
	return r.capacity
}

func (r *ring[T]) Stats() *Statistics {
	return r.stats
}
