package archive

import "sync"

// GrowableBuffer is a thread-safe FIFO ring that doubles its capacity
// when it reaches 70% full. Send never blocks.
type GrowableBuffer[T any] struct {
	mu       sync.Mutex
	ready    chan struct{} // holds one token while items may be waiting
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalReceived int64
	totalSent     int64
	resizeCount   int
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalSent     int64
	ResizeCount   int
}

// NewGrowableBuffer creates a buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &GrowableBuffer[T]{
		ready:    make(chan struct{}, 1),
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
}

// Send appends an item. Returns false if the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := max((b.capacity*70)/100, 1)
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalReceived++

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready signals after a Send. Consumers wait on it when DrainTo comes back
// empty; a signal may be stale, so always drain again after receiving.
func (b *GrowableBuffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// DrainTo removes up to limit items in FIFO order (all items when limit <= 0).
// Returns nil when empty.
func (b *GrowableBuffer[T]) DrainTo(limit int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if limit > 0 && limit < n {
		n = limit
	}

	var zero T
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.buf[b.head]
		b.buf[b.head] = zero // release for GC
		b.head = (b.head + 1) % b.capacity
	}
	b.count -= n
	b.totalSent += int64(n)
	return out
}

// Close rejects further sends. Items already buffered can still be drained.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Len returns the number of buffered items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.count,
		Capacity:      b.capacity,
		TotalReceived: b.totalReceived,
		TotalSent:     b.totalSent,
		ResizeCount:   b.resizeCount,
	}
}

// grow doubles capacity and unwraps the ring. Must be called with lock held.
func (b *GrowableBuffer[T]) grow() {
	newBuf := make([]T, b.capacity*2)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity *= 2
	b.resizeCount++
}
