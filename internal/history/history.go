// Package history provides the bounded sample buffer behind the live chart.
package history

import "github.com/sweeney/air-quality/internal/logic"

// Buffer is a fixed-capacity FIFO of samples. When full, appending evicts
// the oldest sample. Not safe for concurrent use; the control loop owns it.
type Buffer struct {
	buf      []logic.Sample
	capacity int
	head     int // next write position
	count    int
}

// NewBuffer creates a buffer holding at most capacity samples.
// A capacity below 1 is treated as 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		buf:      make([]logic.Sample, capacity),
		capacity: capacity,
	}
}

// Append adds s at the tail, overwriting the oldest sample when full.
func (b *Buffer) Append(s logic.Sample) {
	b.buf[b.head] = s
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
}

// Window returns a copy of the contents, oldest first.
func (b *Buffer) Window() []logic.Sample {
	out := make([]logic.Sample, b.count)
	// Oldest item is at (head - count) mod capacity
	start := (b.head - b.count + b.capacity) % b.capacity
	for i := 0; i < b.count; i++ {
		out[i] = b.buf[(start+i)%b.capacity]
	}
	return out
}

// Last returns the newest sample and false if the buffer is empty.
func (b *Buffer) Last() (logic.Sample, bool) {
	if b.count == 0 {
		return logic.Sample{}, false
	}
	return b.buf[(b.head-1+b.capacity)%b.capacity], true
}

// Len returns the number of stored samples.
func (b *Buffer) Len() int {
	return b.count
}

// Cap returns the capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}
