package host

import (
	"sync"

	"skirmish/internal/battle"
)

const (
	choiceBufferOccupancyMetricKey = "host_choice_buffer_occupancy"
	choiceBufferOverflowMetricKey  = "host_choice_buffer_overflow_total"
)

// Reply is the answer to one submission: the side's request after
// validation, or the reason the batch never reached the battle.
type Reply struct {
	Request battle.Request
	Err     error
}

type submission struct {
	choices []battle.Choice
	reply   chan Reply
}

// ChoiceBuffer stages submitted choice batches in a fixed-size ring. It is
// safe for concurrent producers and a single consumer.
type ChoiceBuffer struct {
	mu      sync.Mutex
	data    []submission
	head    int
	tail    int
	count   int
	notify  chan struct{}
	metrics metrics
}

type metrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// NewChoiceBuffer constructs a ring buffer with the provided capacity.
func NewChoiceBuffer(capacity int, m metrics) *ChoiceBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ChoiceBuffer{
		data:    make([]submission, capacity),
		notify:  make(chan struct{}, 1),
		metrics: m,
	}
}

// Capacity reports the maximum number of batches the buffer can hold.
func (b *ChoiceBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages a batch, returning false if the buffer is full.
func (b *ChoiceBuffer) Push(sub submission) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		if b.metrics != nil {
			b.metrics.Add(choiceBufferOverflowMetricKey, 1)
		}
		return false
	}
	b.data[b.tail] = sub
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	b.storeOccupancyLocked()
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest batch.
func (b *ChoiceBuffer) Pop() (submission, bool) {
	if b == nil {
		return submission{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return submission{}, false
	}
	sub := b.data[b.head]
	b.data[b.head] = submission{}
	b.head = (b.head + 1) % len(b.data)
	b.count--
	b.storeOccupancyLocked()
	return sub, true
}

// Drain returns all staged batches in FIFO order and clears the buffer.
func (b *ChoiceBuffer) Drain() []submission {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	out := make([]submission, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % len(b.data)
		out[i] = b.data[idx]
		b.data[idx] = submission{}
	}
	b.head = 0
	b.tail = 0
	b.count = 0
	b.storeOccupancyLocked()
	return out
}

// Len reports the number of staged batches.
func (b *ChoiceBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Ready is signalled after a Push. A single signal may cover several
// batches, so consumers Pop until the buffer is empty.
func (b *ChoiceBuffer) Ready() <-chan struct{} {
	return b.notify
}

func (b *ChoiceBuffer) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(choiceBufferOccupancyMetricKey, uint64(b.count))
}
