package audio

import "sync"

// DefaultQueueCapacity is the frame capacity used when a [FrameQueue] is
// created with a non-positive capacity. At the default bridge block size this
// is several seconds of buffered audio.
const DefaultQueueCapacity = 100

// FrameQueue is a bounded FIFO of audio frames connecting the bridge's
// capture callback (single producer) to its playback callback (single
// consumer). Capacity is fixed for the queue's lifetime.
//
// Frames are treated as immutable once pushed: splitting a frame produces new
// sub-slices, it never mutates the stored one. PushFront exists solely so the
// consumer can return an unconsumed remainder to the head of the queue,
// preserving strict chronological order across callback invocations.
//
// All methods take a short, bounded critical section and perform no
// allocation, which keeps them safe to call from real-time audio callbacks.
type FrameQueue struct {
	mu sync.Mutex

	// ring buffer; len(frames) == capacity+1 so that one PushFront of a
	// remainder always succeeds even when a producer refilled the slot
	// vacated by the preceding PopFront.
	frames [][]float32
	head   int
	count  int

	capacity int
}

// NewFrameQueue creates a queue holding at most capacity frames. A
// non-positive capacity selects [DefaultQueueCapacity].
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &FrameQueue{
		frames:   make([][]float32, capacity+1),
		capacity: capacity,
	}
}

// Cap returns the fixed frame capacity.
func (q *FrameQueue) Cap() int {
	return q.capacity
}

// Len returns the number of frames currently buffered.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// PushBack appends frame to the tail. When the queue is at capacity the frame
// is rejected and PushBack reports false: already-buffered audio is preserved
// in preference to fresh audio, at the cost of added latency under sustained
// overflow.
func (q *FrameQueue) PushBack(frame []float32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count >= q.capacity {
		return false
	}
	q.frames[q.index(q.count)] = frame
	q.count++
	return true
}

// PopFront removes and returns the oldest frame. The second return value is
// false when the queue is empty.
func (q *FrameQueue) PopFront() ([]float32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil, false
	}
	frame := q.frames[q.head]
	q.frames[q.head] = nil
	q.head = q.index(1)
	q.count--
	return frame, true
}

// PushFront returns frame to the head of the queue. It is intended only for
// the consumer handing back the unconsumed remainder of the frame it just
// popped; the ring reserves one slot beyond capacity so this never fails.
func (q *FrameQueue) PushFront(frame []float32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head = q.indexBack(1)
	q.frames[q.head] = frame
	q.count++
}

func (q *FrameQueue) index(offset int) int {
	return (q.head + offset) % len(q.frames)
}

func (q *FrameQueue) indexBack(offset int) int {
	i := q.head - offset
	if i < 0 {
		i += len(q.frames)
	}
	return i
}
