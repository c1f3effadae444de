package registry

// DefaultSampleCapacity 响应时间样本环形缓冲区容量
const DefaultSampleCapacity = 100

// RingBuffer is a fixed-capacity circular buffer of int64 samples.
// Pushing onto a full buffer overwrites the oldest sample.
// Not safe for concurrent use; the owning WorkerStats serialises access.
type RingBuffer struct {
	buf   []int64
	head  int // next write position
	count int
	sum   int64
}

// NewRingBuffer creates a buffer holding at most capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultSampleCapacity
	}
	return &RingBuffer{buf: make([]int64, capacity)}
}

// Push appends v, evicting the oldest sample when full.
func (r *RingBuffer) Push(v int64) {
	if r.count == len(r.buf) {
		r.sum -= r.buf[r.head]
	} else {
		r.count++
	}
	r.buf[r.head] = v
	r.sum += v
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of samples held.
func (r *RingBuffer) Len() int { return r.count }

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int { return len(r.buf) }

// Mean returns the arithmetic mean of the held samples, 0 when empty.
func (r *RingBuffer) Mean() float64 {
	if r.count == 0 {
		return 0
	}
	return float64(r.sum) / float64(r.count)
}

// Values returns the samples oldest first.
func (r *RingBuffer) Values() []int64 {
	out := make([]int64, 0, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Reset drops all samples.
func (r *RingBuffer) Reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.head, r.count, r.sum = 0, 0, 0
}
