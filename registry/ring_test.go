package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRingBuffer_EvictsOldest(t *testing.T) {
	r := NewRingBuffer(3)
	for _, v := range []int64{1, 2, 3, 4, 5} {
		r.Push(v)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int64{3, 4, 5}, r.Values())
	assert.InDelta(t, 4.0, r.Mean(), 1e-9)
}

func TestRingBuffer_EmptyAndReset(t *testing.T) {
	r := NewRingBuffer(0)
	assert.Equal(t, DefaultSampleCapacity, r.Cap())
	assert.Zero(t, r.Mean())
	assert.Empty(t, r.Values())

	r.Push(10)
	r.Reset()
	assert.Zero(t, r.Len())
	assert.Zero(t, r.Mean())
}

// TestProperty_RingBuffer_MatchesWindow 均值恒等于最近 cap 个样本的均值
func TestProperty_RingBuffer_MatchesWindow(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 120).Draw(rt, "capacity")
		samples := rapid.SliceOf(rapid.Int64Range(0, 60_000)).Draw(rt, "samples")

		r := NewRingBuffer(capacity)
		for _, s := range samples {
			r.Push(s)
		}

		window := samples
		if len(window) > capacity {
			window = window[len(window)-capacity:]
		}
		assert.Equal(rt, len(window), r.Len())
		if len(window) == 0 {
			assert.Empty(rt, r.Values())
			assert.Zero(rt, r.Mean())
			return
		}
		assert.Equal(rt, window, r.Values())

		var sum int64
		for _, s := range window {
			sum += s
		}
		assert.InDelta(rt, float64(sum)/float64(len(window)), r.Mean(), 1e-6)
	})
}
