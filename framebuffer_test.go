package blackbox

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func frameAt(ts float64, ordinal uint64) Frame {
	return Frame{Timestamp: ts, Payload: []byte{byte(ordinal)}, Ordinal: ordinal}
}

func TestPushEvictsOldest(t *testing.T) {
	b := NewFrameBuffer()

	// Push well past capacity.
	for i := 0; i < 100; i++ {
		b.Push(frameAt(float64(i), uint64(i)))
		assert.True(t, b.Status().Current <= BufferCapacity)
	}

	frames := b.Frames()
	assert.Equal(t, BufferCapacity, len(frames))

	// Exactly the last 30 pushed frames, in push order.
	for i, f := range frames {
		assert.Equal(t, uint64(70+i), f.Ordinal)
	}
}

func TestNearestEmpty(t *testing.T) {
	b := NewFrameBuffer()
	assert.Nil(t, b.Nearest(0))
	assert.Nil(t, b.Nearest(12.5))
	assert.Nil(t, b.Nearest(-1))
}

func TestNearestMatch(t *testing.T) {
	b := NewFrameBuffer()
	for i := 0; i < 30; i++ {
		b.Push(frameAt(float64(i)*0.033, uint64(i)))
	}

	f := b.Nearest(0.5)
	if assert.NotNil(t, f) {
		// 15 * 0.033 = 0.495 is the closest timestamp to 0.5.
		assert.Equal(t, uint64(15), f.Ordinal)
	}

	// Before the window: earliest frame.
	assert.Equal(t, uint64(0), b.Nearest(-5).Ordinal)

	// After the window: latest frame.
	assert.Equal(t, uint64(29), b.Nearest(100).Ordinal)

	// Exact hit.
	assert.Equal(t, uint64(10), b.Nearest(10*0.033).Ordinal)
}

func TestNearestTieBreaksEarlier(t *testing.T) {
	b := NewFrameBuffer()
	b.Push(frameAt(1.0, 0))
	b.Push(frameAt(3.0, 1))

	// 2.0 is equidistant; the earlier frame wins.
	assert.Equal(t, uint64(0), b.Nearest(2.0).Ordinal)
}

func TestFlush(t *testing.T) {
	b := NewFrameBuffer()
	for i := 0; i < 10; i++ {
		b.Push(frameAt(float64(i), uint64(i)))
	}
	assert.NotNil(t, b.Current())

	b.Flush()

	status := b.Status()
	assert.Equal(t, 0, status.Current)
	assert.Equal(t, BufferCapacity, status.Max)
	assert.Equal(t, 0.0, status.Ratio)
	assert.Nil(t, b.Current())
	assert.Nil(t, b.Nearest(5))
}

func TestStatusRatio(t *testing.T) {
	b := NewFrameBuffer()
	assert.Equal(t, BufferStatus{Current: 0, Max: 30, Ratio: 0}, b.Status())

	for i := 0; i < 15; i++ {
		b.Push(frameAt(float64(i), uint64(i)))
	}
	assert.Equal(t, BufferStatus{Current: 15, Max: 30, Ratio: 0.5}, b.Status())
}

func TestConcurrentAccess(t *testing.T) {
	b := NewFrameBuffer()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// One producer, as in a running channel.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				b.Push(frameAt(float64(i)*0.033, uint64(i)))
			}
		}
	}()

	// A hundred concurrent readers and flushers.
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch n % 3 {
				case 0:
					b.Nearest(float64(j) * 0.1)
				case 1:
					status := b.Status()
					if status.Current > status.Max {
						t.Fail()
					}
				case 2:
					b.Flush()
				}
			}
		}(i)
	}

	for i := 0; i < 100; i++ {
		// Interleave main-goroutine reads as well.
		b.Current()
	}

	close(stop)
	wg.Wait()

	assert.True(t, b.Status().Current <= BufferCapacity)
}
