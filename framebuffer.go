//////////////////////////////////////////////////////////////////////////////
//
// Bounded, timestamp-ordered buffer of recently decoded frames
//
//////////////////////////////////////////////////////////////////////////////

package blackbox

import (
	"sort"
	"sync"

	"github.com/roadwatch/blackbox/internal/decoder"
)

// Frame is one decoded video frame held by a channel's buffer.
type Frame = decoder.Frame

// BufferCapacity is the number of frames a channel keeps buffered.
const BufferCapacity = 30

// BufferStatus is a point-in-time snapshot of buffer occupancy.
type BufferStatus struct {
	Current int     `json:"current"`
	Max     int     `json:"max"`
	Ratio   float64 `json:"ratio"`
}

// FrameBuffer holds up to BufferCapacity frames in insertion order, which
// under normal playback is also ascending timestamp order. When full, the
// oldest frame is evicted first. The buffer also tracks the most recently
// pushed frame as the channel's current frame.
//
// All methods are safe for concurrent use. A single mutex covers the frame
// sequence and the current-frame reference; readers never observe a
// partially updated buffer.
type FrameBuffer struct {
	mu      sync.Mutex
	frames  []Frame
	cap     int
	current *Frame
}

// NewFrameBuffer returns an empty buffer with the standard capacity.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		frames: make([]Frame, 0, BufferCapacity),
		cap:    BufferCapacity,
	}
}

// Push appends a frame and makes it the current frame. At capacity the
// head (oldest inserted, lowest timestamp under normal playback) is evicted.
func (b *FrameBuffer) Push(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == b.cap {
		// Shift down in place rather than reslicing, so the backing
		// array never grows past capacity.
		copy(b.frames, b.frames[1:])
		b.frames = b.frames[:b.cap-1]
	}
	b.frames = append(b.frames, f)
	cur := f
	b.current = &cur
}

// Nearest returns a copy of the buffered frame whose timestamp is closest
// to ts, ties resolving to the earlier frame, or nil if the buffer is empty.
func (b *FrameBuffer) Nearest(ts float64) *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.frames)
	if n == 0 {
		return nil
	}

	// First frame with timestamp >= ts; the nearest frame is that one or
	// its predecessor.
	i := sort.Search(n, func(i int) bool {
		return b.frames[i].Timestamp >= ts
	})

	var pick Frame
	switch {
	case i == 0:
		pick = b.frames[0]
	case i == n:
		pick = b.frames[n-1]
	default:
		before, after := b.frames[i-1], b.frames[i]
		if ts-before.Timestamp <= after.Timestamp-ts {
			pick = before
		} else {
			pick = after
		}
	}
	return &pick
}

// Current returns a copy of the most recently pushed frame, or nil if the
// buffer has been flushed or never filled.
func (b *FrameBuffer) Current() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return nil
	}
	f := *b.current
	return &f
}

// Flush atomically drops all frames and clears the current frame.
func (b *FrameBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = b.frames[:0]
	b.current = nil
}

// Status snapshots occupancy under the same lock as mutation.
func (b *FrameBuffer) Status() BufferStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BufferStatus{
		Current: len(b.frames),
		Max:     b.cap,
		Ratio:   float64(len(b.frames)) / float64(b.cap),
	}
}

// Frames returns a copy of the buffered sequence, oldest first.
func (b *FrameBuffer) Frames() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Frame, len(b.frames))
	copy(out, b.frames)
	return out
}
