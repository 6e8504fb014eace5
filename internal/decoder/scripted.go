package decoder

import (
	"io"
	"sync"
	"time"
)

// Scripted is an in-memory Source used by tests: it produces Count frames
// spaced Interval seconds apart, without pacing, then reports end of stream.
// A decode failure can be injected at a given ordinal. Seek repositions
// exactly, unlike a real demuxer's keyframe granularity.
type Scripted struct {
	Interval float64
	Count    int

	// FailAt injects FailErr from NextFrame at this ordinal. Negative
	// disables injection.
	FailAt  int
	FailErr error

	// Delay, when nonzero, paces NextFrame the way a real demuxer blocks
	// until a frame's presentation time.
	Delay time.Duration

	mu      sync.Mutex
	next    int
	ordinal uint64
	closed  bool
}

// NewScripted returns a scripted source producing count frames at the given
// interval, with error injection disabled.
func NewScripted(count int, interval float64) *Scripted {
	return &Scripted{Interval: interval, Count: count, FailAt: -1}
}

func (s *Scripted) NextFrame() (Frame, error) {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Frame{}, io.EOF
	}
	if s.FailAt >= 0 && s.next == s.FailAt {
		return Frame{}, s.FailErr
	}
	if s.next >= s.Count {
		return Frame{}, io.EOF
	}

	frame := Frame{
		Timestamp: float64(s.next) * s.Interval,
		Payload:   []byte{0x65, byte(s.next)},
		Keyframe:  s.next%10 == 0,
		Ordinal:   s.ordinal,
	}
	s.next++
	s.ordinal++
	return frame, nil
}

func (s *Scripted) Seek(ts float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int(ts / s.Interval)
	if n < 0 {
		n = 0
	}
	if n > s.Count {
		n = s.Count
	}
	s.next = n
	return nil
}

func (s *Scripted) Codec() string { return "H264" }
func (s *Scripted) Width() int    { return 1280 }
func (s *Scripted) Height() int   { return 720 }

func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called, for test assertions.
func (s *Scripted) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
