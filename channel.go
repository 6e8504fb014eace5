//////////////////////////////////////////////////////////////////////////////
//
// Channel: one camera's decode pipeline, frame buffer and lifecycle state
//
//////////////////////////////////////////////////////////////////////////////

package blackbox

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/roadwatch/blackbox/internal/decoder"
	"github.com/roadwatch/blackbox/internal/logging"
)

var log = logging.DefaultLogger.WithTag("channel")

// Channel owns one camera's decoding session, its frame buffer and its
// lifecycle state. Frame and status reads are safe from any goroutine at any
// time; lifecycle operations (Initialize, StartDecoding, Seek, Stop) may be
// called concurrently and are serialized internally.
type Channel struct {
	id   ChannelIdentity
	desc ChannelDescriptor

	buf  *FrameBuffer
	feed *stateFeed

	// Serializes lifecycle operations. Never held across a decoder call
	// made by the production loop; the loop runs outside this lock and is
	// joined before the decoder handle is touched.
	opMu sync.Mutex

	// Decoder handle, exclusively owned. Non-nil between a successful
	// Initialize and the next Stop.
	src decoder.Source

	// Production loop signalling, singleton per channel: quit is closed to
	// request termination, terminated is closed by the loop on exit.
	quit       chan struct{}
	terminated chan struct{}

	// Open hook, replaceable in tests.
	open decoder.OpenFunc
}

// NewChannel creates an Idle channel for the given descriptor with a
// generated identity.
func NewChannel(desc ChannelDescriptor) *Channel {
	return NewChannelWithIdentity(NewChannelIdentity(), desc)
}

// NewChannelWithIdentity creates an Idle channel with a caller-supplied
// identity.
func NewChannelWithIdentity(id ChannelIdentity, desc ChannelDescriptor) *Channel {
	return &Channel{
		id:   id,
		desc: desc,
		buf:  NewFrameBuffer(),
		feed: newStateFeed(),
		open: decoder.Open,
	}
}

// Identity returns the channel's opaque identifier.
func (c *Channel) Identity() ChannelIdentity {
	return c.id
}

// Descriptor returns the immutable channel description.
func (c *Channel) Descriptor() ChannelDescriptor {
	return c.desc
}

// Equal reports whether other is the same channel. Identity is the only
// thing compared.
func (c *Channel) Equal(other *Channel) bool {
	return other != nil && c.id == other.id
}

// Initialize opens the decoding session for the channel's media locator and
// moves the channel from Idle to Ready. Calling it in any other state fails
// with ErrInvalidState and has no side effects. An open failure is returned
// to the caller and also drives the channel to the Error state.
func (c *Channel) Initialize() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if s := c.feed.get(); s.Kind != StateIdle {
		return errors.Wrapf(ErrInvalidState, "initialize in state %s", s)
	}

	src, err := c.open(c.desc.Locator)
	if err != nil {
		derr := &DecoderError{Op: "open", Cause: err}
		c.feed.set(errorState(derr))
		return derr
	}

	c.src = src
	c.feed.set(ChannelState{Kind: StateReady})
	log.Info("Channel %s ready: %s (%s, %dx%d)",
		c.id, c.desc.Locator, src.Codec(), src.Width(), src.Height())
	return nil
}

// StartDecoding spawns the production loop and moves the channel from Ready
// to Decoding. A no-op if the channel is already Decoding.
func (c *Channel) StartDecoding() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	switch s := c.feed.get(); s.Kind {
	case StateDecoding:
		return nil
	case StateReady:
	default:
		if c.src == nil {
			return errors.Wrap(ErrNotInitialized, "start decoding")
		}
		return errors.Wrapf(ErrInvalidState, "start decoding in state %s", s)
	}

	c.feed.set(ChannelState{Kind: StateDecoding})
	c.startLoopLocked()
	return nil
}

// Seek repositions the decoding session to the nearest seekable point at or
// before ts (seconds), flushing all buffered frames first. Fails with
// ErrNotInitialized if no decoding session exists. While Decoding, the
// production loop is paused for the duration and resumed afterwards; frames
// produced after the resume generally have timestamps at or after ts,
// subject to the decoder's keyframe granularity.
func (c *Channel) Seek(ts float64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.src == nil {
		return errors.Wrapf(ErrNotInitialized, "seek to %.3fs", ts)
	}

	// Pause production before touching the buffer or the decoder.
	c.stopLoopLocked()
	c.buf.Flush()

	if err := c.src.Seek(ts); err != nil {
		derr := &DecoderError{Op: "seek", Cause: err}
		c.feed.set(errorState(derr))
		return derr
	}

	// Resume only if the loop was still producing when paused. A loop that
	// already reached Completed or Error stays put.
	if c.feed.get().Kind == StateDecoding {
		c.startLoopLocked()
	}
	log.Debug("Channel %s repositioned to %.3fs", c.id, ts)
	return nil
}

// Stop terminates production, releases the decoding session, flushes the
// buffer and resets the channel to Idle. It never fails, may be called in
// any state (including before Initialize) and is idempotent.
func (c *Channel) Stop() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.stopLocked()
}

// Close stops the channel and shuts down its state feed. The channel must
// not be used afterwards.
func (c *Channel) Close() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.stopLocked()
	c.feed.close()
	return nil
}

// GetFrame returns a copy of the buffered frame nearest to ts, or nil if
// nothing is buffered.
func (c *Channel) GetFrame(ts float64) *Frame {
	return c.buf.Nearest(ts)
}

// CurrentFrame returns a copy of the most recently decoded frame, or nil.
func (c *Channel) CurrentFrame() *Frame {
	return c.buf.Current()
}

// BufferStatus snapshots the frame buffer's occupancy.
func (c *Channel) BufferStatus() BufferStatus {
	return c.buf.Status()
}

// State returns the current lifecycle state.
func (c *Channel) State() ChannelState {
	return c.feed.get()
}

// SubscribeState registers a state observer with a queue of the given
// capacity. The current state is delivered immediately, then every
// subsequent transition in order. Nothing is ever dropped: a subscriber
// that stops draining eventually blocks transitions, so consume promptly
// and UnsubscribeState when done.
func (c *Channel) SubscribeState(capacity int) <-chan ChannelState {
	return c.feed.subscribe(capacity)
}

// UnsubscribeState cancels a subscription returned by SubscribeState.
func (c *Channel) UnsubscribeState(s <-chan ChannelState) error {
	return c.feed.unsubscribe(s)
}

// startLoopLocked launches the production loop. Caller holds opMu and has
// already ensured no loop is running.
func (c *Channel) startLoopLocked() {
	c.quit = make(chan struct{})
	c.terminated = make(chan struct{})
	go c.decodeLoop(c.src, c.quit, c.terminated)
}

// stopLoopLocked signals the production loop to terminate and joins it.
// A no-op when no loop is running. Caller holds opMu.
func (c *Channel) stopLoopLocked() {
	if c.quit == nil {
		return
	}
	close(c.quit)
	<-c.terminated
	c.quit = nil
	c.terminated = nil
}

// stopLocked implements Stop. Caller holds opMu.
func (c *Channel) stopLocked() {
	c.stopLoopLocked()
	if c.src != nil {
		if err := c.src.Close(); err != nil {
			log.Warn("Channel %s: closing decoder: %v", c.id, err)
		}
		c.src = nil
	}
	c.buf.Flush()
	c.feed.set(ChannelState{Kind: StateIdle})
}

// decodeLoop is the production loop: pull the next frame from the decoder,
// outside any lock, and push it into the buffer. The quit signal is polled
// once per produced frame. End of stream moves the channel to Completed, a
// decode failure to Error; either way the loop terminates and the failure
// is observed through the state feed, never propagated to a caller.
func (c *Channel) decodeLoop(src decoder.Source, quit <-chan struct{}, terminated chan<- struct{}) {
	defer close(terminated)

	for {
		select {
		case <-quit:
			return
		default:
		}

		frame, err := src.NextFrame()
		if err == io.EOF {
			log.Info("Channel %s: end of stream", c.id)
			c.feed.setFrom(StateDecoding, ChannelState{Kind: StateCompleted})
			return
		}
		if err != nil {
			log.Error("Channel %s: decode failed: %v", c.id, err)
			c.buf.Flush()
			c.feed.setFrom(StateDecoding, errorState(&DecoderError{Op: "read", Cause: err}))
			return
		}

		c.buf.Push(frame)
	}
}
