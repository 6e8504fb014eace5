//////////////////////////////////////////////////////////////////////////////
//
// External decoder boundary: open a media locator, pull decoded frames,
// reposition. Concrete demuxers register themselves by file extension.
//
//////////////////////////////////////////////////////////////////////////////

package decoder

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/roadwatch/blackbox/internal/logging"
)

var log = logging.DefaultLogger.WithTag("decoder")

// Frame is one decoded video frame. Timestamp is the presentation time in
// seconds from the start of the recording; Ordinal is the frame's position
// in decode order. The payload is opaque to the buffering engine.
type Frame struct {
	Timestamp float64
	Payload   []byte
	Keyframe  bool
	Ordinal   uint64
}

// Source is an open decoding session for a single recording. NextFrame
// returns io.EOF at end of stream. Sources are not safe for concurrent use;
// the owning channel serializes access.
type Source interface {
	// NextFrame blocks until the next frame is due for presentation and
	// returns it. Returns io.EOF at end of stream.
	NextFrame() (Frame, error)

	// Seek repositions to the nearest seekable point at or before ts
	// (seconds). Frames returned afterwards generally have timestamps at
	// or after ts, subject to keyframe granularity.
	Seek(ts float64) error

	Codec() string
	Width() int
	Height() int

	Close() error
}

// A function used to open a specific container format.
type OpenFunc func(path string) (Source, error)

var registry = map[string]OpenFunc{}

// Register a container format, identified by its lowercase file extension
// (without the dot). Locators with this extension are opened with the given
// function.
func Register(ext string, open OpenFunc) {
	registry[ext] = open
}

// Open a source for the given media locator, dispatching on its file
// extension (case-insensitive).
func Open(locator string) (Source, error) {
	// Log known formats, for debug purposes.
	var exts []string
	for e := range registry {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	log.Debug("Registered container formats: %v", exts)

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(locator), "."))
	if open, found := registry[ext]; found {
		return open(locator)
	}
	return nil, errors.Errorf("unsupported container format '%s'", ext)
}
