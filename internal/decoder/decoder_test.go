package decoder

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenDispatchesOnExtension(t *testing.T) {
	opened := ""
	Register("fake", func(path string) (Source, error) {
		opened = path
		return NewScripted(1, 0.033), nil
	})
	defer delete(registry, "fake")

	src, err := Open("/recordings/FRONT.Fake")
	assert.NoError(t, err)
	assert.Equal(t, "/recordings/FRONT.Fake", opened)
	src.Close()
}

func TestOpenUnknownExtension(t *testing.T) {
	_, err := Open("recording.mkv")
	assert.Error(t, err)
}

func TestScriptedSequence(t *testing.T) {
	s := NewScripted(3, 0.5)

	for i := 0; i < 3; i++ {
		f, err := s.NextFrame()
		assert.NoError(t, err)
		assert.Equal(t, float64(i)*0.5, f.Timestamp)
		assert.Equal(t, uint64(i), f.Ordinal)
	}

	_, err := s.NextFrame()
	assert.Equal(t, io.EOF, err)
}

func TestScriptedSeek(t *testing.T) {
	s := NewScripted(100, 0.5)

	assert.NoError(t, s.Seek(25.0))
	f, err := s.NextFrame()
	assert.NoError(t, err)
	assert.Equal(t, 25.0, f.Timestamp)

	// Clamped at the ends.
	assert.NoError(t, s.Seek(-3))
	f, _ = s.NextFrame()
	assert.Equal(t, 0.0, f.Timestamp)

	assert.NoError(t, s.Seek(1e9))
	_, err = s.NextFrame()
	assert.Equal(t, io.EOF, err)
}

func TestScriptedFailureInjection(t *testing.T) {
	s := NewScripted(10, 0.033)
	s.FailAt = 2
	s.FailErr = io.ErrUnexpectedEOF

	_, err := s.NextFrame()
	assert.NoError(t, err)
	_, err = s.NextFrame()
	assert.NoError(t, err)
	_, err = s.NextFrame()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestAnnexBConversion(t *testing.T) {
	// Two AVCC NALUs: lengths 2 and 1.
	in := []byte{0, 0, 0, 2, 0x65, 0xaa, 0, 0, 0, 1, 0x41}
	out := annexB(in)
	assert.Equal(t, []byte{0, 0, 0, 1, 0x65, 0xaa, 0, 0, 0, 1, 0x41}, out)
}
