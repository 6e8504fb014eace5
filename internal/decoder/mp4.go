//////////////////////////////////////////////////////////////////////////////
//
// MP4 decoding session backed by the joy4 demuxer
//
//////////////////////////////////////////////////////////////////////////////

package decoder

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	errors "golang.org/x/xerrors"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/codec/h264parser"
	"github.com/nareix/joy4/format/mp4"
)

func init() {
	Register("mp4", openMP4)
}

type mp4Source struct {
	file    *os.File
	demuxer *mp4.Demuxer

	videoIdx int
	info     av.VideoCodecData

	// Wall clock offset to the first packet after open/seek. Frames are
	// delivered no earlier than their presentation time.
	start time.Time

	ordinal uint64
}

func openMP4(path string) (Source, error) {
	log.Info("Opening file %s", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	demuxer := mp4.NewDemuxer(file)
	codecs, err := demuxer.Streams()
	if err != nil {
		file.Close()
		return nil, errors.Errorf("reading streams from %s: %w", path, err)
	}

	src := &mp4Source{file: file, demuxer: demuxer, videoIdx: -1}
	for i, codec := range codecs {
		switch codec.Type() {
		case av.H264:
			info := codec.(av.VideoCodecData)
			log.Info("%v stream: %dx%d", info.Type(), info.Width(), info.Height())
			src.videoIdx = i
			src.info = info
		default:
			log.Debug("Skipping %v stream", codec.Type())
		}
	}
	if src.videoIdx < 0 {
		file.Close()
		return nil, errors.New("no compatible video stream found")
	}

	return src, nil
}

func (s *mp4Source) NextFrame() (Frame, error) {
	for {
		pkt, err := s.demuxer.ReadPacket()
		if err != nil {
			if err == io.EOF {
				return Frame{}, io.EOF
			}
			log.Error("Error reading packet from %s: %v", s.file.Name(), err)
			return Frame{}, err
		}
		if int(pkt.Idx) != s.videoIdx {
			continue
		}

		if s.start.IsZero() {
			// Reading might start mid-file (e.g. after a seek), so anchor
			// the wall clock to this packet. It is presented immediately.
			s.start = time.Now().Add(-pkt.Time)
		} else {
			// Sleep until this packet is due for presentation.
			time.Sleep(time.Until(s.start.Add(pkt.Time)))
		}

		payload := annexB(pkt.Data)
		if pkt.IsKeyFrame {
			// Prefix SPS and PPS so a keyframe payload is independently
			// renderable.
			if cd, ok := s.info.(h264parser.CodecData); ok {
				ps := append(startCode(cd.SPS()), startCode(cd.PPS())...)
				payload = append(ps, payload...)
			}
		}

		frame := Frame{
			Timestamp: pkt.Time.Seconds(),
			Payload:   payload,
			Keyframe:  pkt.IsKeyFrame,
			Ordinal:   s.ordinal,
		}
		s.ordinal++

		log.Debug("Packet: %6d bytes at %.3fs", len(frame.Payload), frame.Timestamp)
		return frame, nil
	}
}

func (s *mp4Source) Seek(ts float64) error {
	if err := s.demuxer.SeekToTime(time.Duration(ts * float64(time.Second))); err != nil {
		return errors.Errorf("seek to %.3fs: %w", ts, err)
	}
	// Re-anchor pacing at the next packet read.
	s.start = time.Time{}
	return nil
}

func (s *mp4Source) Codec() string {
	return s.info.Type().String()
}

func (s *mp4Source) Width() int {
	return s.info.Width()
}

func (s *mp4Source) Height() int {
	return s.info.Height()
}

func (s *mp4Source) Close() error {
	return s.file.Close()
}

// annexB converts an AVCC packet (4-byte big-endian length prefixes) to
// Annex B byte-stream format.
func annexB(data []byte) []byte {
	out := make([]byte, 0, len(data)+8)
	for len(data) >= 4 {
		n := binary.BigEndian.Uint32(data)
		data = data[4:]
		if uint32(len(data)) < n {
			break
		}
		out = append(out, 0x00, 0x00, 0x00, 0x01)
		out = append(out, data[:n]...)
		data = data[n:]
	}
	return out
}

func startCode(nalu []byte) []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x01}, nalu...)
}
