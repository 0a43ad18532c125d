package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/hearsay-cli/hearsay/internal/playback"
)

// Decode errors.
var (
	ErrNotWAV         = errors.New("audio: not a RIFF/WAVE stream")
	ErrTruncated      = errors.New("audio: truncated WAV data")
	ErrUnsupportedWAV = errors.New("audio: unsupported WAV encoding")
)

// Clip is decoded PCM audio ready for playback. It satisfies the scheduler's
// Clip interface.
type Clip struct {
	pcm        []byte
	sampleRate int
	channels   int
}

// Size returns the decoded PCM size in bytes.
func (c *Clip) Size() int { return len(c.pcm) }

// Duration returns the playback duration of the clip.
func (c *Clip) Duration() time.Duration {
	if c.sampleRate == 0 || c.channels == 0 {
		return 0
	}
	samples := len(c.pcm) / (c.channels * 2) // 16-bit samples
	return time.Duration(samples) * time.Second / time.Duration(c.sampleRate)
}

// SampleRate returns the sample rate in Hz.
func (c *Clip) SampleRate() int { return c.sampleRate }

// Channels returns the channel count.
func (c *Clip) Channels() int { return c.channels }

// PCM returns the raw little-endian signed 16-bit samples.
func (c *Clip) PCM() []byte { return c.pcm }

// WAVDecoder decodes PCM16 WAV payloads into clips. It satisfies the
// scheduler's Decoder interface.
type WAVDecoder struct{}

// Decode parses a RIFF/WAVE container holding 16-bit PCM.
func (WAVDecoder) Decode(data []byte) (playback.Clip, error) {
	clip, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// DecodeWAV parses a RIFF/WAVE container holding 16-bit PCM.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < 12 {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		sampleRate int
		channels   int
		bitDepth   int
		haveFmt    bool
		pcm        []byte
	)

	// Walk the chunk list. Chunks are 8 bytes of header (id + size) plus a
	// payload padded to an even length.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, ErrTruncated
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrTruncated
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 { // PCM only
				return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt || pcm == nil {
		return nil, ErrTruncated
	}
	if bitDepth != 16 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedWAV, bitDepth)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedWAV, channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedWAV, sampleRate)
	}

	// Copy so the clip owns its samples independent of the fetch buffer.
	samples := make([]byte, len(pcm))
	copy(samples, pcm)

	return &Clip{pcm: samples, sampleRate: sampleRate, channels: channels}, nil
}
