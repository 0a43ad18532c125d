package audio

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// buildWAV assembles a minimal RIFF/WAVE container around pcm.
func buildWAV(formatTag uint16, channels uint16, sampleRate uint32, bitDepth uint16, pcm []byte) []byte {
	var fmtChunk [16]byte
	binary.LittleEndian.PutUint16(fmtChunk[0:2], formatTag)
	binary.LittleEndian.PutUint16(fmtChunk[2:4], channels)
	binary.LittleEndian.PutUint32(fmtChunk[4:8], sampleRate)
	byteRate := sampleRate * uint32(channels) * uint32(bitDepth/8)
	binary.LittleEndian.PutUint32(fmtChunk[8:12], byteRate)
	binary.LittleEndian.PutUint16(fmtChunk[12:14], channels*bitDepth/8)
	binary.LittleEndian.PutUint16(fmtChunk[14:16], bitDepth)

	out := []byte("RIFF")
	out = binary.LittleEndian.AppendUint32(out, uint32(4+8+len(fmtChunk)+8+len(pcm)))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(fmtChunk)))
	out = append(out, fmtChunk[:]...)
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pcm)))
	out = append(out, pcm...)
	return out
}

func TestDecodeWAV(t *testing.T) {
	pcm := make([]byte, 44100*2) // one second of mono 16-bit silence

	clip, err := DecodeWAV(buildWAV(1, 1, 44100, 16, pcm))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.SampleRate() != 44100 {
		t.Errorf("sample rate = %d, want 44100", clip.SampleRate())
	}
	if clip.Channels() != 1 {
		t.Errorf("channels = %d, want 1", clip.Channels())
	}
	if clip.Size() != len(pcm) {
		t.Errorf("size = %d, want %d", clip.Size(), len(pcm))
	}
	if clip.Duration() != time.Second {
		t.Errorf("duration = %v, want 1s", clip.Duration())
	}
}

func TestDecodeWAVStereo(t *testing.T) {
	pcm := make([]byte, 48000*2*2) // one second of stereo 16-bit

	clip, err := DecodeWAV(buildWAV(1, 2, 48000, 16, pcm))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.Channels() != 2 {
		t.Errorf("channels = %d, want 2", clip.Channels())
	}
	if clip.Duration() != time.Second {
		t.Errorf("duration = %v, want 1s", clip.Duration())
	}
}

func TestDecodeWAVCopiesSamples(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	data := buildWAV(1, 1, 44100, 16, pcm)

	clip, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Mutating the source buffer must not reach the clip.
	for i := range data {
		data[i] = 0xFF
	}
	if got := clip.PCM(); got[0] != 1 || got[3] != 4 {
		t.Errorf("clip shares memory with the source buffer: %v", got)
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", []byte("RIFF"), ErrTruncated},
		{"wrong magic", append([]byte("OggS"), make([]byte, 40)...), ErrNotWAV},
		{"no chunks", []byte("RIFF\x00\x00\x00\x00WAVE"), ErrTruncated},
		{
			"chunk overruns buffer",
			append([]byte("RIFF\x00\x00\x00\x00WAVEdata\xff\xff\xff\xff"), make([]byte, 4)...),
			ErrTruncated,
		},
		{
			"non-pcm format",
			buildWAV(3, 1, 44100, 32, make([]byte, 8)),
			ErrUnsupportedWAV,
		},
		{
			"8-bit samples",
			buildWAV(1, 1, 44100, 8, make([]byte, 8)),
			ErrUnsupportedWAV,
		},
		{
			"too many channels",
			buildWAV(1, 6, 44100, 16, make([]byte, 24)),
			ErrUnsupportedWAV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWAV(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWAVDecoderReturnsNilInterfaceOnError(t *testing.T) {
	clip, err := WAVDecoder{}.Decode([]byte("garbage"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if clip != nil {
		t.Errorf("clip interface = %v, want nil", clip)
	}
}
