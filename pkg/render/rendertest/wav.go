package rendertest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

// WAVHeaderSize is the size of the canonical RIFF/WAVE header written by the encoder.
const WAVHeaderSize = 44

// Audio is a decoded stereo float WAV file.
type Audio struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Format     int
	Left       []float32
	Right      []float32
}

// Frames returns the number of sample frames.
func (a *Audio) Frames() int {
	return len(a.Left)
}

// Peak returns the largest absolute sample value on either channel.
func (a *Audio) Peak() float32 {
	var peak float32
	for i := range a.Left {
		peak = max(peak, abs(a.Left[i]), abs(a.Right[i]))
	}
	return peak
}

// DecodeWAV reads the header with the go-audio decoder and the interleaved
// float samples that follow it.
func DecodeWAV(data []byte) (*Audio, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("not a valid WAV file: %w", err)
	}
	a := &Audio{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Format:     int(d.WavAudioFormat),
	}
	if len(data) < WAVHeaderSize {
		return nil, fmt.Errorf("short WAV file: %d bytes", len(data))
	}
	body := data[WAVHeaderSize:]
	if a.Channels != 2 || a.BitDepth != 32 || len(body)%8 != 0 {
		return nil, fmt.Errorf("unexpected layout: %d channels, %d bits, %d data bytes", a.Channels, a.BitDepth, len(body))
	}
	frames := len(body) / 8
	a.Left = make([]float32, frames)
	a.Right = make([]float32, frames)
	for i := 0; i < frames; i++ {
		a.Left[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*8:]))
		a.Right[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*8+4:]))
	}
	return a, nil
}

// ReadWAV decodes the WAV file at path, failing the test on error.
func ReadWAV(t testing.TB, path string) *Audio {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q) error = %v", path, err)
	}
	a, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV(%q) error = %v", path, err)
	}
	return a
}

// WriteFile writes data into dir under name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile(%q) error = %v", path, err)
	}
	return path
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
