package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// wavFormatIEEEFloat is the WAVE fmt tag for IEEE floating-point samples.
	wavFormatIEEEFloat = 3
	wavBitDepth        = 32
	wavChannels        = 2

	encodeChunkFrames = 4096
)

// EncodeWAV writes left and right as an interleaved 32-bit float WAV stream.
func EncodeWAV(w io.WriteSeeker, sampleRate int, left, right []float32) error {
	if len(left) != len(right) {
		return ErrBufferMismatch
	}

	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, wavChannels, wavFormatIEEEFloat)

	frames := len(left)
	chunkFrames := min(frames, encodeChunkFrames)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: wavChannels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, chunkFrames*wavChannels),
		SourceBitDepth: wavBitDepth,
	}
	data := buf.Data

	// The encoder writes raw 32-bit words, so the float bit patterns go
	// through untouched. An empty render still writes the header.
	wrote := false
	for start := 0; start < frames || !wrote; start += encodeChunkFrames {
		end := min(start+encodeChunkFrames, frames)
		buf.Data = data[:(end-start)*wavChannels]
		for i := start; i < end; i++ {
			j := (i - start) * wavChannels
			buf.Data[j] = int(math.Float32bits(left[i]))
			buf.Data[j+1] = int(math.Float32bits(right[i]))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("failed to write samples: %w", err)
		}
		wrote = true
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return nil
}

// WriteWAV encodes the buffers into path. The file is written under a
// temporary name in the same directory and renamed into place only once it
// is complete, so a failure never leaves a partial file behind.
func WriteWAV(path string, sampleRate int, left, right []float32) error {
	if path == "" {
		return &OutputError{Path: path, Err: errors.New("no destination path")}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &OutputError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &OutputError{Path: path, Err: err}
	}

	if err := EncodeWAV(tmp, sampleRate, left, right); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &OutputError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &OutputError{Path: path, Err: err}
	}
	return nil
}
