// Package render turns a MIDI performance and a SoundFont bank into a stereo
// 32-bit float WAV file.
package render

import (
	"io"
	"math"
	"strconv"
	"time"
)

const (
	// DefaultSampleRate is used when the caller does not pick a rate.
	DefaultSampleRate = 44100

	// MaxSampleRate is the largest rate a WAV header can carry.
	MaxSampleRate = math.MaxInt32
)

// Request holds the five inputs of a single render.
type Request struct {
	PerformancePath string
	BankPath        string
	OutputPath      string
	SampleRate      int
	Effects         bool // reverb and chorus
}

// Config returns the engine configuration carried by the request.
func (r Request) Config() Config {
	return Config{SampleRate: r.SampleRate, Effects: r.Effects}
}

// Config is the synthesis configuration for one render.
type Config struct {
	SampleRate int
	Effects    bool
}

// Validate checks the configuration before any file is touched.
func (c Config) Validate() error {
	if c.SampleRate <= 0 || c.SampleRate > MaxSampleRate {
		return &InputError{Field: "sample rate", Value: strconv.Itoa(c.SampleRate), Err: ErrInvalidSampleRate}
	}
	return nil
}

// Bank is an opaque, immutable instrument bank produced by an Engine.
type Bank interface {
	Name() string
	PresetCount() int
}

// Synth is the part of a synthesis engine the sequencer drives.
type Synth interface {
	ProcessMidiMessage(channel, command, data1, data2 int32)
	Render(left, right []float32)
	Reset()
}

// Engine loads banks and builds synthesizers from them.
type Engine interface {
	Name() string
	LoadBank(r io.Reader) (Bank, error)
	NewSynth(bank Bank, cfg Config) (Synth, error)
}

// Event is a single MIDI message placed on the merged timeline.
type Event struct {
	Tick    int64
	Time    time.Duration
	Track   int
	Message []byte
}

// IsChannelMessage reports whether the event carries a channel voice message.
func (e Event) IsChannelMessage() bool {
	return len(e.Message) > 0 && e.Message[0] >= 0x80 && e.Message[0] < 0xF0
}

// TempoChange marks a tempo meta event on the timeline.
type TempoChange struct {
	Tick             int64
	Time             time.Duration
	MicrosPerQuarter uint32
}

// BPM returns the tempo in beats per minute.
func (t TempoChange) BPM() float64 {
	if t.MicrosPerQuarter == 0 {
		return 0
	}
	return 60000000.0 / float64(t.MicrosPerQuarter)
}

// Performance is a parsed MIDI file. It is not modified after loading.
type Performance struct {
	Format       uint16
	Tracks       int
	Resolution   uint16 // ticks per quarter note
	Events       []Event
	TempoChanges []TempoChange
	Duration     time.Duration
}

// Seconds returns the duration in seconds.
func (p *Performance) Seconds() float64 {
	return p.Duration.Seconds()
}

// NoteCount returns the number of note-on messages with a non-zero velocity.
func (p *Performance) NoteCount() int {
	n := 0
	for _, ev := range p.Events {
		msg := ev.Message
		if len(msg) >= 3 && msg[0]&0xF0 == 0x90 && msg[2] > 0 {
			n++
		}
	}
	return n
}

// Channels returns the sorted list of MIDI channels that carry messages.
func (p *Performance) Channels() []int {
	var used [16]bool
	for _, ev := range p.Events {
		if ev.IsChannelMessage() {
			used[ev.Message[0]&0x0F] = true
		}
	}
	var chs []int
	for ch, ok := range used {
		if ok {
			chs = append(chs, ch)
		}
	}
	return chs
}
