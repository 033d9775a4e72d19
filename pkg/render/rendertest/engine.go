package rendertest

import (
	"errors"
	"io"
	"sync"

	"github.com/james-see/midi2wav/pkg/render"
)

// FakeName is the name reported by Engine.
const FakeName = "fake"

// Output levels of the fake synthesizer.
const (
	NoteLevel   float32 = 0.25
	EffectLevel float32 = 0.125
)

// ErrFakeSynth is returned by NewSynth when Engine.FailSynth is set.
var ErrFakeSynth = errors.New("fake synthesizer unavailable")

// Engine is a deterministic render.Engine. Any bank data starting with
// "RIFF" loads; everything else is rejected. Its synthesizer outputs
// NoteLevel per sounding note on the left channel and the negated value on
// the right, plus EffectLevel on both channels while notes sound and
// effects are enabled.
type Engine struct {
	FailSynth bool

	mu     sync.Mutex
	synths []*Synth
}

// Bank is the bank produced by Engine.
type Bank struct {
	Size int
}

// Name returns the bank name.
func (b *Bank) Name() string { return "fake bank" }

// PresetCount returns 1.
func (b *Bank) PresetCount() int { return 1 }

// Name returns FakeName.
func (e *Engine) Name() string { return FakeName }

// LoadBank accepts any RIFF data.
func (e *Engine) LoadBank(r io.Reader) (render.Bank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || string(data[:4]) != "RIFF" {
		return nil, errors.New("not a RIFF file")
	}
	return &Bank{Size: len(data)}, nil
}

// NewSynth creates a fake synthesizer.
func (e *Engine) NewSynth(bank render.Bank, cfg render.Config) (render.Synth, error) {
	if e.FailSynth {
		return nil, ErrFakeSynth
	}
	if _, ok := bank.(*Bank); !ok {
		return nil, render.ErrUnsupportedBank
	}
	s := &Synth{effects: cfg.Effects, active: make(map[[2]int32]bool)}
	e.mu.Lock()
	e.synths = append(e.synths, s)
	e.mu.Unlock()
	return s, nil
}

// Synths returns every synthesizer created so far.
func (e *Engine) Synths() []*Synth {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Synth(nil), e.synths...)
}

// Message is a channel message received by Synth.
type Message struct {
	Frame   int64
	Channel int32
	Command int32
	Data1   int32
	Data2   int32
}

// Synth records messages and renders a level proportional to the number of
// sounding notes.
type Synth struct {
	effects  bool
	active   map[[2]int32]bool
	frame    int64
	Messages []Message
	Resets   int
}

// ProcessMidiMessage records the message and tracks note state.
func (s *Synth) ProcessMidiMessage(channel, command, data1, data2 int32) {
	s.Messages = append(s.Messages, Message{s.frame, channel, command, data1, data2})
	key := [2]int32{channel, data1}
	switch {
	case command == 0x90 && data2 > 0:
		s.active[key] = true
	case command == 0x80, command == 0x90:
		delete(s.active, key)
	case command == 0xB0 && (data1 == 120 || data1 == 123):
		clear(s.active)
	}
}

// Render fills the buffers with the current level.
func (s *Synth) Render(left, right []float32) {
	level := NoteLevel * float32(len(s.active))
	var fx float32
	if s.effects && len(s.active) > 0 {
		fx = EffectLevel
	}
	for i := range left {
		left[i] = level + fx
		right[i] = -level + fx
	}
	s.frame += int64(len(left))
}

// Reset silences every note.
func (s *Synth) Reset() {
	clear(s.active)
	s.Resets++
}
