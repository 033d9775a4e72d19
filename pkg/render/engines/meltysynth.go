// Package engines provides synthesis engines for the render pipeline.
package engines

import (
	"fmt"
	"io"
	"strings"

	"github.com/james-see/midi2wav/pkg/render"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// MeltySynth engine constants
const (
	MeltySynthName = "meltysynth"

	// DefaultBlockSize and DefaultMaximumPolyphony mirror the library defaults.
	DefaultBlockSize        = 64
	DefaultMaximumPolyphony = 64
)

// MeltySynth is a SoundFont 2 wavetable engine backed by go-meltysynth.
type MeltySynth struct {
	BlockSize        int
	MaximumPolyphony int
}

// NewMeltySynth creates a MeltySynth engine with default settings
func NewMeltySynth() *MeltySynth {
	return &MeltySynth{
		BlockSize:        DefaultBlockSize,
		MaximumPolyphony: DefaultMaximumPolyphony,
	}
}

// Name returns the engine name
func (m *MeltySynth) Name() string {
	return MeltySynthName
}

// SoundFontBank is a parsed SoundFont.
type SoundFontBank struct {
	sf *meltysynth.SoundFont
}

// Name returns the bank name from the SoundFont INFO chunk.
func (b *SoundFontBank) Name() string {
	return strings.TrimRight(b.sf.Info.BankName, "\x00 ")
}

// PresetCount returns the number of presets in the bank.
func (b *SoundFontBank) PresetCount() int {
	return len(b.sf.Presets)
}

// SoundFont exposes the underlying parsed SoundFont.
func (b *SoundFontBank) SoundFont() *meltysynth.SoundFont {
	return b.sf
}

// LoadBank parses SoundFont data
func (m *MeltySynth) LoadBank(r io.Reader) (bank render.Bank, err error) {
	// The parser indexes straight into chunk data and can panic on
	// truncated files.
	defer func() {
		if p := recover(); p != nil {
			bank, err = nil, fmt.Errorf("malformed SoundFont: %v", p)
		}
	}()

	sf, err := meltysynth.NewSoundFont(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	return &SoundFontBank{sf: sf}, nil
}

// NewSynth creates a synthesizer for bank configured by cfg
func (m *MeltySynth) NewSynth(bank render.Bank, cfg render.Config) (synth render.Synth, err error) {
	sfb, ok := bank.(*SoundFontBank)
	if !ok {
		return nil, render.ErrUnsupportedBank
	}

	defer func() {
		if p := recover(); p != nil {
			synth, err = nil, fmt.Errorf("failed to create synthesizer: %v", p)
		}
	}()

	if cfg.SampleRate > render.MaxSampleRate {
		return nil, fmt.Errorf("sample rate %d out of range", cfg.SampleRate)
	}
	settings := meltysynth.NewSynthesizerSettings(int32(cfg.SampleRate))
	settings.EnableReverbAndChorus = cfg.Effects
	if m.BlockSize > 0 {
		settings.BlockSize = int32(m.BlockSize)
	}
	if m.MaximumPolyphony > 0 {
		settings.MaximumPolyphony = int32(m.MaximumPolyphony)
	}

	s, err := meltysynth.NewSynthesizer(sfb.sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	return s, nil
}

// Lookup returns the engine registered under name
func Lookup(name string) (render.Engine, error) {
	switch strings.ToLower(name) {
	case "", MeltySynthName:
		return NewMeltySynth(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

// Names lists the available engines
func Names() []string {
	return []string{MeltySynthName}
}
