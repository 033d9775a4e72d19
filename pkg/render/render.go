package render

import (
	"bytes"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Renderer runs render requests against an engine. It holds no per-render
// state and may be reused.
type Renderer struct {
	engine Engine
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for stage progress.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a new Renderer with the specified engine
func New(engine Engine, opts ...Option) *Renderer {
	r := &Renderer{engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetEngine returns the current engine
func (r *Renderer) GetEngine() Engine {
	return r.engine
}

// Render loads the bank and performance named by req, renders the whole
// performance and writes it to req.OutputPath. The destination is either
// completely written or left untouched.
func (r *Renderer) Render(req Request) error {
	start := time.Now()
	cfg := req.Config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := r.logger.With("performance", req.PerformancePath, "bank", req.BankPath, "output", req.OutputPath)

	bank, err := r.LoadBank(req.BankPath)
	if err != nil {
		return err
	}
	log.Debug("bank loaded", "name", bank.Name(), "presets", bank.PresetCount())

	perf, err := LoadPerformance(req.PerformancePath)
	if err != nil {
		return err
	}
	log.Debug("performance loaded",
		"tracks", perf.Tracks,
		"events", len(perf.Events),
		"duration", perf.Duration)

	synth, err := r.engine.NewSynth(bank, cfg)
	if err != nil {
		return &EngineError{Engine: r.engine.Name(), Err: err}
	}

	frames := FrameCount(cfg.SampleRate, perf.Duration)
	left := make([]float32, frames)
	right := make([]float32, frames)

	seq := NewSequencer(synth, cfg.SampleRate)
	seq.Play(perf)
	seq.Render(left, right)
	log.Debug("performance rendered", "frames", frames, "sample_rate", cfg.SampleRate, "effects", cfg.Effects)

	if err := WriteWAV(req.OutputPath, cfg.SampleRate, left, right); err != nil {
		return err
	}

	log.Info("render complete", "frames", frames, "elapsed", time.Since(start))
	return nil
}

// LoadBank reads the bank file and parses it with the renderer's engine.
// Failures are reported as a *ResourceError of kind ResourceBank.
func (r *Renderer) LoadBank(path string) (Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ResourceError{Kind: ResourceBank, Path: path, Err: err}
	}
	bank, err := r.engine.LoadBank(bytes.NewReader(data))
	if err != nil {
		return nil, &ResourceError{Kind: ResourceBank, Path: path, Err: err}
	}
	return bank, nil
}

// ParseSampleRate parses a sample rate typed by a user.
func ParseSampleRate(text string) (int, error) {
	text = strings.TrimSpace(text)
	rate, err := strconv.Atoi(text)
	if err != nil {
		return 0, &InputError{Field: "sample rate", Value: text, Err: ErrInvalidSampleRate}
	}
	if err := (Config{SampleRate: rate}).Validate(); err != nil {
		return 0, err
	}
	return rate, nil
}
