package render_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/james-see/midi2wav/pkg/render"
	"github.com/james-see/midi2wav/pkg/render/rendertest"
)

type fixture struct {
	dir         string
	performance string
	bank        string
	output      string
}

func newFixture(t *testing.T, midi []byte) fixture {
	t.Helper()
	dir := t.TempDir()
	return fixture{
		dir:         dir,
		performance: rendertest.WriteFile(t, dir, "song.mid", midi),
		bank:        rendertest.WriteFile(t, dir, "bank.sf2", rendertest.SoundFont()),
		output:      filepath.Join(dir, "song.wav"),
	}
}

func (f fixture) request(rate int, effects bool) render.Request {
	return render.Request{
		PerformancePath: f.performance,
		BankPath:        f.bank,
		OutputPath:      f.output,
		SampleRate:      rate,
		Effects:         effects,
	}
}

func quietRenderer(engine render.Engine) *render.Renderer {
	return render.New(engine, render.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestRendererNew(t *testing.T) {
	engine := &rendertest.Engine{}
	r := render.New(engine)

	if r == nil {
		t.Fatal("New() returned nil")
	}
	if r.GetEngine() != engine {
		t.Error("GetEngine() did not return the expected engine")
	}
}

func TestRenderOneNote(t *testing.T) {
	f := newFixture(t, rendertest.OneNote())
	engine := &rendertest.Engine{}

	if err := quietRenderer(engine).Render(f.request(44100, false)); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	a := rendertest.ReadWAV(t, f.output)
	if a.SampleRate != 44100 || a.Channels != 2 || a.BitDepth != 32 || a.Format != 3 {
		t.Errorf("header = %d Hz, %d channels, %d bits, format %d; want 44100 Hz, 2 channels, 32 bits, format 3",
			a.SampleRate, a.Channels, a.BitDepth, a.Format)
	}
	if a.Frames() != 44100 {
		t.Fatalf("Frames() = %d, want 44100", a.Frames())
	}

	// The note sounds for the first half second only.
	tests := []struct {
		frame int
		left  float32
		right float32
	}{
		{0, rendertest.NoteLevel, -rendertest.NoteLevel},
		{22049, rendertest.NoteLevel, -rendertest.NoteLevel},
		{22050, 0, 0},
		{44099, 0, 0},
	}
	for _, tt := range tests {
		if a.Left[tt.frame] != tt.left || a.Right[tt.frame] != tt.right {
			t.Errorf("frame %d = (%v, %v), want (%v, %v)",
				tt.frame, a.Left[tt.frame], a.Right[tt.frame], tt.left, tt.right)
		}
	}

	synths := engine.Synths()
	if len(synths) != 1 {
		t.Fatalf("engine built %d synths, want 1", len(synths))
	}
	synth := synths[0]
	if synth.Resets != 1 {
		t.Errorf("Resets = %d, want 1", synth.Resets)
	}
	// Two control changes, note on, note off.
	if len(synth.Messages) != 4 {
		t.Fatalf("synth received %d messages, want 4: %+v", len(synth.Messages), synth.Messages)
	}
	last := synth.Messages[3]
	if last.Command != 0x80 || last.Data1 != 60 || last.Frame != 22050 {
		t.Errorf("last message = %+v, want note off for key 60 at frame 22050", last)
	}
}

func TestRenderSampleRates(t *testing.T) {
	tests := []struct {
		rate   int
		frames int
	}{
		{8000, 8000},
		{22050, 22050},
		{48000, 48000},
		{96000, 96000},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.rate), func(t *testing.T) {
			f := newFixture(t, rendertest.OneNote())
			if err := quietRenderer(&rendertest.Engine{}).Render(f.request(tt.rate, false)); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			a := rendertest.ReadWAV(t, f.output)
			if a.SampleRate != tt.rate {
				t.Errorf("SampleRate = %d, want %d", a.SampleRate, tt.rate)
			}
			if a.Frames() != tt.frames {
				t.Errorf("Frames() = %d, want %d", a.Frames(), tt.frames)
			}
		})
	}
}

func TestRenderEffectsToggle(t *testing.T) {
	f := newFixture(t, rendertest.OneNote())
	r := quietRenderer(&rendertest.Engine{})

	dry := filepath.Join(f.dir, "dry.wav")
	wet := filepath.Join(f.dir, "wet.wav")

	req := f.request(22050, false)
	req.OutputPath = dry
	if err := r.Render(req); err != nil {
		t.Fatalf("Render(dry) error = %v", err)
	}
	req.Effects = true
	req.OutputPath = wet
	if err := r.Render(req); err != nil {
		t.Fatalf("Render(wet) error = %v", err)
	}

	d := rendertest.ReadWAV(t, dry)
	w := rendertest.ReadWAV(t, wet)
	if d.Frames() != w.Frames() {
		t.Fatalf("frame counts differ: %d and %d", d.Frames(), w.Frames())
	}
	if w.Left[0] != rendertest.NoteLevel+rendertest.EffectLevel {
		t.Errorf("wet left[0] = %v, want %v", w.Left[0], rendertest.NoteLevel+rendertest.EffectLevel)
	}
	if d.Left[0] != rendertest.NoteLevel {
		t.Errorf("dry left[0] = %v, want %v", d.Left[0], rendertest.NoteLevel)
	}
}

func TestRenderDeterministic(t *testing.T) {
	f := newFixture(t, rendertest.OneNote())
	r := quietRenderer(&rendertest.Engine{})

	if err := r.Render(f.request(44100, true)); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	first, err := os.ReadFile(f.output)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Render(f.request(44100, true)); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	second, err := os.ReadFile(f.output)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("two renders of the same inputs differ")
	}
}

func TestRenderZeroDuration(t *testing.T) {
	f := newFixture(t, rendertest.Empty())

	if err := quietRenderer(&rendertest.Engine{}).Render(f.request(44100, false)); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	info, err := os.Stat(f.output)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != rendertest.WAVHeaderSize {
		t.Errorf("file size = %d, want %d", info.Size(), rendertest.WAVHeaderSize)
	}
	if a := rendertest.ReadWAV(t, f.output); a.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", a.Frames())
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, f *fixture, req *render.Request)
		engine *rendertest.Engine
		kind   string
	}{
		{
			name: "zero sample rate",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.SampleRate = 0
				// Input checks come before any file is opened.
				req.BankPath = filepath.Join(f.dir, "missing.sf2")
			},
			kind: "input",
		},
		{
			name: "negative sample rate",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.SampleRate = -44100
			},
			kind: "input",
		},
		{
			name: "sample rate beyond header range",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.SampleRate = 1<<32 + 44100
			},
			kind: "input",
		},
		{
			name: "missing bank",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.BankPath = filepath.Join(f.dir, "missing.sf2")
				req.PerformancePath = filepath.Join(f.dir, "missing.mid")
			},
			kind: "bank",
		},
		{
			name: "corrupt bank",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.BankPath = rendertest.WriteFile(t, f.dir, "corrupt.sf2", []byte("not a soundfont"))
			},
			kind: "bank",
		},
		{
			name: "missing performance",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.PerformancePath = filepath.Join(f.dir, "missing.mid")
			},
			kind: "performance",
		},
		{
			name: "corrupt performance",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.PerformancePath = rendertest.WriteFile(t, f.dir, "corrupt.mid", []byte("MThd garbage"))
			},
			kind: "performance",
		},
		{
			name: "SMPTE performance",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.PerformancePath = rendertest.WriteFile(t, f.dir, "smpte.mid", rendertest.SMPTE())
			},
			kind: "performance",
		},
		{
			name:   "engine failure",
			engine: &rendertest.Engine{FailSynth: true},
			kind:   "engine",
		},
		{
			name: "missing destination directory",
			setup: func(t *testing.T, f *fixture, req *render.Request) {
				req.OutputPath = filepath.Join(f.dir, "no", "such", "dir", "out.wav")
			},
			kind: "output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, rendertest.OneNote())
			req := f.request(44100, false)
			if tt.setup != nil {
				tt.setup(t, &f, &req)
			}
			engine := tt.engine
			if engine == nil {
				engine = &rendertest.Engine{}
			}

			err := quietRenderer(engine).Render(req)
			if err == nil {
				t.Fatal("Render() error = nil, want error")
			}
			if got := render.Kind(err); got != tt.kind {
				t.Errorf("Kind(%v) = %q, want %q", err, got, tt.kind)
			}
			if _, statErr := os.Stat(req.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
				t.Errorf("destination exists after failed render (stat error = %v)", statErr)
			}
		})
	}
}

func TestRenderEngineErrorWrapsCause(t *testing.T) {
	f := newFixture(t, rendertest.OneNote())
	err := quietRenderer(&rendertest.Engine{FailSynth: true}).Render(f.request(44100, false))

	var engineErr *render.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Render() error = %v, want *EngineError", err)
	}
	if engineErr.Engine != rendertest.FakeName {
		t.Errorf("Engine = %q, want %q", engineErr.Engine, rendertest.FakeName)
	}
	if !errors.Is(err, rendertest.ErrFakeSynth) {
		t.Errorf("Render() error = %v, want ErrFakeSynth in chain", err)
	}
}

func TestRenderLeavesExistingDestinationOnFailure(t *testing.T) {
	f := newFixture(t, rendertest.OneNote())
	previous := []byte("previous render")
	if err := os.WriteFile(f.output, previous, 0644); err != nil {
		t.Fatal(err)
	}

	req := f.request(44100, false)
	req.BankPath = filepath.Join(f.dir, "missing.sf2")
	if err := quietRenderer(&rendertest.Engine{}).Render(req); err == nil {
		t.Fatal("Render() error = nil, want error")
	}

	got, err := os.ReadFile(f.output)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, previous) {
		t.Errorf("destination was modified: %q", got)
	}
}

func TestRenderOverwritesDestination(t *testing.T) {
	f := newFixture(t, rendertest.OneNote())
	if err := os.WriteFile(f.output, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := quietRenderer(&rendertest.Engine{}).Render(f.request(8000, false)); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if a := rendertest.ReadWAV(t, f.output); a.Frames() != 8000 {
		t.Errorf("Frames() = %d, want 8000", a.Frames())
	}
}

func TestRenderDestinationIsDirectory(t *testing.T) {
	f := newFixture(t, rendertest.OneNote())
	if err := os.Mkdir(f.output, 0755); err != nil {
		t.Fatal(err)
	}

	err := quietRenderer(&rendertest.Engine{}).Render(f.request(8000, false))
	if render.Kind(err) != "output" {
		t.Fatalf("Render() error = %v, want output error", err)
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}

func TestRenderFrameCountProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	dir := t.TempDir()
	bank := rendertest.WriteFile(t, dir, "bank.sf2", rendertest.SoundFont())
	r := quietRenderer(&rendertest.Engine{})

	properties.Property("output holds round(rate * duration) frames", prop.ForAll(
		func(rate int, ticks int) bool {
			midi := rendertest.MIDI(rendertest.Song{
				BPM:   120,
				Notes: []rendertest.Note{{Key: 60, Velocity: 100, Length: uint32(ticks)}},
			})
			perf := rendertest.WriteFile(t, dir, "song.mid", midi)
			out := filepath.Join(dir, "song.wav")

			if err := r.Render(render.Request{
				PerformancePath: perf,
				BankPath:        bank,
				OutputPath:      out,
				SampleRate:      rate,
			}); err != nil {
				t.Logf("Render() error = %v", err)
				return false
			}

			info, err := os.Stat(out)
			if err != nil {
				return false
			}
			frames := (info.Size() - rendertest.WAVHeaderSize) / 8

			// 120 BPM at 480 ticks per quarter is 960 ticks per second.
			want := float64(rate) * float64(ticks) / 960
			return math.Abs(float64(frames)-want) <= 0.5+1e-6
		},
		gen.IntRange(1000, 96000),
		gen.IntRange(1, 4*rendertest.Resolution),
	))

	properties.TestingRun(t)
}
