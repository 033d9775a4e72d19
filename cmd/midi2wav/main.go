// Package main is the entry point for the midi2wav CLI
package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-audio/wav"
	"github.com/james-see/midi2wav/pkg/api"
	"github.com/james-see/midi2wav/pkg/config"
	"github.com/james-see/midi2wav/pkg/render"
	"github.com/james-see/midi2wav/pkg/render/engines"
	"github.com/james-see/midi2wav/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// options holds flag values shared by the subcommands.
type options struct {
	configPath string
	logLevel   string
	engineName string

	bankPath   string
	outputFile string
	sampleRate string
	effects    bool
	serverPort int

	cfg *config.Config
}

func main() {
	err := render.Guard(func() error {
		return newRootCmd(os.Stdout, os.Stderr).Execute()
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, render.Describe(err))
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "midi2wav",
		Short: "Render MIDI files through a SoundFont into WAV",
		Long: `midi2wav renders a Standard MIDI File through a SoundFont 2 bank into a
stereo 32-bit float WAV file.

Examples:
  midi2wav render song.mid -s piano.sf2
  midi2wav render song.mid -s piano.sf2 -o song.wav -r 48000 -e
  midi2wav info song.mid
  midi2wav tui
  midi2wav serve --port 8080`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Arguments parsed; later failures are not usage errors.
			cmd.SilenceUsage = true
			return opts.setup(cmd, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	renderCmd := &cobra.Command{
		Use:   "render <performance.mid>",
		Short: "Render a MIDI file to WAV",
		Long: `Renders the whole performance through the SoundFont and writes a stereo
32-bit float WAV. The output defaults to the input path with a .wav extension.`,
		Args: cobra.ExactArgs(1),
		RunE: opts.runRender,
	}

	infoCmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Describe a MIDI, SoundFont or WAV file",
		Args:  cobra.ExactArgs(1),
		RunE:  opts.runInfo,
	}

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch interactive terminal UI",
		RunE:  opts.runTUI,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE:  opts.runServe,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.engineName, "engine", engines.MeltySynthName, "Synthesis engine")

	// render command
	renderCmd.Flags().StringVarP(&opts.bankPath, "soundfont", "s", "", "SoundFont bank (.sf2, .sf3, .sf)")
	renderCmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output .wav file path")
	renderCmd.Flags().StringVarP(&opts.sampleRate, "sample-rate", "r", strconv.Itoa(render.DefaultSampleRate), "Sample rate in Hz")
	renderCmd.Flags().BoolVarP(&opts.effects, "effects", "e", false, "Enable reverb and chorus")
	_ = renderCmd.MarkFlagRequired("soundfont")

	// info command
	infoCmd.Flags().StringVarP(&opts.sampleRate, "sample-rate", "r", strconv.Itoa(render.DefaultSampleRate), "Sample rate used for the frame count")

	// serve command
	serveCmd.Flags().IntVarP(&opts.serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)

	return rootCmd
}

// setup loads the config file, applies flags that were set explicitly and
// installs the default logger.
func (o *options) setup(cmd *cobra.Command, stderr io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("engine") {
		cfg.Engine = o.engineName
	}
	if flags.Changed("sample-rate") {
		rate, err := render.ParseSampleRate(o.sampleRate)
		if err != nil {
			return err
		}
		cfg.SampleRate = rate
	}
	if flags.Changed("effects") {
		cfg.Effects = o.effects
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	o.cfg = cfg
	return nil
}

func (o *options) getRenderer() (*render.Renderer, error) {
	engine, err := o.cfg.NewEngine()
	if err != nil {
		return nil, err
	}
	return render.New(engine), nil
}

func (o *options) getOutputPath(input string) string {
	if o.outputFile != "" {
		return o.outputFile
	}
	return render.OutputPath(input)
}

func (o *options) runRender(cmd *cobra.Command, args []string) error {
	renderer, err := o.getRenderer()
	if err != nil {
		return err
	}

	req := render.Request{
		PerformancePath: args[0],
		BankPath:        o.bankPath,
		OutputPath:      o.getOutputPath(args[0]),
		SampleRate:      o.cfg.SampleRate,
		Effects:         o.cfg.Effects,
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rendering %s -> %s\n", req.PerformancePath, req.OutputPath)
	if err := renderer.Render(req); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.Describe(nil))
	return nil
}

func (o *options) runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return &render.ResourceError{Kind: resourceKindFor(path), Path: path, Err: err}
	}

	format := render.DetectFormatFromContent(data)
	if format == render.FormatUnknown {
		format = render.DetectFormat(path)
	}

	out := cmd.OutOrStdout()
	switch format {
	case render.FormatMIDI:
		perf, err := render.ParsePerformance(data)
		if err != nil {
			return &render.ResourceError{Kind: render.ResourcePerformance, Path: path, Err: err}
		}
		fmt.Fprintf(out, "File:        %s\n", path)
		fmt.Fprintf(out, "Type:        MIDI (format %d)\n", perf.Format)
		fmt.Fprintf(out, "Tracks:      %d\n", perf.Tracks)
		fmt.Fprintf(out, "Resolution:  %d ticks/quarter\n", perf.Resolution)
		fmt.Fprintf(out, "Events:      %d\n", len(perf.Events))
		fmt.Fprintf(out, "Notes:       %d\n", perf.NoteCount())
		fmt.Fprintf(out, "Channels:    %v\n", perf.Channels())
		for _, tc := range perf.TempoChanges {
			fmt.Fprintf(out, "Tempo:       %.2f BPM at %s\n", tc.BPM(), tc.Time)
		}
		fmt.Fprintf(out, "Duration:    %s\n", perf.Duration)
		fmt.Fprintf(out, "Frames:      %d at %d Hz\n", render.FrameCount(o.cfg.SampleRate, perf.Duration), o.cfg.SampleRate)

	case render.FormatSoundFont:
		renderer, err := o.getRenderer()
		if err != nil {
			return err
		}
		bank, err := renderer.LoadBank(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "File:        %s\n", path)
		fmt.Fprintf(out, "Type:        SoundFont\n")
		fmt.Fprintf(out, "Name:        %s\n", bank.Name())
		fmt.Fprintf(out, "Presets:     %d\n", bank.PresetCount())

	case render.FormatWAV:
		d := wav.NewDecoder(bytes.NewReader(data))
		d.ReadInfo()
		if err := d.Err(); err != nil {
			return fmt.Errorf("failed to read WAV %s: %w", path, err)
		}
		fmt.Fprintf(out, "File:        %s\n", path)
		fmt.Fprintf(out, "Type:        WAV (format %d)\n", d.WavAudioFormat)
		fmt.Fprintf(out, "Channels:    %d\n", d.NumChans)
		fmt.Fprintf(out, "Bit depth:   %d\n", d.BitDepth)
		fmt.Fprintf(out, "Sample rate: %d Hz\n", d.SampleRate)
		if duration, err := d.Duration(); err == nil {
			fmt.Fprintf(out, "Duration:    %s\n", duration)
		}

	default:
		return fmt.Errorf("unrecognized file type: %s", path)
	}
	return nil
}

func resourceKindFor(path string) render.ResourceKind {
	if render.DetectFormat(path) == render.FormatSoundFont {
		return render.ResourceBank
	}
	return render.ResourcePerformance
}

func (o *options) runTUI(cmd *cobra.Command, args []string) error {
	renderer, err := o.getRenderer()
	if err != nil {
		return err
	}
	return tui.Run(renderer)
}

func (o *options) runServe(cmd *cobra.Command, args []string) error {
	renderer, err := o.getRenderer()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Starting API server on port %d...\n", o.serverPort)
	return api.StartServer(o.serverPort, renderer)
}
