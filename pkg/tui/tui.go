// Package tui provides a terminal user interface for midi2wav
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/midi2wav/pkg/render"
)

// Studio color scheme
var (
	// Primary colors - signal green and silver
	signalGreen = lipgloss.Color("#39FF14")
	amber       = lipgloss.Color("#FFBF00")
	silverGray  = lipgloss.Color("#C0C0C0")
	darkGray    = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(signalGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	fieldStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(signalGreen).
			Bold(true).
			PaddingLeft(2)

	valueStyle = lipgloss.NewStyle().
			Foreground(amber)

	statusStyle = lipgloss.NewStyle().
			Foreground(amber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(signalGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(signalGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateForm State = iota
	StateFilePicker
	StateRendering
)

// Field identifies a focusable row of the form
type Field int

const (
	FieldMIDI Field = iota
	FieldSoundFont
	FieldOutput
	FieldSampleRate
	FieldEffects
	FieldRender
	FieldExit
	fieldCount
)

var fieldLabels = [fieldCount]string{
	FieldMIDI:       "MIDI file",
	FieldSoundFont:  "SoundFont",
	FieldOutput:     "Output WAV",
	FieldSampleRate: "Sample rate",
	FieldEffects:    "Reverb & chorus",
	FieldRender:     "Render",
	FieldExit:       "Exit",
}

// Model represents the TUI model
type Model struct {
	state      State
	focus      Field
	picking    Field
	filePicker filepicker.Model
	spinner    spinner.Model
	output     textinput.Model
	sampleRate textinput.Model
	renderer   *render.Renderer

	midiPath string
	bankPath string
	effects  bool

	status     string
	lastOutput string
	err        error
	width      int
	height     int
}

// renderDoneMsg signals render completion
type renderDoneMsg struct {
	output string
	err    error
}

// New creates a new TUI model browsing from dir
func New(renderer *render.Renderer, dir string) Model {
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = render.MIDIExtensions
	fp.CurrentDirectory = dir

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(signalGreen)

	output := textinput.New()
	output.Placeholder = "out.wav"
	output.Prompt = ""

	rate := textinput.New()
	rate.Prompt = ""
	rate.CharLimit = 7
	rate.SetValue(strconv.Itoa(render.DefaultSampleRate))

	return Model{
		state:      StateForm,
		focus:      FieldMIDI,
		filePicker: fp,
		spinner:    s,
		output:     output,
		sampleRate: rate,
		renderer:   renderer,
	}
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		// Check for escape/quit keys first
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateForm
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
		}

		// Pass all other messages to the file picker
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		// Check if file was selected
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m = m.selectFile(path)
			return m, nil
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		if m.state == StateForm {
			return m.updateForm(msg)
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case renderDoneMsg:
		m.state = StateForm
		m.err = msg.err
		m.status = render.Describe(msg.err)
		if msg.err == nil {
			m.lastOutput = msg.output
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "shift+tab":
		return m.setFocus((m.focus + fieldCount - 1) % fieldCount)
	case "down", "tab":
		return m.setFocus((m.focus + 1) % fieldCount)
	case "enter":
		return m.activate()
	case " ", "space":
		if m.focus == FieldEffects {
			m.effects = !m.effects
			return m, nil
		}
	case "q":
		if !m.editing() {
			return m, tea.Quit
		}
	}

	// Typing goes to the focused text field
	var cmd tea.Cmd
	switch m.focus {
	case FieldOutput:
		m.output, cmd = m.output.Update(msg)
	case FieldSampleRate:
		m.sampleRate, cmd = m.sampleRate.Update(msg)
	}
	return m, cmd
}

func (m Model) editing() bool {
	return m.focus == FieldOutput || m.focus == FieldSampleRate
}

func (m Model) setFocus(f Field) (Model, tea.Cmd) {
	m.focus = f
	m.output.Blur()
	m.sampleRate.Blur()
	switch f {
	case FieldOutput:
		return m, m.output.Focus()
	case FieldSampleRate:
		return m, m.sampleRate.Focus()
	}
	return m, nil
}

func (m Model) activate() (tea.Model, tea.Cmd) {
	switch m.focus {
	case FieldMIDI, FieldSoundFont:
		m.picking = m.focus
		m.state = StateFilePicker
		// Set file picker filter based on the field
		if m.focus == FieldMIDI {
			m.filePicker.AllowedTypes = render.MIDIExtensions
		} else {
			m.filePicker.AllowedTypes = render.SoundFontExtensions
		}
		return m, m.filePicker.Init()
	case FieldEffects:
		m.effects = !m.effects
		return m, nil
	case FieldRender:
		m.state = StateRendering
		m.status = ""
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.performRender())
	case FieldExit:
		return m, tea.Quit
	default:
		return m.setFocus(m.focus + 1)
	}
}

// selectFile stores a picked file in the field that opened the picker
func (m Model) selectFile(path string) Model {
	switch m.picking {
	case FieldMIDI:
		m.midiPath = path
		if m.output.Value() == "" {
			m.output.SetValue(render.OutputPath(path))
		}
	case FieldSoundFont:
		m.bankPath = path
	}
	m.filePicker.CurrentDirectory = filepath.Dir(path)
	m.state = StateForm
	return m
}

// request collects the form into a render request
func (m Model) request() (render.Request, error) {
	req := render.Request{
		PerformancePath: m.midiPath,
		BankPath:        m.bankPath,
		OutputPath:      strings.TrimSpace(m.output.Value()),
		Effects:         m.effects,
	}
	switch {
	case req.PerformancePath == "":
		return req, &render.InputError{Field: "MIDI file", Err: fmt.Errorf("no file selected")}
	case req.BankPath == "":
		return req, &render.InputError{Field: "SoundFont", Err: fmt.Errorf("no file selected")}
	case req.OutputPath == "":
		return req, &render.InputError{Field: "output path", Err: fmt.Errorf("no destination given")}
	}
	rate, err := render.ParseSampleRate(m.sampleRate.Value())
	if err != nil {
		return req, err
	}
	req.SampleRate = rate
	return req, nil
}

func (m Model) performRender() tea.Cmd {
	req, err := m.request()
	renderer := m.renderer
	return func() tea.Msg {
		if err != nil {
			return renderDoneMsg{err: err}
		}
		err := render.Guard(func() error { return renderer.Render(req) })
		return renderDoneMsg{output: req.OutputPath, err: err}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	header := asciiLogo()
	s.WriteString(header)
	s.WriteString("\n")

	switch m.state {
	case StateForm:
		s.WriteString(m.viewForm())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateRendering:
		s.WriteString(m.viewRendering())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • space: toggle • esc: quit"))

	return s.String()
}

func (m Model) viewForm() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" RENDER MIDI TO WAV "))
	s.WriteString("\n\n")

	for f := Field(0); f < fieldCount; f++ {
		line := fmt.Sprintf("%-16s %s", fieldLabels[f], m.fieldValue(f))
		if f == FieldRender || f == FieldExit {
			line = fmt.Sprintf("[ %s ]", fieldLabels[f])
		}
		if f == m.focus {
			s.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			s.WriteString(fieldStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	if m.status != "" {
		if m.err != nil {
			s.WriteString(statusStyle.Render(errorStyle.Render("✗ " + m.status)))
		} else {
			s.WriteString(statusStyle.Render(successStyle.Render("✓ " + m.status)))
			s.WriteString("\n")
			s.WriteString(fieldStyle.Render("Output: " + m.lastOutput))
		}
	}

	return boxStyle.Render(s.String())
}

func (m Model) fieldValue(f Field) string {
	switch f {
	case FieldMIDI:
		return valueStyle.Render(displayPath(m.midiPath))
	case FieldSoundFont:
		return valueStyle.Render(displayPath(m.bankPath))
	case FieldOutput:
		return m.output.View()
	case FieldSampleRate:
		return m.sampleRate.View() + " Hz"
	case FieldEffects:
		if m.effects {
			return "[x]"
		}
		return "[ ]"
	}
	return ""
}

func displayPath(path string) string {
	if path == "" {
		return "(none)"
	}
	return filepath.Base(path)
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s ", strings.ToUpper(fieldLabels[m.picking]))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to form"))

	return s.String()
}

func (m Model) viewRendering() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" RENDERING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Rendering %s...\n", m.spinner.View(), filepath.Base(m.midiPath)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", filepath.Base(m.bankPath), filepath.Base(m.output.Value()))))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
  __  __ ___ ____ ___ ____   __        ___ __     __
 |  \/  |_ _|  _ \_ _|___ \  \ \      / / \\ \   / /
 | |\/| || || | | | |  __) |  \ \ /\ / / _ \\ \ / /
 | |  | || || |_| | | / __/    \ V  V / ___ \\ V /
 |_|  |_|___|____/___|_____|    \_/\_/_/   \_\\_/
`
	return lipgloss.NewStyle().Foreground(signalGreen).Render(logo)
}

// Run starts the TUI application
func Run(renderer *render.Renderer) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	p := tea.NewProgram(New(renderer, dir), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
