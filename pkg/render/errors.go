package render

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrInvalidSampleRate is wrapped by InputError for rates that are not
	// whole numbers between 1 and MaxSampleRate.
	ErrInvalidSampleRate = errors.New("sample rate must be a positive integer no larger than 2147483647")

	// ErrUnsupportedTimeFormat is returned for SMPTE-timed MIDI files.
	ErrUnsupportedTimeFormat = errors.New("unsupported MIDI time format")

	// ErrInvalidResolution is returned when the MIDI header declares zero ticks per quarter note.
	ErrInvalidResolution = errors.New("invalid MIDI resolution")

	// ErrBufferMismatch is returned when left and right buffers differ in length.
	ErrBufferMismatch = errors.New("left and right buffers differ in length")

	// ErrUnsupportedBank is returned when an engine is handed a bank it did not load.
	ErrUnsupportedBank = errors.New("bank was not loaded by this engine")
)

// ResourceKind tells which input file failed to load.
type ResourceKind string

const (
	ResourceBank        ResourceKind = "bank"
	ResourcePerformance ResourceKind = "performance"
)

// ResourceError reports a missing, unreadable or malformed input file.
type ResourceError struct {
	Kind ResourceKind
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("failed to load %s %q: %v", e.Kind, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// InputError reports a configuration value that is not acceptable.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// EngineError reports that the synthesis engine could not be built from the bank and config.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s engine: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// OutputError reports that the destination could not be created, written or finalized.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("failed to write %q: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// PanicError carries a recovered panic and the stack at the point of recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unexpected fault: %v", e.Value)
}

// Guard runs fn and turns a panic into a *PanicError.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Kind returns a short machine-readable name for the error class.
func Kind(err error) string {
	var (
		resErr    *ResourceError
		inputErr  *InputError
		engineErr *EngineError
		outErr    *OutputError
		panicErr  *PanicError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &inputErr):
		return "input"
	case errors.As(err, &resErr):
		return string(resErr.Kind)
	case errors.As(err, &engineErr):
		return "engine"
	case errors.As(err, &outErr):
		return "output"
	case errors.As(err, &panicErr):
		return "panic"
	default:
		return "unknown"
	}
}

// Describe returns the single-line message shown to the user.
func Describe(err error) string {
	if err == nil {
		return "Done"
	}
	switch Kind(err) {
	case "input":
		return "Invalid input: " + err.Error()
	case string(ResourceBank):
		return "SoundFont error: " + err.Error()
	case string(ResourcePerformance):
		return "MIDI error: " + err.Error()
	case "engine":
		return "Synthesizer error: " + err.Error()
	case "output":
		return "Output error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
