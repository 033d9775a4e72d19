package render

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

// defaultMicrosPerQuarter is 120 BPM, the SMF default until a tempo event appears.
const defaultMicrosPerQuarter = 500000

// LoadPerformance reads and parses a Standard MIDI File. Failures are
// reported as a *ResourceError of kind ResourcePerformance.
func LoadPerformance(path string) (*Performance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ResourceError{Kind: ResourcePerformance, Path: path, Err: err}
	}
	perf, err := ParsePerformance(data)
	if err != nil {
		return nil, &ResourceError{Kind: ResourcePerformance, Path: path, Err: err}
	}
	return perf, nil
}

// ParsePerformance parses MIDI data into a merged, time-stamped timeline.
func ParsePerformance(data []byte) (perf *Performance, err error) {
	// The smf reader panics on SMPTE headers and some corrupt track data.
	defer func() {
		if p := recover(); p != nil {
			perf, err = nil, fmt.Errorf("malformed MIDI: %v", p)
		}
	}()

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTimeFormat, s.TimeFormat)
	}
	resolution := mt.Resolution()
	if resolution == 0 {
		return nil, ErrInvalidResolution
	}

	perf = &Performance{
		Format:     s.Format(),
		Tracks:     len(s.Tracks),
		Resolution: resolution,
	}

	// Collect absolute ticks per track, then merge. The stable sort keeps
	// track order for simultaneous events.
	var events []Event
	for trackNo, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			events = append(events, Event{
				Tick:    tick,
				Track:   trackNo,
				Message: append([]byte(nil), ev.Message...),
			})
		}
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		switch {
		case a.Tick < b.Tick:
			return -1
		case a.Tick > b.Tick:
			return 1
		default:
			return 0
		}
	})

	tempo := uint32(defaultMicrosPerQuarter)
	var lastTick int64
	var micros float64
	for i := range events {
		ev := &events[i]
		micros += float64(ev.Tick-lastTick) * float64(tempo) / float64(resolution)
		lastTick = ev.Tick
		ev.Time = microsToDuration(micros)

		if t, ok := tempoFromMessage(ev.Message); ok {
			tempo = t
			perf.TempoChanges = append(perf.TempoChanges, TempoChange{
				Tick:             ev.Tick,
				Time:             ev.Time,
				MicrosPerQuarter: t,
			})
		}
	}

	perf.Events = events
	if len(events) > 0 {
		perf.Duration = events[len(events)-1].Time
	}
	return perf, nil
}

// tempoFromMessage decodes a Set Tempo meta message (FF 51 03 tt tt tt).
func tempoFromMessage(msg []byte) (uint32, bool) {
	if len(msg) < 6 || msg[0] != 0xFF || msg[1] != 0x51 || msg[2] != 0x03 {
		return 0, false
	}
	microsPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
	if microsPerBeat == 0 {
		return 0, false
	}
	return microsPerBeat, true
}

func microsToDuration(micros float64) time.Duration {
	return time.Duration(math.Round(micros * float64(time.Microsecond)))
}

// FrameCount returns the number of frames needed to hold d at sampleRate.
func FrameCount(sampleRate int, d time.Duration) int {
	if sampleRate <= 0 || d <= 0 {
		return 0
	}
	return int(math.Round(float64(sampleRate) * d.Seconds()))
}
