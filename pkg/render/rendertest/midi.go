package rendertest

import (
	"bytes"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Resolution is the ticks per quarter note of generated MIDI files.
const Resolution = 480

// Note is a note placed on the timeline in ticks.
type Note struct {
	Channel  uint8
	Key      uint8
	Velocity uint8
	Start    uint32
	Length   uint32
}

// Song describes a single-track MIDI file.
type Song struct {
	BPM      float64
	Notes    []Note
	Controls []Control
	Tempos   []Tempo
	End      uint32 // tick of the final event; extended to cover every note
}

// Control is a control change placed on the timeline.
type Control struct {
	Channel    uint8
	Controller uint8
	Value      uint8
	Tick       uint32
}

// Tempo is a tempo change placed on the timeline.
type Tempo struct {
	BPM  float64
	Tick uint32
}

type timed struct {
	tick uint32
	msg  []byte
}

// MIDI encodes the song as a format 0 Standard MIDI File.
func MIDI(song Song) []byte {
	if song.BPM <= 0 {
		song.BPM = 120
	}

	events := []timed{{0, tempoMessage(song.BPM)}}
	for _, t := range song.Tempos {
		events = append(events, timed{t.Tick, tempoMessage(t.BPM)})
	}
	for _, c := range song.Controls {
		events = append(events, timed{c.Tick, midi.ControlChange(c.Channel, c.Controller, c.Value)})
	}
	end := song.End
	for _, n := range song.Notes {
		events = append(events,
			timed{n.Start, midi.NoteOn(n.Channel, n.Key, n.Velocity)},
			timed{n.Start + n.Length, midi.NoteOff(n.Channel, n.Key)},
		)
		end = max(end, n.Start+n.Length)
	}
	slices.SortStableFunc(events, func(a, b timed) int {
		return int(a.tick) - int(b.tick)
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)

	var track smf.Track
	var current uint32
	for _, ev := range events {
		track.Add(ev.tick-current, ev.msg)
		current = ev.tick
	}
	end = max(end, current)
	// A marker pins the last event to End so the length does not depend
	// on how the end-of-track event is read back.
	track.Add(end-current, smf.Message([]byte{0xFF, 0x06, 0x00}))
	track.Close(0)

	if err := s.Add(track); err != nil {
		panic(err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Empty returns a MIDI file whose only track ends at tick zero.
func Empty() []byte {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)
	var track smf.Track
	track.Close(0)
	if err := s.Add(track); err != nil {
		panic(err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// OneNote is a one second song at 120 BPM with middle C held for half a
// second and reverb/chorus sends fully open.
func OneNote() []byte {
	return MIDI(Song{
		BPM: 120,
		Controls: []Control{
			{Channel: 0, Controller: 91, Value: 127},
			{Channel: 0, Controller: 93, Value: 127},
		},
		Notes: []Note{{Channel: 0, Key: 60, Velocity: 100, Start: 0, Length: Resolution}},
		End:   2 * Resolution,
	})
}

func tempoMessage(bpm float64) []byte {
	microsPerBeat := uint32(60000000.0 / bpm)
	return []byte{
		0xFF, 0x51, 0x03,
		byte(microsPerBeat >> 16),
		byte(microsPerBeat >> 8),
		byte(microsPerBeat),
	}
}

// SMPTE returns a single-track file whose header uses SMPTE time division
// (25 fps, 40 ticks per frame) instead of ticks per quarter note.
func SMPTE() []byte {
	return []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0xE7, 0x28,
		'M', 'T', 'r', 'k', 0, 0, 0, 4, 0x00, 0xFF, 0x2F, 0x00,
	}
}
