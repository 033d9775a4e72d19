package render

import "math"

// Sequencer feeds a performance's timeline into a Synth while filling
// sample buffers. It never loops; events past the end of the requested
// buffers are not played.
type Sequencer struct {
	synth      Synth
	sampleRate int

	events []Event
	frames []int64 // frame at which each event is due
	next   int
	frame  int64
}

// NewSequencer creates a sequencer driving synth at sampleRate.
func NewSequencer(synth Synth, sampleRate int) *Sequencer {
	return &Sequencer{synth: synth, sampleRate: sampleRate}
}

// Play resets the synth and rewinds the clock to the start of p.
func (s *Sequencer) Play(p *Performance) {
	s.synth.Reset()
	s.events = p.Events
	s.frames = make([]int64, len(p.Events))
	for i, ev := range p.Events {
		s.frames[i] = int64(math.Round(ev.Time.Seconds() * float64(s.sampleRate)))
	}
	s.next = 0
	s.frame = 0
}

// Render produces exactly len(left) frames into left and right.
func (s *Sequencer) Render(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	done := 0
	for done < n {
		for s.next < len(s.events) && s.frames[s.next] <= s.frame {
			s.dispatch(s.events[s.next])
			s.next++
		}

		chunk := n - done
		if s.next < len(s.events) {
			if until := s.frames[s.next] - s.frame; until < int64(chunk) {
				chunk = int(until)
			}
		}

		s.synth.Render(left[done:done+chunk], right[done:done+chunk])
		done += chunk
		s.frame += int64(chunk)
	}
}

// Position returns the number of frames rendered since Play.
func (s *Sequencer) Position() int64 {
	return s.frame
}

// Done reports whether every event of the performance has been dispatched.
func (s *Sequencer) Done() bool {
	return s.next >= len(s.events)
}

func (s *Sequencer) dispatch(ev Event) {
	if !ev.IsChannelMessage() {
		return
	}
	msg := ev.Message
	channel := int32(msg[0] & 0x0F)
	command := int32(msg[0] & 0xF0)
	var data1, data2 int32
	if len(msg) > 1 {
		data1 = int32(msg[1])
	}
	if len(msg) > 2 {
		data2 = int32(msg[2])
	}
	s.synth.ProcessMidiMessage(channel, command, data1, data2)
}
