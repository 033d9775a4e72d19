// Package rendertest provides fixtures for testing the render pipeline:
// in-memory SoundFont and MIDI files and a deterministic fake engine.
package rendertest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// SoundFont generator operators used by the fixture.
const (
	genReverbEffectsSend = 16
	genInstrument        = 41
	genSampleID          = 53
	genSampleModes       = 54
)

// Sine sample layout. The period divides the loop so the loop is seamless.
const (
	sineLength     = 2000
	sinePeriod     = 50
	sineLoopStart  = 100
	sineLoopEnd    = 1900
	sineSampleRate = 22050
	sineRootKey    = 60
	samplePadding  = 46 // zero samples required after every sample
)

// SoundFont returns a minimal but complete SoundFont 2 bank: one preset
// (bank 0, program 0) playing a looped sine wave across the whole keyboard
// with a 50% reverb send.
func SoundFont() []byte {
	var info bytes.Buffer
	writeChunk(&info, "ifil", []byte{2, 0, 1, 0})
	writeChunk(&info, "isng", []byte("EMU8000\x00"))
	writeChunk(&info, "INAM", []byte("Test Bank\x00"))

	samples := make([]int16, sineLength+samplePadding)
	for i := 0; i < sineLength; i++ {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*float64(i)/sinePeriod))
	}
	var smpl bytes.Buffer
	_ = binary.Write(&smpl, binary.LittleEndian, samples)
	var sdta bytes.Buffer
	writeChunk(&sdta, "smpl", smpl.Bytes())

	var pdta bytes.Buffer
	writeChunk(&pdta, "phdr", concat(
		presetHeader("Sine Preset", 0, 0, 0),
		presetHeader("EOP", 0, 0, 1),
	))
	writeChunk(&pdta, "pbag", concat(bag(0, 0), bag(1, 0)))
	writeChunk(&pdta, "pmod", make([]byte, 10))
	writeChunk(&pdta, "pgen", concat(
		generator(genInstrument, 0),
		generator(0, 0),
	))
	writeChunk(&pdta, "inst", concat(
		instrumentHeader("Sine Instrument", 0),
		instrumentHeader("EOI", 1),
	))
	writeChunk(&pdta, "ibag", concat(bag(0, 0), bag(3, 0)))
	writeChunk(&pdta, "imod", make([]byte, 10))
	writeChunk(&pdta, "igen", concat(
		generator(genReverbEffectsSend, 500),
		generator(genSampleModes, 1),
		generator(genSampleID, 0),
		generator(0, 0),
	))
	writeChunk(&pdta, "shdr", concat(
		sampleHeader("Sine", 0, sineLength, sineLoopStart, sineLoopEnd, sineSampleRate, sineRootKey),
		sampleHeader("EOS", 0, 0, 0, 0, 0, 0),
	))

	var body bytes.Buffer
	body.WriteString("sfbk")
	writeList(&body, "INFO", info.Bytes())
	writeList(&body, "sdta", sdta.Bytes())
	writeList(&body, "pdta", pdta.Bytes())

	var out bytes.Buffer
	writeChunk(&out, "RIFF", body.Bytes())
	return out.Bytes()
}

func writeChunk(w *bytes.Buffer, id string, data []byte) {
	w.WriteString(id)
	_ = binary.Write(w, binary.LittleEndian, uint32(len(data)))
	w.Write(data)
	if len(data)%2 == 1 {
		w.WriteByte(0)
	}
}

func writeList(w *bytes.Buffer, listType string, data []byte) {
	writeChunk(w, "LIST", append([]byte(listType), data...))
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func fixedName(name string) []byte {
	b := make([]byte, 20)
	copy(b, name)
	return b
}

func presetHeader(name string, preset, bank, bagIndex uint16) []byte {
	var b bytes.Buffer
	b.Write(fixedName(name))
	_ = binary.Write(&b, binary.LittleEndian, []uint16{preset, bank, bagIndex})
	_ = binary.Write(&b, binary.LittleEndian, []uint32{0, 0, 0}) // library, genre, morphology
	return b.Bytes()
}

func instrumentHeader(name string, bagIndex uint16) []byte {
	var b bytes.Buffer
	b.Write(fixedName(name))
	_ = binary.Write(&b, binary.LittleEndian, bagIndex)
	return b.Bytes()
}

func bag(genIndex, modIndex uint16) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, []uint16{genIndex, modIndex})
	return b.Bytes()
}

func generator(op uint16, amount int16) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, op)
	_ = binary.Write(&b, binary.LittleEndian, amount)
	return b.Bytes()
}

func sampleHeader(name string, start, end, loopStart, loopEnd, rate uint32, rootKey uint8) []byte {
	var b bytes.Buffer
	b.Write(fixedName(name))
	_ = binary.Write(&b, binary.LittleEndian, []uint32{start, end, loopStart, loopEnd, rate})
	b.WriteByte(rootKey)
	// pitch correction, sample link, sample type (mono)
	b.WriteByte(0)
	_ = binary.Write(&b, binary.LittleEndian, []uint16{0, 1})
	return b.Bytes()
}
