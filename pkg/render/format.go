package render

import (
	"path/filepath"
	"strings"
)

// Format represents a file format
type Format string

const (
	FormatMIDI      Format = "midi"
	FormatSoundFont Format = "soundfont"
	FormatWAV       Format = "wav"
	FormatUnknown   Format = "unknown"
)

// Extensions accepted for each input or output format.
var (
	MIDIExtensions      = []string{".mid", ".midi"}
	SoundFontExtensions = []string{".sf", ".sf2", ".sf3"}
	WAVExtensions       = []string{".wav"}
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".sf", ".sf2", ".sf3":
		return FormatSoundFont
	case ".wav":
		return FormatWAV
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	if string(data[:4]) == "RIFF" && len(data) >= 12 {
		switch string(data[8:12]) {
		case "sfbk":
			return FormatSoundFont
		case "WAVE":
			return FormatWAV
		}
	}

	return FormatUnknown
}

// OutputPath derives a default .wav destination next to the input.
func OutputPath(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".wav"
}

// GetSupportedFormats returns the input and output formats in display order
func GetSupportedFormats() map[string][]string {
	return map[string][]string{
		"performance": MIDIExtensions,
		"bank":        SoundFontExtensions,
		"output":      WAVExtensions,
	}
}
