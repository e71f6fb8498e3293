package decode

import (
	"strings"
	"unicode"
)

// NoSpeechText is returned by PostProcess when the transcript is empty after
// trimming, so callers never render an empty string.
const NoSpeechText = "[no speech detected]"

// PostProcess cleans raw decoder output into presentable text: whitespace is
// trimmed and collapsed, the first character and any character following a
// ". " sequence are capitalized, and a terminal period is appended when the
// text does not already end in '.', '!' or '?'.
func PostProcess(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	if text == "" {
		return NoSpeechText
	}

	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 2; i < len(runes); i++ {
		if runes[i-2] == '.' && runes[i-1] == ' ' {
			runes[i] = unicode.ToUpper(runes[i])
		}
	}

	last := runes[len(runes)-1]
	if last != '.' && last != '!' && last != '?' {
		runes = append(runes, '.')
	}

	return string(runes)
}
