// SPDX-License-Identifier: MIT

package chunker

import "regexp"

// Intensity selects how much pause text the breathing pass inserts
// between sentences. All markers are plain punctuation and spacing the
// engine reads as pauses; no control codes.
type Intensity string

const (
	BreathingNone   Intensity = "none"
	BreathingLight  Intensity = "light"
	BreathingNormal Intensity = "normal"
	BreathingHeavy  Intensity = "heavy"
)

var (
	sentenceGapRe = regexp.MustCompile(`([.!?])\s+`)
	conjunctionRe = regexp.MustCompile(`([^,;:\s])\s+(and|but|or|so|because|while|although)\s`)
	colonPauseRe  = regexp.MustCompile(`:\s+`)
	dashPauseRe   = regexp.MustCompile(`\s+[—–]\s+|\s+--\s+`)
)

// applyBreathing rewrites a chunk's text with pause markers. The pass
// is a pure string transform, so identical input and intensity always
// produce identical output.
func applyBreathing(text string, intensity Intensity) string {
	switch intensity {
	case BreathingLight:
		return sentenceGapRe.ReplaceAllString(text, "$1  ")
	case BreathingNormal:
		text = conjunctionRe.ReplaceAllString(text, "$1, $2 ")
		return sentenceGapRe.ReplaceAllString(text, "$1  ")
	case BreathingHeavy:
		// Sentence gaps first: the colon and dash pauses insert
		// ellipses the gap pattern would otherwise re-expand.
		text = conjunctionRe.ReplaceAllString(text, "$1, $2 ")
		text = sentenceGapRe.ReplaceAllString(text, "$1 ... ")
		text = colonPauseRe.ReplaceAllString(text, ": ... ")
		return dashPauseRe.ReplaceAllString(text, " ... ")
	default:
		return text
	}
}

// Intensities lists the accepted values for validation at the API edge.
func Intensities() []string {
	return []string{
		string(BreathingNone),
		string(BreathingLight),
		string(BreathingNormal),
		string(BreathingHeavy),
	}
}

// ValidIntensity reports whether s names a known intensity.
func ValidIntensity(s string) bool {
	switch Intensity(s) {
	case BreathingNone, BreathingLight, BreathingNormal, BreathingHeavy:
		return true
	}
	return false
}

// ValidStrategy reports whether s names a known chunking strategy.
func ValidStrategy(s string) bool {
	switch Strategy(s) {
	case StrategyParagraph, StrategySentence, StrategyHeading, StrategyMaxChars:
		return true
	}
	return false
}
