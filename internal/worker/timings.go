// SPDX-License-Identifier: MIT

package worker

import (
	"encoding/json"
	"math"
	"strings"
)

// WordTiming estimates when one word is spoken within a chunk.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// EstimateWordTimings distributes a chunk's measured duration across
// its words proportionally to character count (plus one for the gap).
// The engine gives no alignment data, so this is an estimate; it feeds
// follow-along highlighting, not anything sample-accurate.
func EstimateWordTimings(text string, durationSecs float64) []WordTiming {
	words := strings.Fields(text)
	if len(words) == 0 || durationSecs <= 0 {
		return nil
	}

	total := 0
	for _, w := range words {
		total += len([]rune(w)) + 1
	}

	out := make([]WordTiming, len(words))
	cursor := 0.0
	perChar := durationSecs / float64(total)
	for i, w := range words {
		span := float64(len([]rune(w))+1) * perChar
		out[i] = WordTiming{
			Word:  w,
			Start: round3(cursor),
			End:   round3(cursor + span),
		}
		cursor += span
	}
	// Absorb rounding drift so the last word ends exactly on time.
	out[len(out)-1].End = round3(durationSecs)
	return out
}

// WordTimingsJSON returns the timing list serialized for storage.
func WordTimingsJSON(text string, durationSecs float64) (string, error) {
	timings := EstimateWordTimings(text, durationSecs)
	if timings == nil {
		return "[]", nil
	}
	data, err := json.Marshal(timings)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
