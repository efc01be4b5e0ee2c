// SPDX-License-Identifier: MIT

package chunker

import (
	"strings"
	"unicode"
)

// nonTerminal lists dotted tokens that do not end a sentence.
var nonTerminal = map[string]bool{
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "prof.": true,
	"st.": true, "vs.": true, "etc.": true, "e.g.": true, "i.e.": true,
	"jr.": true, "sr.": true, "no.": true, "approx.": true, "fig.": true,
}

// sentences splits text on sentence terminators, keeping the terminator
// with its sentence. Decimal numbers and common abbreviations do not
// split. A trailing fragment without a terminator becomes its own
// sentence.
func sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && isDecimalPoint(runes, i) {
			continue
		}
		// Swallow terminator runs ("..." or "?!") in one boundary.
		end := i
		for end+1 < len(runes) && isTerminator(runes[end+1]) {
			end++
		}
		// A closing quote or bracket stays with the sentence.
		for end+1 < len(runes) && isCloser(runes[end+1]) {
			end++
		}
		if r == '.' && end == i && endsWithAbbreviation(runes, i) {
			continue
		}
		if end+1 < len(runes) && !startsNewSentence(runes, end+1) {
			i = end
			continue
		}
		s := strings.TrimSpace(string(runes[start : end+1]))
		if s != "" {
			out = append(out, s)
		}
		start = end + 1
		i = end
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '”'
}

// isDecimalPoint reports whether the dot at i sits between digits.
func isDecimalPoint(runes []rune, i int) bool {
	return i > 0 && i+1 < len(runes) &&
		unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1])
}

// endsWithAbbreviation reports whether the dot at i closes a known
// abbreviation or a single-letter initial.
func endsWithAbbreviation(runes []rune, i int) bool {
	wordStart := i
	for wordStart > 0 && !unicode.IsSpace(runes[wordStart-1]) {
		wordStart--
	}
	word := strings.ToLower(string(runes[wordStart : i+1]))
	if nonTerminal[word] {
		return true
	}
	// Single-letter initials like "J. Smith".
	return len([]rune(word)) == 2 && unicode.IsLetter([]rune(word)[0])
}

// startsNewSentence checks that what follows a boundary looks like the
// beginning of a sentence.
func startsNewSentence(runes []rune, i int) bool {
	if !unicode.IsSpace(runes[i]) {
		return false
	}
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	if i >= len(runes) {
		return true
	}
	r := runes[i]
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '“' || r == '('
}
