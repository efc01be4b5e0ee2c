// SPDX-License-Identifier: MIT

package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// abbreviations maps spoken-hostile shorthand to its expansion. Keys are
// matched case-insensitively on word boundaries, longest key first so
// "e.g." wins over "e.g".
var abbreviations = map[string]string{
	"e.g.":    "for example",
	"i.e.":    "that is",
	"etc.":    "et cetera",
	"et al.":  "and others",
	"vs.":     "versus",
	"approx.": "approximately",
	"k8s":     "kubernetes",
	"db":      "database",
	"config":  "configuration",
	"repo":    "repository",
	"auth":    "authentication",
	"env":     "environment",
	"dr.":     "doctor",
	"mr.":     "mister",
	"mrs.":    "missus",
	"prof.":   "professor",
}

var abbrevPatterns = buildAbbrevPatterns()

type abbrevPattern struct {
	re          *regexp.Regexp
	replacement string
}

func buildAbbrevPatterns() []abbrevPattern {
	keys := make([]string, 0, len(abbreviations))
	for k := range abbreviations {
		keys = append(keys, k)
	}
	// Longest first; ties broken lexically for determinism.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := make([]abbrevPattern, 0, len(keys))
	for _, k := range keys {
		// \b does not sit after a trailing dot, so anchor the end on a
		// lookahead-free boundary class instead.
		pattern := `(?i)\b` + regexp.QuoteMeta(k)
		if !strings.HasSuffix(k, ".") {
			pattern += `\b`
		}
		out = append(out, abbrevPattern{
			re:          regexp.MustCompile(pattern),
			replacement: abbreviations[k],
		})
	}
	return out
}

// expandAbbreviations applies the dictionary, preserving leading-letter
// capitalization of the matched token.
func expandAbbreviations(s string) string {
	for _, p := range abbrevPatterns {
		s = p.re.ReplaceAllStringFunc(s, func(match string) string {
			return matchCase(match, p.replacement)
		})
	}
	return s
}

func matchCase(match, replacement string) string {
	r := []rune(match)
	if len(r) > 0 && unicode.IsUpper(r[0]) {
		rep := []rune(replacement)
		rep[0] = unicode.ToUpper(rep[0])
		return string(rep)
	}
	return replacement
}
