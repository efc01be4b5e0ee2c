// SPDX-License-Identifier: MIT

// Package chunker splits cleaned prose into the ordered chunk plan that
// drives synthesis and playback. Splitting is deterministic: identical
// input and parameters always yield identical chunk sequences. That
// property is what makes selective chunk regeneration safe.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy selects the splitting algorithm.
type Strategy string

const (
	StrategyParagraph Strategy = "paragraph"
	StrategySentence  Strategy = "sentence"
	StrategyHeading   Strategy = "heading"
	StrategyMaxChars  Strategy = "max_chars"
)

// DefaultMaxChars is the chunk size cap applied when the caller passes
// zero or a negative limit.
const DefaultMaxChars = 2000

// Chunk is one unit of the plan.
type Chunk struct {
	Index int
	Text  string
	Label string
}

var (
	sectionRe   = regexp.MustCompile(`^Section: (.+?)\.?$`)
	paraSplitRe = regexp.MustCompile(`\n\s*\n`)
)

// Split produces the chunk plan. Empty or whitespace-only text yields
// zero chunks; callers reject episode creation in that case.
func Split(text string, strategy Strategy, maxChars int, breathing Intensity) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// splitSeq numbers forced word splits across the whole plan so
	// "(split)" labels stay unique within an episode.
	var splitSeq int
	var chunks []Chunk
	switch strategy {
	case StrategySentence:
		chunks = splitBySentence(text, maxChars, &splitSeq)
	case StrategyHeading:
		chunks = splitByHeading(text, maxChars, &splitSeq)
	case StrategyMaxChars:
		chunks = splitByWords(text, maxChars, "", &splitSeq)
	default:
		chunks = splitByParagraph(text, maxChars, &splitSeq)
	}

	for i := range chunks {
		chunks[i].Index = i
		if chunks[i].Label == "" {
			chunks[i].Label = fmt.Sprintf("Part %d", i+1)
		}
		chunks[i].Text = applyBreathing(chunks[i].Text, breathing)
	}
	return chunks
}

// splitByParagraph emits one chunk per blank-line-separated paragraph.
// Oversized paragraphs degrade to sentence splitting, then to a hard
// word split.
func splitByParagraph(text string, maxChars int, splitSeq *int) []Chunk {
	var out []Chunk
	for _, para := range paragraphs(text) {
		if len(para) <= maxChars {
			out = append(out, Chunk{Text: para})
			continue
		}
		for _, packed := range packPieces(sentences(para), maxChars, " ") {
			if len(packed) <= maxChars {
				out = append(out, Chunk{Text: packed})
			} else {
				out = append(out, splitByWords(packed, maxChars, " (split)", splitSeq)...)
			}
		}
	}
	return out
}

// splitBySentence packs sentences greedily up to maxChars.
func splitBySentence(text string, maxChars int, splitSeq *int) []Chunk {
	joined := strings.Join(paragraphs(text), " ")
	var out []Chunk
	for _, packed := range packPieces(sentences(joined), maxChars, " ") {
		if len(packed) <= maxChars {
			out = append(out, Chunk{Text: packed})
		} else {
			out = append(out, splitByWords(packed, maxChars, " (split)", splitSeq)...)
		}
	}
	return out
}

// splitByHeading partitions along "Section: X." lines, applying
// paragraph packing within each section. Section chunks carry the
// heading text as their label.
func splitByHeading(text string, maxChars int, splitSeq *int) []Chunk {
	type section struct {
		label string
		lines []string
	}
	sections := []section{{}}
	for _, line := range strings.Split(text, "\n") {
		if m := sectionRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			sections = append(sections, section{label: m[1]})
		}
		sections[len(sections)-1].lines = append(sections[len(sections)-1].lines, line)
	}

	var out []Chunk
	for _, sec := range sections {
		body := strings.TrimSpace(strings.Join(sec.lines, "\n"))
		if body == "" {
			continue
		}
		packed := packPieces(paragraphs(body), maxChars, "\n\n")
		var secChunks []Chunk
		for _, piece := range packed {
			if len(piece) <= maxChars {
				secChunks = append(secChunks, Chunk{Text: piece})
			} else {
				secChunks = append(secChunks, splitByParagraph(piece, maxChars, splitSeq)...)
			}
		}
		for i := range secChunks {
			if sec.label == "" {
				continue
			}
			if len(secChunks) == 1 {
				secChunks[i].Label = sec.label
			} else {
				secChunks[i].Label = fmt.Sprintf("%s (Part %d)", sec.label, i+1)
			}
		}
		out = append(out, secChunks...)
	}
	return out
}

// splitByWords hard-splits on word boundaries, ignoring structure.
// labelSuffix marks chunks produced by a forced split; splitSeq numbers
// them across calls within one plan.
func splitByWords(text string, maxChars int, labelSuffix string, splitSeq *int) []Chunk {
	words := strings.Fields(text)
	var out []Chunk
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		label := ""
		if labelSuffix != "" {
			*splitSeq++
			label = fmt.Sprintf("Part %d%s", *splitSeq, labelSuffix)
		}
		out = append(out, Chunk{Text: cur.String(), Label: label})
		cur.Reset()
	}
	for _, w := range words {
		need := len(w)
		if cur.Len() > 0 {
			need += cur.Len() + 1
		}
		if need > maxChars && cur.Len() > 0 {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	flush()
	return out
}

// paragraphs splits on blank-line boundaries and trims each piece.
func paragraphs(text string) []string {
	var out []string
	for _, p := range paraSplitRe.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// packPieces joins consecutive pieces greedily while they fit in
// maxChars. A single piece larger than the limit passes through alone.
func packPieces(pieces []string, maxChars int, joiner string) []string {
	var out []string
	var cur string
	for _, p := range pieces {
		switch {
		case cur == "":
			cur = p
		case len(cur)+len(joiner)+len(p) <= maxChars:
			cur = cur + joiner + p
		default:
			out = append(out, cur)
			cur = p
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
