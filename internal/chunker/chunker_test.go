// SPDX-License-Identifier: MIT

package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestParagraphStrategy(t *testing.T) {
	chunks := Split("A.\n\nB.\n\nC.", StrategyParagraph, 100, BreathingNone)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"A.", "B.", "C."}, texts(chunks))
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, "Part 1", chunks[0].Label)
	assert.Equal(t, "Part 3", chunks[2].Label)
}

func TestLongSentenceHardSplit(t *testing.T) {
	word := "tokenword"
	input := word
	for len(input) < 600 {
		input += " " + word
	}
	require.NotContains(t, input, ".")

	chunks := Split(input, StrategySentence, 200, BreathingNone)
	require.GreaterOrEqual(t, len(chunks), 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 200)
		assert.Contains(t, c.Label, "(split)")
	}
	assert.Equal(t, input, strings.Join(texts(chunks), " "))
}

func TestSplitLabelsUniqueAcrossParagraphs(t *testing.T) {
	long := "alpha"
	for len(long) < 120 {
		long += " alpha"
	}
	require.NotContains(t, long, ".")

	chunks := Split(long+"\n\n"+long, StrategyParagraph, 40, BreathingNone)
	require.GreaterOrEqual(t, len(chunks), 4)

	seen := make(map[string]bool)
	for _, c := range chunks {
		assert.Contains(t, c.Label, "(split)")
		assert.False(t, seen[c.Label], "duplicate label %q", c.Label)
		seen[c.Label] = true
	}
	assert.Equal(t, "Part 1 (split)", chunks[0].Label)
	assert.Equal(t, fmt.Sprintf("Part %d (split)", len(chunks)), chunks[len(chunks)-1].Label)
}

func TestSentencePacking(t *testing.T) {
	input := "First sentence here. Second sentence here. Third sentence here."
	chunks := Split(input, StrategySentence, 45, BreathingNone)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First sentence here. Second sentence here.", chunks[0].Text)
	assert.Equal(t, "Third sentence here.", chunks[1].Text)
}

func TestSentenceSplitRespectsAbbreviations(t *testing.T) {
	got := sentences("Dr. Smith arrived. The value was 3.14 exactly. See e.g. the appendix.")
	assert.Equal(t, []string{
		"Dr. Smith arrived.",
		"The value was 3.14 exactly.",
		"See e.g. the appendix.",
	}, got)
}

func TestHeadingStrategy(t *testing.T) {
	input := "Intro paragraph.\n\nSection: Getting Started.\n\nInstall it.\n\nSection: Usage.\n\nRun it."
	chunks := Split(input, StrategyHeading, 2000, BreathingNone)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Part 1", chunks[0].Label)
	assert.Equal(t, "Getting Started", chunks[1].Label)
	assert.Equal(t, "Usage", chunks[2].Label)
	assert.Contains(t, chunks[1].Text, "Install it.")
	assert.Contains(t, chunks[1].Text, "Section: Getting Started.")
}

func TestMaxCharsStrategy(t *testing.T) {
	input := "one two three four five six seven eight nine ten"
	chunks := Split(input, StrategyMaxChars, 20, BreathingNone)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 20)
	}
	assert.Equal(t, input, strings.Join(texts(chunks), " "))
}

func TestOversizedParagraphSubdivides(t *testing.T) {
	para := "Sentence number one right here. Sentence number two right here. Sentence number three right here."
	chunks := Split(para, StrategyParagraph, 70, BreathingNone)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 70)
	}
}

func TestDeterminism(t *testing.T) {
	input := "Section: One.\n\nAlpha beta gamma. Delta epsilon.\n\nSection: Two.\n\nMore text follows here."
	for _, strategy := range []Strategy{StrategyParagraph, StrategySentence, StrategyHeading, StrategyMaxChars} {
		first := Split(input, strategy, 50, BreathingNormal)
		second := Split(input, strategy, 50, BreathingNormal)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("strategy %s not deterministic (-first +second):\n%s", strategy, diff)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	assert.Empty(t, Split("", StrategyParagraph, 100, BreathingNone))
	assert.Empty(t, Split("   \n\n  ", StrategyParagraph, 100, BreathingNone))
}

func TestBreathing(t *testing.T) {
	input := "First point. Second point and third point."

	assert.Equal(t, input, applyBreathing(input, BreathingNone))

	light := applyBreathing(input, BreathingLight)
	assert.Equal(t, "First point.  Second point and third point.", light)

	normal := applyBreathing(input, BreathingNormal)
	assert.Equal(t, "First point.  Second point, and third point.", normal)

	heavy := applyBreathing("Note: first. Second — third.", BreathingHeavy)
	assert.Equal(t, "Note: ... first. ... Second ... third.", heavy)
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidStrategy("paragraph"))
	assert.True(t, ValidStrategy("max_chars"))
	assert.False(t, ValidStrategy("words"))
	assert.True(t, ValidIntensity("heavy"))
	assert.False(t, ValidIntensity("extreme"))
}
