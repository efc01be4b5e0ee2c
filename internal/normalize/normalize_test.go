// SPDX-License-Identifier: MIT

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDeterministic(t *testing.T) {
	input := "# Title\n\nSome *emphasized* text with [a link](https://example.com/page).\n\n```\ncode\n```\n\nFinal paragraph."
	opts := DefaultOptions()
	first := Normalize(input, opts)
	second := Normalize(input, opts)
	assert.Equal(t, first, second)
}

func TestNormalizeHeadings(t *testing.T) {
	got := Normalize("# Hello World\n\nBody text.", DefaultOptions())
	assert.Equal(t, "Section: Hello World.\n\nBody text.", got)
}

func TestNormalizeCodeBlockRules(t *testing.T) {
	input := "before\n\n```go\nfmt.Println(1)\n```\n\nafter"

	opts := DefaultOptions()
	opts.CodeBlockRule = CodeSkip
	assert.Equal(t, "before\n\nafter", Normalize(input, opts))

	opts.CodeBlockRule = CodeDescribe
	assert.Equal(t, "before\n\nCode block omitted.\n\nafter", Normalize(input, opts))

	opts.CodeBlockRule = CodeInline
	assert.Contains(t, Normalize(input, opts), "fmt.Println(1)")
}

func TestNormalizeLinks(t *testing.T) {
	input := "See [the docs](https://example.com/docs) for details."

	opts := DefaultOptions()
	opts.SpeakURLs = true
	assert.Equal(t, "See the docs (https://example.com/docs) for details.", Normalize(input, opts))

	opts.SpeakURLs = false
	assert.Equal(t, "See the docs for details.", Normalize(input, opts))
}

func TestNormalizeImages(t *testing.T) {
	input := "Look: ![a chart](chart.png) here."

	opts := DefaultOptions()
	opts.RemoveNonText = false
	assert.Equal(t, "Look: a chart here.", Normalize(input, opts))

	opts.RemoveNonText = true
	assert.Equal(t, "Look: here.", Normalize(input, opts))
}

func TestNormalizeParentheses(t *testing.T) {
	input := "Alpha (an aside) beta."

	opts := DefaultOptions()
	opts.PreserveParentheses = true
	assert.Equal(t, "Alpha (an aside) beta.", Normalize(input, opts))

	opts.PreserveParentheses = false
	assert.Equal(t, "Alpha beta.", Normalize(input, opts))
}

func TestNormalizeAbbreviations(t *testing.T) {
	opts := DefaultOptions()
	opts.ExpandAbbreviations = true

	got := Normalize("Use k8s, e.g. when scaling.", opts)
	assert.Equal(t, "Use kubernetes, for example when scaling.", got)

	// Leading capitalization is preserved.
	got = Normalize("E.g. this works.", opts)
	assert.Equal(t, "For example this works.", got)

	opts.ExpandAbbreviations = false
	got = Normalize("Use k8s.", opts)
	assert.Equal(t, "Use k8s.", got)
}

func TestNormalizeTables(t *testing.T) {
	input := "| Name | Value |\n|---|---|\n| alpha | 1 |\n| beta | 2 |"

	opts := DefaultOptions()
	opts.HandleTables = true
	got := Normalize(input, opts)
	assert.Equal(t, "Name: alpha; Value: 1.\nName: beta; Value: 2.", got)

	opts.HandleTables = false
	got = Normalize(input, opts)
	assert.Equal(t, "Name Value\nalpha 1\nbeta 2", got)
}

func TestNormalizeLists(t *testing.T) {
	input := "Steps:\n\n- first step\n- second step\n1. third step"
	got := Normalize(input, DefaultOptions())
	assert.Equal(t, "Steps:\n\nfirst step\nsecond step\nthird step", got)
}

func TestNormalizeHTMLEntity(t *testing.T) {
	got := Normalize("Fish &amp; chips.", DefaultOptions())
	assert.Equal(t, "Fish & chips.", got)
}

func TestNormalizeEmptyInput(t *testing.T) {
	assert.Equal(t, "", Normalize("", DefaultOptions()))
	assert.Equal(t, "", Normalize("   \n\n\t  ", DefaultOptions()))
}

func TestNormalizeHTMLDocument(t *testing.T) {
	input := `<html><head><title>My Page</title></head><body>
<nav>home | about</nav>
<div><p>First paragraph with enough text to matter.</p>
<h2>Details</h2>
<p>Second paragraph.</p></div>
</body></html>`

	got := Normalize(input, DefaultOptions())
	assert.Contains(t, got, "First paragraph with enough text to matter.")
	assert.Contains(t, got, "Section: Details.")
	assert.Contains(t, got, "Second paragraph.")
	assert.NotContains(t, got, "home | about")
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<html><body><p>x</p></body></html>"))
	assert.False(t, LooksLikeHTML("# Markdown\n\nJust text with a < sign."))
}

func TestExtractArticleTitle(t *testing.T) {
	title, _ := ExtractArticle("<html><head><title>The Title</title></head><body><div><p>Body.</p></div></body></html>")
	assert.Equal(t, "The Title", title)

	title, _ = ExtractArticle("<html><body><h1>Heading Title</h1><div><p>Body.</p></div></body></html>")
	assert.Equal(t, "Heading Title", title)
}
