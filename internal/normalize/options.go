// SPDX-License-Identifier: MIT

// Package normalize turns raw imported documents (markdown, HTML, plain
// text) into clean prose for synthesis. The pipeline is deterministic:
// the same input and options always produce byte-identical output.
package normalize

// CodeBlockRule controls what happens to fenced and indented code.
type CodeBlockRule string

const (
	// CodeSkip removes code blocks entirely.
	CodeSkip CodeBlockRule = "skip"
	// CodeInline keeps the code's text verbatim.
	CodeInline CodeBlockRule = "inline"
	// CodeDescribe replaces each block with a short spoken phrase.
	CodeDescribe CodeBlockRule = "describe"
)

// Options is the cleaning configuration. The zero value is not useful;
// start from DefaultOptions.
type Options struct {
	CodeBlockRule       CodeBlockRule `json:"code_block_rule"`
	RemoveNonText       bool          `json:"remove_non_text"`
	SpeakURLs           bool          `json:"speak_urls"`
	HandleTables        bool          `json:"handle_tables"`
	ExpandAbbreviations bool          `json:"expand_abbreviations"`
	PreserveParentheses bool          `json:"preserve_parentheses"`
}

// DefaultOptions mirrors the seeded settings defaults.
func DefaultOptions() Options {
	return Options{
		CodeBlockRule:       CodeSkip,
		RemoveNonText:       false,
		SpeakURLs:           true,
		HandleTables:        true,
		ExpandAbbreviations: true,
		PreserveParentheses: true,
	}
}

// normalized returns opts with an invalid code block rule replaced by skip.
func (o Options) normalized() Options {
	switch o.CodeBlockRule {
	case CodeSkip, CodeInline, CodeDescribe:
	default:
		o.CodeBlockRule = CodeSkip
	}
	return o
}
