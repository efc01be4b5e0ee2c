// SPDX-License-Identifier: MIT

package normalize

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	fenceRe      = regexp.MustCompile("^(```+|~~~+)")
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listItemRe   = regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+(.*)$`)
	blockquoteRe = regexp.MustCompile(`^>\s?(.*)$`)
	hruleRe      = regexp.MustCompile(`^([-*_]\s*){3,}$`)
	tableRowRe   = regexp.MustCompile(`^\|.*\|$`)
	tableSepRe   = regexp.MustCompile(`^[\s|:-]+$`)

	imageRe     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe      = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)[^)]*\)`)
	bareURLRe   = regexp.MustCompile(`https?://[^\s)\]}>"']+`)
	inlineTagRe = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	commentRe   = regexp.MustCompile(`(?s)<!--.*?-->`)
	parenRe     = regexp.MustCompile(`\s*\([^()]*\)`)
	boldRe      = regexp.MustCompile(`(\*\*|__)(.*?)(\*\*|__)`)
	italicRe    = regexp.MustCompile(`(\*|_)([^*_]+)(\*|_)`)
	strikeRe    = regexp.MustCompile(`~~(.*?)~~`)
	inlineCode  = regexp.MustCompile("`([^`]*)`")
	spaceRunRe  = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans raw text into speakable prose. It never fails;
// malformed input degrades to best-effort cleanup. Headings survive as
// "Section: X." lines so the chunker can anchor on them.
func Normalize(raw string, opts Options) string {
	opts = opts.normalized()

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	if LooksLikeHTML(text) {
		if _, body := ExtractArticle(text); body != "" {
			text = body
		}
	}
	text = commentRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	var (
		inFence  bool
		codeBuf  []string
		tableBuf []string
	)
	flushTable := func() {
		if len(tableBuf) == 0 {
			return
		}
		out = append(out, renderTable(tableBuf, opts)...)
		tableBuf = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if fenceRe.MatchString(trimmed) {
			if inFence {
				out = append(out, closeCodeBlock(codeBuf, opts)...)
				codeBuf = nil
			}
			inFence = !inFence
			continue
		}
		if inFence {
			if opts.CodeBlockRule == CodeInline {
				codeBuf = append(codeBuf, line)
			}
			continue
		}

		if tableRowRe.MatchString(trimmed) {
			tableBuf = append(tableBuf, trimmed)
			continue
		}
		flushTable()

		switch {
		case trimmed == "":
			out = append(out, "")
			continue
		case hruleRe.MatchString(trimmed):
			continue
		case strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    "):
			// indented code block
			switch opts.CodeBlockRule {
			case CodeInline:
				out = append(out, strings.TrimSpace(cleanInline(line, opts)))
			case CodeDescribe:
				if len(out) == 0 || out[len(out)-1] != codeOmitted {
					out = append(out, codeOmitted)
				}
			}
			continue
		}

		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			title := strings.TrimSpace(cleanInline(m[2], opts))
			if title != "" {
				out = append(out, "Section: "+strings.TrimRight(title, ".")+".")
			}
			continue
		}
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(cleanInline(m[3], opts))
			if item != "" {
				out = append(out, item)
			}
			continue
		}
		if m := blockquoteRe.FindStringSubmatch(trimmed); m != nil {
			trimmed = m[1]
		}

		out = append(out, strings.TrimSpace(cleanInline(trimmed, opts)))
	}
	if inFence {
		out = append(out, closeCodeBlock(codeBuf, opts)...)
	}
	flushTable()

	result := strings.Join(out, "\n")
	if !opts.PreserveParentheses {
		result = parenRe.ReplaceAllString(result, "")
	}
	if opts.ExpandAbbreviations {
		result = expandAbbreviations(result)
	}
	result = norm.NFC.String(result)
	result = spaceRunRe.ReplaceAllString(result, " ")
	result = blankRunRe.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

const codeOmitted = "Code block omitted."

func closeCodeBlock(buf []string, opts Options) []string {
	switch opts.CodeBlockRule {
	case CodeInline:
		kept := make([]string, 0, len(buf))
		for _, l := range buf {
			if t := strings.TrimSpace(l); t != "" {
				kept = append(kept, t)
			}
		}
		return kept
	case CodeDescribe:
		return []string{codeOmitted}
	default:
		return nil
	}
}

// cleanInline resolves inline markup within a single line of prose.
func cleanInline(s string, opts Options) string {
	if opts.RemoveNonText {
		s = imageRe.ReplaceAllString(s, "")
	} else {
		s = imageRe.ReplaceAllString(s, "$1")
	}
	if opts.SpeakURLs {
		s = linkRe.ReplaceAllString(s, "$1 ($2)")
	} else {
		s = linkRe.ReplaceAllString(s, "$1")
		s = bareURLRe.ReplaceAllString(s, "")
	}
	s = boldRe.ReplaceAllString(s, "$2")
	s = italicRe.ReplaceAllString(s, "$2")
	s = strikeRe.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = inlineTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return s
}

// renderTable converts a markdown table into row-by-row sentences using
// the header cells as field names. When table handling is off the cells
// are flattened into plain lines.
func renderTable(rows []string, opts Options) []string {
	var parsed [][]string
	for _, row := range rows {
		if tableSepRe.MatchString(row) {
			continue
		}
		cells := splitTableRow(row)
		for i, c := range cells {
			cells[i] = strings.TrimSpace(cleanInline(c, opts))
		}
		parsed = append(parsed, cells)
	}
	if len(parsed) == 0 {
		return nil
	}
	if !opts.HandleTables || len(parsed) < 2 {
		out := make([]string, 0, len(parsed))
		for _, cells := range parsed {
			if line := strings.TrimSpace(strings.Join(cells, " ")); line != "" {
				out = append(out, line)
			}
		}
		return out
	}

	header := parsed[0]
	out := make([]string, 0, len(parsed)-1)
	for _, cells := range parsed[1:] {
		var parts []string
		for i, c := range cells {
			if c == "" {
				continue
			}
			if i < len(header) && header[i] != "" {
				parts = append(parts, header[i]+": "+c)
			} else {
				parts = append(parts, c)
			}
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, "; ")+".")
		}
	}
	return out
}

func splitTableRow(row string) []string {
	row = strings.Trim(row, "|")
	return strings.Split(row, "|")
}
