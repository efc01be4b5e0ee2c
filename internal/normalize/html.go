// SPDX-License-Identifier: MIT

package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var htmlHintRe = regexp.MustCompile(`(?i)<(!doctype|html|head|body|div|p|article|span|table|a)\b`)

// LooksLikeHTML reports whether the input is more plausibly an HTML
// document than markdown or plain text.
func LooksLikeHTML(s string) bool {
	return len(htmlHintRe.FindAllString(s, 3)) >= 2
}

// ExtractArticle performs a readability-style extraction: it drops
// chrome (scripts, navigation, sidebars), locates the densest text
// container and returns its prose with headings preserved as markdown
// lines. A parse failure degrades to tag stripping.
func ExtractArticle(rawHTML string) (title, body string) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", inlineTagRe.ReplaceAllString(rawHTML, " ")
	}

	title = findTitle(doc)
	best := bestContainer(doc)
	if best == nil {
		best = doc
	}

	var b strings.Builder
	renderText(best, &b)
	return title, b.String()
}

var skipTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Aside:    true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Form:     true,
	atom.Button:   true,
}

func findTitle(doc *html.Node) string {
	if t := firstElement(doc, atom.Title); t != nil {
		return strings.TrimSpace(textContent(t))
	}
	if h1 := firstElement(doc, atom.H1); h1 != nil {
		return strings.TrimSpace(textContent(h1))
	}
	return ""
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// bestContainer scores article/main/div elements by the text volume of
// their paragraph children and returns the densest one.
func bestContainer(doc *html.Node) *html.Node {
	var best *html.Node
	bestScore := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.DataAtom] {
				return
			}
			switch n.DataAtom {
			case atom.Article, atom.Main, atom.Div, atom.Section, atom.Body:
				score := paragraphScore(n)
				// Prefer the deepest node with an equal score so chrome
				// wrappers around the article lose.
				if score >= bestScore && score > 0 {
					best, bestScore = n, score
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return best
}

func paragraphScore(n *html.Node) int {
	score := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.P, atom.Pre, atom.Ul, atom.Ol, atom.Blockquote,
				atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				score += len(strings.TrimSpace(textContent(c)))
			case atom.Div, atom.Section, atom.Article, atom.Main:
				score += paragraphScore(c)
			}
		}
	}
	return score
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3,
	atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// renderText flattens a subtree into line-oriented prose, emitting
// headings in markdown form for the downstream structural pass.
func renderText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode {
		if skipTags[n.DataAtom] {
			return
		}
		if level, ok := headingLevels[n.DataAtom]; ok {
			b.WriteString("\n\n" + strings.Repeat("#", level) + " " +
				strings.TrimSpace(textContent(n)) + "\n\n")
			return
		}
		switch n.DataAtom {
		case atom.P, atom.Blockquote, atom.Pre:
			b.WriteString("\n\n")
		case atom.Li:
			b.WriteString("\n- ")
		case atom.Br, atom.Tr, atom.Ul, atom.Ol, atom.Table:
			b.WriteString("\n")
		case atom.Td, atom.Th:
			b.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(c, b)
	}
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P, atom.Blockquote, atom.Pre:
			b.WriteString("\n\n")
		}
	}
}
