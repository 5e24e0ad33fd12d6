// Package normalize provides utilities for normalizing and sanitizing
// user-entered listing text.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote|table|tr|td)[\s>/]`)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
	// Inline markdown punctuation dropped by PlainText.
	markdownPunct = regexp.MustCompile("[*_`#>]+")
	markdownLink  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

// Line cleans a single-line field: control characters are dropped and runs
// of whitespace collapse to one space.
func Line(s string) string {
	s = sanitizeString(s)
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Description cleans a multi-line listing description. HTML pasted from
// other sites is converted to Markdown; plain text keeps its line breaks.
func Description(s string) string {
	s = sanitizeString(strings.ReplaceAll(s, "\r\n", "\n"))
	if containsHTML(s) {
		if md, err := htmltomarkdown.ConvertString(s); err == nil {
			s = md
		}
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRegex.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// PlainText reduces Markdown or HTML to plain words for indexing and
// summaries.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	if containsHTML(s) {
		s = stripHTML(s)
	}
	s = markdownLink.ReplaceAllString(s, "$1")
	s = markdownPunct.ReplaceAllString(s, " ")
	return Line(s)
}

// Summary returns PlainText truncated to at most n runes on a word boundary.
func Summary(s string, n int) string {
	s = PlainText(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// containsHTML checks if a string appears to contain HTML markup.
func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// stripHTML removes HTML tags and returns the text content.
func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var buf strings.Builder
	extractText(doc, &buf)
	return buf.String()
}

func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style":
			return
		case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "td":
			buf.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "td":
			buf.WriteString(" ")
		}
	}
}

// sanitizeString drops null bytes and other control characters except
// newlines and tabs.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
