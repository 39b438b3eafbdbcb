// Package toc builds a table of contents from Markdown headings.
package toc

import (
	"iter"
	"regexp"
	"strings"
)

// headingRe matches ATX headings. Lines inside fenced code are matched too.
var headingRe = regexp.MustCompile(`(?m)^(#+) (.+)$`)

// Title heads the generated contents block.
const Title = "# Contents"

// Heading is one heading line of a document.
type Heading struct {
	Level int
	Text  string
	Slug  string
}

// Slug lowercases s and replaces spaces with hyphens. Equal headings get
// equal slugs; no suffix is added to tell them apart.
func Slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

// Headings yields every heading of text in document order.
func Headings(text string) iter.Seq[Heading] {
	return func(yield func(Heading) bool) {
		for _, m := range headingRe.FindAllStringSubmatch(text, -1) {
			h := strings.TrimSpace(strings.TrimSuffix(m[2], "\r"))
			if h == "" {
				continue
			}
			if !yield(Heading{Level: len(m[1]), Text: h, Slug: Slug(h)}) {
				return
			}
		}
	}
}

// Build returns the contents block for text, or "" when text has no headings.
func Build(text string) string {
	var b strings.Builder
	for h := range Headings(text) {
		if b.Len() == 0 {
			b.WriteString(Title + "\n")
		}
		b.WriteString(strings.Repeat("  ", h.Level-1))
		b.WriteString("- [" + h.Text + "](#" + h.Slug + ")\n")
	}
	return b.String()
}

// Prepend puts the contents block in front of text, separated by a blank line.
func Prepend(text string) string {
	contents := Build(text)
	if contents == "" {
		return text
	}
	return contents + "\n" + text
}
