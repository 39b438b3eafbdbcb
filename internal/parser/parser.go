// Package parser recognises wikilinks and embeds in raw Markdown text.
//
// Scanning is line-level pattern matching, not Markdown parsing: a link is
// the shortest "[[...]]" span on a single line, and code spans or fences are
// not treated specially.
package parser

import (
	"iter"
	"strings"
)

// Kind tags the shape of a recognised link.
type Kind int

const (
	// Embed is ![[name]].
	Embed Kind = iota
	// SelfHeadingLink is [[#Heading]].
	SelfHeadingLink
	// HeadingAliasLink is [[Target#Heading|Alias]].
	HeadingAliasLink
	// AliasLink is [[Target|Alias]].
	AliasLink
	// HeadingLink is [[Target#Heading]].
	HeadingLink
	// PlainLink is [[Target]].
	PlainLink
)

func (k Kind) String() string {
	switch k {
	case Embed:
		return "embed"
	case SelfHeadingLink:
		return "self-heading"
	case HeadingAliasLink:
		return "heading-alias"
	case AliasLink:
		return "alias"
	case HeadingLink:
		return "heading"
	case PlainLink:
		return "plain"
	}
	return "unknown"
}

// Match is one link occurrence. Start and End delimit the raw link,
// including the leading "!" of an embed, as a byte range [Start, End).
type Match struct {
	Kind    Kind
	Target  string
	Heading string
	Alias   string
	Start   int
	End     int
}

// Display returns the link text a reader should see: the alias if present,
// else the heading, else the target.
func (m Match) Display() string {
	switch {
	case m.Alias != "":
		return m.Alias
	case m.Heading != "":
		return m.Heading
	}
	return m.Target
}

const (
	openDelim  = "[["
	closeDelim = "]]"
)

// Scan yields every link and embed in text, left to right and without
// overlap. Each range over the returned sequence scans text again.
func Scan(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		pos := 0
		for {
			m, ok := next(text, pos)
			if !ok || !yield(m) {
				return
			}
			pos = m.End
		}
	}
}

// Links yields every match except embeds.
func Links(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for m := range Scan(text) {
			if m.Kind == Embed {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

// Embeds yields only ![[...]] matches.
func Embeds(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for m := range Scan(text) {
			if m.Kind != Embed {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

// next finds the first link at or after from.
func next(text string, from int) (Match, bool) {
	for {
		i := strings.Index(text[from:], openDelim)
		if i < 0 {
			return Match{}, false
		}
		run := from + i
		open := run
		// In a run like "[[[x]]" the link opens at the right-most pair.
		for open+len(openDelim) < len(text) && text[open+len(openDelim)] == '[' {
			open++
		}
		body := open + len(openDelim)
		// "![[[x]]" is neither an embed nor a link.
		if open > run && run > 0 && text[run-1] == '!' {
			from = body
			continue
		}

		j := strings.Index(text[body:], closeDelim)
		if j < 0 {
			return Match{}, false
		}
		inner := text[body : body+j]

		// A nested opener means this one was never closed.
		if k := strings.Index(inner, openDelim); k >= 0 {
			from = body + k
			continue
		}
		// Stray brackets would let a later pass pair an abandoned opener
		// with generated text.
		if strings.ContainsAny(inner, "[]\r\n") {
			from = body
			continue
		}

		m, ok := classify(inner)
		if !ok {
			from = body
			continue
		}
		m.Start = open
		m.End = body + j + len(closeDelim)
		if open > 0 && text[open-1] == '!' {
			m = Match{Kind: Embed, Target: inner, Start: open - 1, End: m.End}
		}
		return m, true
	}
}

// classify decides the link shape of the text between the delimiters.
// Self-heading links take precedence, then heading+alias, alias, heading
// and finally plain links.
func classify(inner string) (Match, bool) {
	if heading, ok := strings.CutPrefix(inner, "#"); ok {
		heading, alias, _ := strings.Cut(heading, "|")
		if heading == "" {
			return Match{}, false
		}
		return Match{Kind: SelfHeadingLink, Heading: heading, Alias: alias}, true
	}

	ref, alias, _ := strings.Cut(inner, "|")
	target, heading, _ := strings.Cut(ref, "#")
	if strings.TrimSpace(target) == "" {
		return Match{}, false
	}

	m := Match{Target: target, Heading: heading, Alias: alias}
	switch {
	case heading != "" && alias != "":
		m.Kind = HeadingAliasLink
	case alias != "":
		m.Kind = AliasLink
	case heading != "":
		m.Kind = HeadingLink
	default:
		m.Kind = PlainLink
	}
	return m, true
}
