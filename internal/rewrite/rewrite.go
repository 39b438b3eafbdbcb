// Package rewrite turns wikilinks into portable Markdown links.
package rewrite

import (
	"strings"

	"github.com/starford/writeup/internal/models"
	"github.com/starford/writeup/internal/parser"
)

// Options carries the substitution values for a Rewriter.
type Options struct {
	// URLPrefix is prepended to PDF link destinations.
	URLPrefix string
	// AssetPrefix is the path or URL under which website embeds are served.
	AssetPrefix string
	// AssetName maps an embed name to its name in the target attachments
	// folder. Nil keeps the name as written. Outside website modes a
	// non-nil AssetName renames the embed in place, so it must return
	// names it already produced unchanged.
	AssetName func(string) string
}

// Rewriter rewrites every link shape for one conversion mode.
type Rewriter struct {
	mode models.Mode
	opts Options
}

// New returns a Rewriter for mode.
func New(mode models.Mode, opts Options) *Rewriter {
	return &Rewriter{mode: mode, opts: opts}
}

// Rewrite returns text with every recognised link replaced. Text between
// links is copied through untouched, so the output is never scanned twice
// and a second Rewrite over it is a no-op. Copy mode only renames embeds,
// and only when AssetName is set.
func (r *Rewriter) Rewrite(text string) string {
	if r.mode == models.ModeCopy && r.opts.AssetName == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for m := range parser.Scan(text) {
		out, ok := r.link(m)
		if !ok {
			continue
		}
		b.WriteString(text[last:m.Start])
		b.WriteString(out)
		last = m.End
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// link renders a single match, reporting false when the match is left as is.
func (r *Rewriter) link(m parser.Match) (string, bool) {
	if m.Kind == parser.Embed {
		if r.mode.Website() {
			return "![](" + r.assetPath(m.Target) + ")", true
		}
		return r.renameEmbed(m.Target)
	}
	if r.mode == models.ModeCopy {
		return "", false
	}

	text := m.Display()
	if m.Kind == parser.SelfHeadingLink {
		return markdownLink(text, "#"+normalize(m.Heading)), true
	}

	switch r.mode {
	case models.ModePDF:
		dest := r.opts.URLPrefix + "/" + normalize(m.Target) + ".pdf"
		if m.Heading != "" {
			dest += "#" + normalize(m.Heading)
		}
		return markdownLink(text, dest), true
	case models.ModeWebsite, models.ModeCombined:
		anchor := m.Target
		if m.Heading != "" {
			anchor = m.Heading
		}
		return markdownLink(text, "#"+normalize(anchor)), true
	}
	return "", false
}

// renameEmbed keeps an embed as ![[...]] but points it at the renamed
// attachment, keeping any |suffix.
func (r *Rewriter) renameEmbed(raw string) (string, bool) {
	if r.opts.AssetName == nil {
		return "", false
	}
	name, suffix, hasSuffix := strings.Cut(raw, "|")
	renamed := r.opts.AssetName(name)
	if renamed == name {
		return "", false
	}
	if hasSuffix {
		renamed += "|" + suffix
	}
	return "![[" + renamed + "]]", true
}

func (r *Rewriter) assetPath(raw string) string {
	name, _, _ := strings.Cut(raw, "|")
	if r.opts.AssetName != nil {
		name = r.opts.AssetName(name)
	}
	name = strings.ReplaceAll(escapeDest(name), " ", "%20")
	if r.opts.AssetPrefix == "" {
		return name
	}
	return strings.TrimSuffix(r.opts.AssetPrefix, "/") + "/" + name
}

func markdownLink(text, dest string) string {
	return "[" + text + "](" + dest + ")"
}

// normalize lowercases s and replaces spaces with hyphens. It is applied
// once per generated destination segment.
func normalize(s string) string {
	return escapeDest(strings.ReplaceAll(strings.ToLower(s), " ", "-"))
}

var destEscaper = strings.NewReplacer(`(`, `%28`, `)`, `%29`)

// escapeDest keeps parentheses from closing a Markdown destination early.
func escapeDest(s string) string { return destEscaper.Replace(s) }
