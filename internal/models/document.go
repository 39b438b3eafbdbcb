// Package models defines the domain types shared across the conversion engine.
package models

import "fmt"

// Mode selects the rewrite target format and whether documents are combined.
type Mode string

// Conversion modes.
const (
	ModeCopy     Mode = "copy"
	ModePDF      Mode = "pdf"
	ModeWebsite  Mode = "website"
	ModeCombined Mode = "combined"
)

// Modes lists every supported mode, in CLI help order.
var Modes = []Mode{ModeCopy, ModePDF, ModeWebsite, ModeCombined}

// ParseMode converts a user supplied string to a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Website reports whether the mode produces website anchors.
func (m Mode) Website() bool {
	return m == ModeWebsite || m == ModeCombined
}

// SourceDocument is a note read from disk. It is not modified after reading.
type SourceDocument struct {
	Path     string
	Content  string
	Position int
}

// Output is a final text blob ready to be written verbatim to Name,
// relative to the target folder.
type Output struct {
	Name string
	Text string
}
