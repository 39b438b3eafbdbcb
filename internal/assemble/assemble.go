// Package assemble combines several notes into one document.
package assemble

import (
	"slices"
	"strings"

	"github.com/starford/writeup/internal/models"
)

// Separator follows every document in a combined text.
const Separator = "\n\n"

// Assemble concatenates the documents in Position order, each followed by
// Separator. Content is not otherwise changed; links are rewritten later so
// that [[#heading]] links resolve against the combined document.
func Assemble(docs []models.SourceDocument) string {
	ordered := slices.Clone(docs)
	slices.SortStableFunc(ordered, func(a, b models.SourceDocument) int {
		return a.Position - b.Position
	})

	var b strings.Builder
	for _, d := range ordered {
		b.WriteString(d.Content)
		b.WriteString(Separator)
	}
	return b.String()
}
