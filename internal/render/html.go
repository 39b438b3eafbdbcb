// Package render turns converted Markdown into standalone HTML pages.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/writeup/internal/toc"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// pageTemplate wraps goldmark's fragment output in a complete HTML5 document.
const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s
</body>
</html>
`

const defaultTitle = "Document"

// HTML renders Markdown with goldmark. Heading IDs use toc.Slug, so the
// #slug anchors in the contents block and rewritten links resolve in the
// page. Repeated headings share an ID.
type HTML struct {
	md goldmark.Markdown
}

// NewHTML creates an HTML renderer with GFM and chroma code highlighting.
func NewHTML() *HTML {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
		),
	)
	return &HTML{md: md}
}

// Render converts markdown into a full page titled after its first heading.
func (h *HTML) Render(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	pc := parser.NewContext(parser.WithIDs(slugIDs{}))
	if err := h.md.Convert([]byte(markdown), &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	return fmt.Appendf(nil, pageTemplate, html.EscapeString(title(markdown)), buf.String()), nil
}

// slugIDs generates heading IDs the same way the contents block does.
type slugIDs struct{}

func (slugIDs) Generate(value []byte, _ ast.NodeKind) []byte {
	return []byte(toc.Slug(string(value)))
}

func (slugIDs) Put([]byte) {}

// title returns the first level-1 heading that is not the contents block.
func title(markdown string) string {
	for hd := range toc.Headings(markdown) {
		if hd.Level == 1 && "# "+hd.Text != toc.Title {
			return hd.Text
		}
	}
	return defaultTitle
}
