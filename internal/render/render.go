package render

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// pageTemplate wraps the converted HTML fragment with the print-oriented CSS
// used for the browser view: A4 portrait, 1.8cm margins, bordered collapsed
// tables with fixed layout and word wrapping.
const pageTemplate = `<html><head><meta charset='utf-8'><style>
@page { size: A4 portrait; margin: 1.8cm; }
body { font-family: Arial, sans-serif; font-size: 10pt; line-height: 1.45; }
h1,h2,h3 { color: #222; margin-top: 1.2em; }
table { width: 100%%; table-layout: fixed; border-collapse: collapse; font-size: 9pt; margin: 0.8em 0; }
th,td { border: 1px solid #ccc; padding: 4px 6px; text-align: left; word-wrap: break-word; overflow-wrap: anywhere; hyphens: auto; }
a { color: #0044cc; text-decoration: none; }
</style></head><body>
%s
</body></html>`

// Renderer converts formatted Markdown into an HTML fragment and a PDF byte
// stream. It holds no mutable state and is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a Renderer with table, strikethrough and autolink
// support enabled.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// ToHTML converts Markdown to an HTML fragment.
func (r *Renderer) ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", eris.Wrap(err, "render: convert markdown")
	}
	return buf.String(), nil
}

// Page wraps an HTML fragment in the fixed print-CSS page template.
func Page(fragment string) string {
	return fmt.Sprintf(pageTemplate, fragment)
}

// ToPDF converts Markdown to a PDF byte stream. The conversion is local and
// deterministic: the same Markdown always yields identical bytes.
func (r *Renderer) ToPDF(markdown, title string) ([]byte, error) {
	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))

	enc := newPDFEncoder(source, title)
	if err := enc.render(doc); err != nil {
		return nil, eris.Wrap(err, "render: encode pdf")
	}
	return enc.bytes()
}
