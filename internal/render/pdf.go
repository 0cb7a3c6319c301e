package render

import (
	"bytes"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Page geometry in millimeters, matching the print CSS (A4 portrait, 1.8cm
// margins).
const (
	pageMargin  = 18.0
	pageWidth   = 210.0 - 2*pageMargin
	pageBottom  = 297.0 - pageMargin
	bodyFont    = "Arial"
	bodySize    = 10.0
	tableSize   = 8.0
	tableLineH  = 4.0
	maxCellRows = 8
)

// creationDate pins the PDF metadata timestamps so that identical Markdown
// yields byte-identical output.
var creationDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// pdfEncoder walks a goldmark AST and emits the document via fpdf.
type pdfEncoder struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string
	bold      bool
	italic    bool
	inList    bool
	listLevel int
}

func newPDFEncoder(source []byte, title string) *pdfEncoder {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(title, true)
	// Pinned dates plus sorted catalog output keep identical Markdown
	// byte-identical: without the sort, font dictionary order varies per run.
	pdf.SetCreationDate(creationDate)
	pdf.SetModificationDate(creationDate)
	pdf.SetCatalogSort(true)
	pdf.AddPage()
	pdf.SetFont(bodyFont, "", bodySize)

	// The core fonts are cp1252; the translator keeps umlauts intact.
	return &pdfEncoder{pdf: pdf, source: source, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (e *pdfEncoder) render(doc ast.Node) error {
	return ast.Walk(doc, e.walk)
}

func (e *pdfEncoder) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *pdfEncoder) setFont() {
	style := ""
	if e.bold {
		style += "B"
	}
	if e.italic {
		style += "I"
	}
	e.pdf.SetFont(bodyFont, style, bodySize)
}

func (e *pdfEncoder) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return e.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			e.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			e.pdf.Write(5, e.tr(string(n.Text(e.source))))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			e.bold = entering
		} else {
			e.italic = entering
		}
		e.setFont()
	case ast.KindCodeSpan:
		return e.codeSpan(n, entering)
	case ast.KindFencedCodeBlock:
		if entering {
			e.codeBlock(n.(*ast.FencedCodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindCodeBlock:
		if entering {
			e.codeBlock(n.(*ast.CodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindList:
		if entering {
			e.inList = true
			e.listLevel++
		} else {
			e.listLevel--
			if e.listLevel == 0 {
				e.inList = false
				e.pdf.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			e.pdf.Ln(5)
			indent := float64(e.listLevel) * 5.0
			e.pdf.SetX(pageMargin + indent)
			e.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			e.pdf.Ln(2)
			e.pdf.Line(pageMargin, e.pdf.GetY(), 210-pageMargin, e.pdf.GetY())
			e.pdf.Ln(2)
		}
	case extast.KindTable:
		return e.table(n.(*extast.Table), entering)
	}
	return ast.WalkContinue, nil
}

func (e *pdfEncoder) heading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		e.pdf.Ln(6)
		size := 14.0
		switch n.Level {
		case 1:
			size = 14
		case 2:
			size = 12
		case 3:
			size = 11
		default:
			size = 10
		}
		e.pdf.SetFont(bodyFont, "B", size)
	} else {
		e.pdf.Ln(6)
		e.setFont()
	}
	return ast.WalkContinue, nil
}

func (e *pdfEncoder) codeSpan(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		e.pdf.SetFont("Courier", "", bodySize)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if tn, ok := c.(*ast.Text); ok {
				e.pdf.Write(5, e.tr(string(tn.Segment.Value(e.source))))
			}
		}
	} else {
		e.setFont()
	}
	return ast.WalkSkipChildren, nil
}

func (e *pdfEncoder) codeBlock(lines *text.Segments) {
	e.pdf.Ln(2)
	e.pdf.SetFont("Courier", "", 9)
	e.pdf.SetFillColor(245, 245, 245)

	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		e.pdf.MultiCell(0, 5, e.tr(string(line.Value(e.source))), "", "L", true)
	}

	e.pdf.SetFillColor(255, 255, 255)
	e.setFont()
	e.pdf.Ln(2)
}

// table collects all rows (header included) and renders them as a bordered
// grid with word-wrapped cells, the PDF counterpart of the print CSS table
// styling.
func (e *pdfEncoder) table(n *extast.Table, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *extast.TableHeader:
			for hr := c.FirstChild(); hr != nil; hr = hr.NextSibling() {
				if tr, ok := hr.(*extast.TableRow); ok {
					rows = append(rows, e.tableRow(tr))
				}
			}
			// A TableHeader may itself hold the cells.
			if row := e.tableRow(c); len(row) > 0 {
				rows = append(rows, row)
			}
		case *extast.TableRow:
			rows = append(rows, e.tableRow(c))
		}
	}

	e.renderTable(rows)
	return ast.WalkSkipChildren, nil
}

func (e *pdfEncoder) tableRow(n ast.Node) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			// Translate here so width measurement and wrapping see the
			// same bytes that get written.
			row = append(row, e.tr(string(cell.Text(e.source))))
		}
	}
	return row
}

func (e *pdfEncoder) renderTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	numCols := len(rows[0])

	e.pdf.Ln(2)
	widths := e.columnWidths(rows, numCols)

	for i, row := range rows {
		if i == 0 {
			e.pdf.SetFont(bodyFont, "B", tableSize)
			e.pdf.SetFillColor(230, 230, 230)
		} else {
			e.pdf.SetFont(bodyFont, "", tableSize)
			e.pdf.SetFillColor(255, 255, 255)
		}

		maxLines := 1
		for j, cell := range row {
			if j >= numCols {
				break
			}
			if n := len(e.wrapCell(cell, widths[j]-2)); n > maxLines {
				maxLines = n
			}
		}
		if maxLines > maxCellRows {
			maxLines = maxCellRows
		}

		rowHeight := float64(maxLines)*tableLineH + 2
		startY := e.pdf.GetY()
		startX := pageMargin

		if startY+rowHeight > pageBottom {
			e.pdf.AddPage()
			startY = e.pdf.GetY()
		}

		x := startX
		for j := 0; j < numCols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			if i == 0 {
				e.pdf.Rect(x, startY, widths[j], rowHeight, "FD")
			} else {
				e.pdf.Rect(x, startY, widths[j], rowHeight, "D")
			}
			e.pdf.SetXY(x+1, startY+1)
			e.cellText(cell, widths[j]-2, maxLines)
			x += widths[j]
		}

		e.pdf.SetXY(startX, startY+rowHeight)
	}

	e.pdf.Ln(3)
	e.setFont()
}

// columnWidths sizes columns by measured content width, clamped and scaled so
// the table always fits the printable width.
func (e *pdfEncoder) columnWidths(rows [][]string, numCols int) []float64 {
	widths := make([]float64, numCols)
	e.pdf.SetFont(bodyFont, "", tableSize)

	for _, row := range rows {
		for i, cell := range row {
			if i >= numCols {
				break
			}
			if w := e.pdf.GetStringWidth(cell) + 4; w > widths[i] {
				widths[i] = w
			}
		}
	}

	const minWidth = 12.0
	maxWidth := pageWidth / 3.0
	for i := range widths {
		if widths[i] < minWidth {
			widths[i] = minWidth
		}
		if widths[i] > maxWidth {
			widths[i] = maxWidth
		}
	}

	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total > pageWidth {
		scale := pageWidth / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

// wrapCell splits cell text into lines that fit the given width, measured
// with the current font.
func (e *pdfEncoder) wrapCell(cell string, width float64) []string {
	words := strings.Fields(cell)
	if len(words) == 0 {
		return []string{""}
	}

	spaceW := e.pdf.GetStringWidth(" ")
	var lines []string
	current := ""
	currentW := 0.0

	for _, word := range words {
		wordW := e.pdf.GetStringWidth(word)
		switch {
		case current == "":
			current = word
			currentW = wordW
		case currentW+spaceW+wordW <= width:
			current += " " + word
			currentW += spaceW + wordW
		default:
			lines = append(lines, current)
			current = word
			currentW = wordW
		}
	}
	return append(lines, current)
}

func (e *pdfEncoder) cellText(cell string, width float64, maxLines int) {
	lines := e.wrapCell(cell, width)
	for i := 0; i < len(lines) && i < maxLines; i++ {
		line := lines[i]
		if i == maxLines-1 && len(lines) > maxLines {
			for e.pdf.GetStringWidth(line+"...") > width && len(line) > 3 {
				line = line[:len(line)-1]
			}
			line += "..."
		}
		e.pdf.CellFormat(width, tableLineH, line, "", 2, "L", false, 0, "")
	}
}
