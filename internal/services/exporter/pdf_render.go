package exporter

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageWidth    = 190.0
	bodySize     = 10.0
	tableSize    = 8.0
	tableLineH   = 4.0
	maxCellLines = 8
)

// pdfRenderer lays a goldmark document out onto an fpdf page stream
type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	fonts     fontSet
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) render(node ast.Node) error {
	return ast.Walk(node, r.walk)
}

func (r *pdfRenderer) write(h float64, s string) {
	r.pdf.Write(h, r.fonts.translate(s))
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic && r.fonts.italic {
		style += "I"
	}
	r.fonts.set(r.pdf, style, bodySize)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return r.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph, ast.KindTextBlock:
		if !entering && r.listLevel == 0 {
			r.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			t := n.(*ast.Text)
			r.write(5, string(t.Segment.Value(r.source)))
			if t.SoftLineBreak() || t.HardLineBreak() {
				r.write(5, " ")
			}
		}
	case ast.KindString:
		if entering {
			r.write(5, string(n.(*ast.String).Value))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindCodeSpan:
		if entering {
			r.write(5, string(n.Text(r.source)))
		}
		return ast.WalkSkipChildren, nil
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			r.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil
	case ast.KindHTMLBlock, ast.KindRawHTML:
		return ast.WalkSkipChildren, nil
	case ast.KindList:
		r.list(entering)
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel-1)*5)
			r.write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(10, r.pdf.GetY(), 10+pageWidth, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case extast.KindTable:
		if entering {
			r.table(n.(*extast.Table))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) heading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if !entering {
		r.pdf.Ln(7)
		r.updateFont()
		return ast.WalkContinue, nil
	}

	r.pdf.Ln(4)
	size := 11.0
	switch n.Level {
	case 1:
		size = 16
	case 2:
		size = 13
	case 3:
		size = 12
	}
	r.fonts.set(r.pdf, "B", size)
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) list(entering bool) {
	if entering {
		r.listLevel++
		return
	}
	r.listLevel--
	if r.listLevel == 0 {
		r.pdf.Ln(7)
	}
}

func (r *pdfRenderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.pdf.MultiCell(0, 5, r.fonts.translate(strings.TrimRight(string(line.Value(r.source)), "\n")), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.pdf.Ln(2)
}

func (r *pdfRenderer) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *extast.TableHeader, *extast.TableRow:
			rows = append(rows, r.cells(child))
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	cols := len(rows[0])
	widths := r.columnWidths(rows, cols)

	r.pdf.Ln(2)
	_, pageHeight := r.pdf.GetPageSize()
	_, _, _, bottom := r.pdf.GetMargins()

	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.fonts.set(r.pdf, style, tableSize)

		lines := 1
		wrapped := make([][]string, cols)
		for j := 0; j < cols && j < len(row); j++ {
			wrapped[j] = r.wrap(row[j], widths[j]-2)
			lines = max(lines, min(len(wrapped[j]), maxCellLines))
		}

		height := float64(lines)*tableLineH + 2
		if r.pdf.GetY()+height > pageHeight-bottom {
			r.pdf.AddPage()
		}
		x, y := r.pdf.GetX(), r.pdf.GetY()

		for j := 0; j < cols; j++ {
			if i == 0 {
				r.pdf.SetFillColor(230, 230, 230)
				r.pdf.Rect(x, y, widths[j], height, "FD")
			} else {
				r.pdf.Rect(x, y, widths[j], height, "D")
			}
			for k, line := range wrapped[j] {
				if k == maxCellLines {
					break
				}
				r.pdf.SetXY(x+1, y+1+float64(k)*tableLineH)
				r.pdf.CellFormat(widths[j]-2, tableLineH, r.fonts.translate(line), "", 0, "L", false, 0, "")
			}
			x += widths[j]
		}
		r.pdf.SetXY(10, y+height)
	}

	r.pdf.SetFillColor(255, 255, 255)
	r.pdf.Ln(3)
	r.updateFont()
}

func (r *pdfRenderer) cells(row ast.Node) []string {
	var out []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			out = append(out, string(cell.Text(r.source)))
		}
	}
	return out
}

// columnWidths sizes columns by content, clamped and scaled to the page width
func (r *pdfRenderer) columnWidths(rows [][]string, cols int) []float64 {
	widths := make([]float64, cols)
	r.fonts.set(r.pdf, "B", tableSize)
	for _, row := range rows {
		for j := 0; j < cols && j < len(row); j++ {
			widths[j] = max(widths[j], r.pdf.GetStringWidth(r.fonts.translate(row[j]))+4)
		}
	}

	total := 0.0
	for j := range widths {
		widths[j] = min(max(widths[j], 12), pageWidth/2)
		total += widths[j]
	}
	if total > pageWidth || total < pageWidth*0.6 {
		scale := pageWidth / total
		for j := range widths {
			widths[j] *= scale
		}
	}
	return widths
}

// wrap breaks s into lines no wider than width in the current font
func (r *pdfRenderer) wrap(s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	space := r.pdf.GetStringWidth(" ")
	var lines []string
	line := words[0]
	lineWidth := r.pdf.GetStringWidth(r.fonts.translate(line))
	for _, word := range words[1:] {
		w := r.pdf.GetStringWidth(r.fonts.translate(word))
		if lineWidth+space+w <= width {
			line += " " + word
			lineWidth += space + w
			continue
		}
		lines = append(lines, line)
		line, lineWidth = word, w
	}
	return append(lines, line)
}
