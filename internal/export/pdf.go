package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/yungbote/edutools-backend/internal/document"
)

const (
	pdfMargin     = 15.0
	pdfLineHeight = 5.0
	pdfBlockPad   = 5.0
	tocLineStep   = 7.0
	ptToMM        = 25.4 / 72
)

// tocEntry is a heading as laid out in the body. BodyPage counts from the first body page;
// Target is the absolute page the contents link jumps to.
type tocEntry struct {
	Text     string
	Depth    int
	BodyPage int
	Y        float64
	Target   int
}

// renderPDF lays the body out after reserving the contents pages, records where every heading
// landed, then goes back to the reserved pages and writes the linked contents.
func renderPDF(m document.Model, title string) ([]byte, []tocEntry, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("edutools", false)

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	_, w.pageH = pdf.GetPageSize()
	pageW, _ := pdf.GetPageSize()
	w.contentW = pageW - 2*pdfMargin

	slots := tocSlots(len(m.Headings()), w.pageH)
	tocPages := 0
	if len(slots) > 0 {
		tocPages = slots[len(slots)-1].page
	}
	for i := 0; i < tocPages; i++ {
		pdf.AddPage()
	}

	w.body(m, title)
	if pdf.Err() {
		return nil, nil, pdf.Error()
	}

	for i := range w.headings {
		w.headings[i].Target = w.headings[i].BodyPage + tocPages
	}
	if tocPages > 0 {
		last := pdf.PageNo()
		w.contents(slots)
		pdf.SetPage(last)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), w.headings, nil
}

type pdfWriter struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	pageH    float64
	contentW float64
	y        float64
	bodyPage int
	headings []tocEntry
}

func (w *pdfWriter) newPage() {
	w.pdf.AddPage()
	w.bodyPage++
	w.y = pdfMargin
}

func (w *pdfWriter) breakIfFull() {
	if w.y > w.pageH-pdfMargin {
		w.newPage()
	}
}

func (w *pdfWriter) font(style string, size float64) {
	w.pdf.SetFont("Helvetica", style, size)
}

func (w *pdfWriter) split(s string, width float64) []string {
	var out []string
	for _, l := range w.pdf.SplitLines([]byte(w.tr(s)), width) {
		out = append(out, string(l))
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func (w *pdfWriter) body(m document.Model, title string) {
	w.newPage()
	w.font("B", 18)
	w.pdf.Text(pdfMargin, w.y, w.tr(title))
	w.y += 15

	for _, b := range m.Blocks {
		w.breakIfFull()
		switch b.Kind {
		case document.KindHeading:
			w.heading(b)
		case document.KindParagraph:
			w.font("", 11)
			for _, line := range w.split(b.Text, w.contentW) {
				w.breakIfFull()
				w.pdf.Text(pdfMargin, w.y, line)
				w.y += pdfLineHeight
			}
		case document.KindList:
			w.list(b)
		case document.KindTable:
			w.table(b.Table)
			w.y += 10
		case document.KindSpacer:
			w.y += 5
		}
		w.y += pdfBlockPad
	}
}

func (w *pdfWriter) heading(b document.Block) {
	depth := b.Level
	if depth < 1 {
		depth = 1
	}
	w.headings = append(w.headings, tocEntry{Text: b.Text, Depth: depth, BodyPage: w.bodyPage, Y: w.y})
	w.font("B", float64(22-depth*2))
	for i, line := range w.split(b.Text, w.contentW) {
		if i > 0 {
			w.breakIfFull()
		}
		w.pdf.Text(pdfMargin, w.y, line)
		w.y += 7
	}
}

func (w *pdfWriter) list(b document.Block) {
	w.font("", 11)
	for i, item := range b.Items {
		w.breakIfFull()
		prefix := "- "
		if b.Ordered {
			prefix = fmt.Sprintf("%d. ", b.Start+i)
		}
		lines := w.split(item, w.contentW-10)
		w.pdf.Text(pdfMargin+5, w.y, w.tr(prefix)+lines[0])
		w.y += pdfLineHeight
		for _, line := range lines[1:] {
			w.breakIfFull()
			w.pdf.Text(pdfMargin+10, w.y, line)
			w.y += pdfLineHeight
		}
	}
}

// table draws a bordered grid with a filled header that repeats after page breaks.
func (w *pdfWriter) table(t *document.Table) {
	cols := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return
	}
	g := tableGrid{header: t.Header, cols: cols, colW: w.contentW / float64(cols)}
	if len(t.Header) > 0 {
		w.tableRow(g, t.Header, true, false)
	}
	for i, r := range t.Rows {
		w.tableRow(g, r, false, i%2 == 1)
	}
}

type tableGrid struct {
	header []string
	cols   int
	colW   float64
}

func (w *pdfWriter) tableRow(g tableGrid, cells []string, header, striped bool) {
	if header {
		w.font("B", 10)
	} else {
		w.font("", 10)
	}
	wrapped := make([][]string, g.cols)
	lines := 1
	for c := 0; c < g.cols; c++ {
		cell := ""
		if c < len(cells) {
			cell = cells[c]
		}
		wrapped[c] = w.split(cell, g.colW-3)
		if len(wrapped[c]) > lines {
			lines = len(wrapped[c])
		}
	}
	rowH := float64(lines)*pdfLineHeight + 2
	if w.y+rowH > w.pageH-pdfMargin && w.y > pdfMargin {
		w.newPage()
		if !header && len(g.header) > 0 {
			w.tableRow(g, g.header, true, false)
			w.font("", 10)
		}
	}

	style := "D"
	switch {
	case header:
		w.pdf.SetFillColor(75, 85, 99)
		w.pdf.SetTextColor(255, 255, 255)
		style = "FD"
	case striped:
		w.pdf.SetFillColor(245, 245, 245)
		style = "FD"
	}
	w.pdf.SetDrawColor(200, 200, 200)
	for c := 0; c < g.cols; c++ {
		x := pdfMargin + float64(c)*g.colW
		w.pdf.Rect(x, w.y, g.colW, rowH, style)
		for i, line := range wrapped[c] {
			w.pdf.Text(x+1.5, w.y+4.5+float64(i)*pdfLineHeight, line)
		}
	}
	w.pdf.SetTextColor(0, 0, 0)
	w.y += rowH
}

type tocSlot struct {
	page int
	y    float64
}

// tocSlots places n contents lines: the heading takes the top of the first page and lines
// wrap onto further pages when they run past the bottom margin.
func tocSlots(n int, pageH float64) []tocSlot {
	if n == 0 {
		return nil
	}
	out := make([]tocSlot, 0, n)
	page, y := 1, pdfMargin+15
	for i := 0; i < n; i++ {
		if y > pageH-pdfMargin {
			page++
			y = pdfMargin
		}
		out = append(out, tocSlot{page: page, y: y})
		y += tocLineStep
	}
	return out
}

func (w *pdfWriter) contents(slots []tocSlot) {
	w.pdf.SetPage(1)
	w.font("B", 16)
	w.pdf.Text(pdfMargin, pdfMargin, "Table of Contents")

	w.font("", 11)
	h := 11 * ptToMM
	page := 1
	for i, e := range w.headings {
		s := slots[i]
		if s.page != page {
			page = s.page
			w.pdf.SetPage(page)
		}
		x := pdfMargin + float64(e.Depth-1)*5
		text := w.tr(strings.TrimSpace(e.Text))
		w.pdf.SetTextColor(0, 0, 255)
		w.pdf.Text(x, s.y, text)
		w.pdf.SetTextColor(0, 0, 0)

		link := w.pdf.AddLink()
		w.pdf.SetLink(link, e.Y-h, e.Target)
		w.pdf.Link(x, s.y-h, w.pdf.GetStringWidth(text), h, link)
	}
}
