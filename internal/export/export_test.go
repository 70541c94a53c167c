package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/yungbote/edutools-backend/internal/document"
)

const sample = "# Overview\n\nPhotosynthesis turns light into sugar.\n\n## Vocabulary\n\n- chlorophyll\n- stomata\n\n| Term | Meaning |\n|---|---|\n| ATP | energy |\n| CO2 | gas |\n"

func TestFilename(t *testing.T) {
	cases := []struct {
		title string
		f     Format
		want  string
	}{
		{"Lesson Plan Generator", FormatPDF, "Lesson_Plan_Generator_output.pdf"},
		{"Multiple  Choice\tQuiz", FormatCSV, "Multiple_Choice_Quiz_output.csv"},
		{"Solo", FormatMarkdown, "Solo_output.md"},
	}
	for _, tc := range cases {
		if got := Filename(tc.title, tc.f); got != tc.want {
			t.Fatalf("Filename(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"PDF": FormatPDF, ".docx": FormatDOCX, "markdown": FormatMarkdown, "excel": FormatXLSX, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pptx"); err == nil {
		t.Fatalf("expected error for pptx")
	}
}

func TestOptions(t *testing.T) {
	if got := Options("no table"); len(got) != 3 {
		t.Fatalf("expected 3 options, got %v", got)
	}
	got := Options(sample)
	if len(got) != 5 || !got[3].Spreadsheet() || !got[4].Spreadsheet() {
		t.Fatalf("expected spreadsheet options, got %v", got)
	}
}

func TestMarkdownIsIdentity(t *testing.T) {
	content := "# T\r\n\n\n  odd   spacing {{x}}\n"
	a, err := Render(content, "My Title", FormatMarkdown)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(a.Body) != content {
		t.Fatalf("body changed: %q", a.Body)
	}
	if a.Filename != "My_Title_output.md" {
		t.Fatalf("filename: %q", a.Filename)
	}
}

func TestSpreadsheetWithoutTable(t *testing.T) {
	for _, f := range []Format{FormatXLSX, FormatCSV} {
		a, err := Render("# Just text\n\nnothing tabular", "t", f)
		if !errors.Is(err, ErrNoTable) {
			t.Fatalf("%s: expected ErrNoTable, got %v", f, err)
		}
		if a != nil {
			t.Fatalf("%s: expected no artifact", f)
		}
	}
}

func TestCSV(t *testing.T) {
	a, err := Render(sample, "Bio", FormatCSV)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(a.Body)).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := [][]string{{"Term", "Meaning"}, {"ATP", "energy"}, {"CO2", "gas"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %v", rows)
	}
}

func TestXLSX(t *testing.T) {
	a, err := Render(sample, "Bio", FormatXLSX)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(a.Body))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	want := [][]string{{"Term", "Meaning"}, {"ATP", "energy"}, {"CO2", "gas"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %v", rows)
	}
}

func TestDOCX(t *testing.T) {
	a, err := Render(sample, "Bio Notes", FormatDOCX)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc, err := docx.Parse(bytes.NewReader(a.Body), int64(len(a.Body)))
	if err != nil {
		t.Fatalf("parse docx: %v", err)
	}
	var paras []string
	var tables int
	for _, it := range doc.Document.Body.Items {
		switch v := it.(type) {
		case *docx.Paragraph:
			paras = append(paras, v.String())
		case *docx.Table:
			tables++
			if len(v.TableRows) != 3 || len(v.TableRows[0].TableCells) != 2 {
				t.Fatalf("unexpected table shape")
			}
		}
	}
	if tables != 1 {
		t.Fatalf("expected one table, got %d", tables)
	}
	joined := strings.Join(paras, "\n")
	for _, want := range []string{"Bio Notes", "Overview", "Photosynthesis turns light into sugar.", "• chlorophyll", "• stomata"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestPDFContentsLinksOffsetByOne(t *testing.T) {
	body, headings, err := renderPDF(document.Parse(sample), "Bio")
	if err != nil {
		t.Fatalf("renderPDF: %v", err)
	}
	if len(headings) != 2 || headings[0].Text != "Overview" || headings[1].Text != "Vocabulary" {
		t.Fatalf("unexpected headings: %+v", headings)
	}
	for _, h := range headings {
		if h.Target != h.BodyPage+1 {
			t.Fatalf("%q links to page %d, recorded on body page %d", h.Text, h.Target, h.BodyPage)
		}
	}
	if headings[1].Depth != 2 {
		t.Fatalf("depth: %d", headings[1].Depth)
	}

	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if r.NumPage() != 2 {
		t.Fatalf("expected contents page plus one body page, got %d pages", r.NumPage())
	}
	toc, err := r.Page(1).GetPlainText(nil)
	if err != nil {
		t.Fatalf("page 1 text: %v", err)
	}
	iOverview := strings.Index(toc, "Overview")
	iVocab := strings.Index(toc, "Vocabulary")
	if !strings.Contains(toc, "Table of Contents") || iOverview < 0 || iVocab < iOverview {
		t.Fatalf("unexpected contents page text: %q", toc)
	}
}

func TestPDFMultiPageContents(t *testing.T) {
	var b strings.Builder
	const n = 90
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "## Heading %d\n\n", i)
	}
	body, headings, err := renderPDF(document.Parse(b.String()), "Index")
	if err != nil {
		t.Fatalf("renderPDF: %v", err)
	}
	if len(headings) != n {
		t.Fatalf("expected %d headings, got %d", n, len(headings))
	}

	slots := tocSlots(n, 297)
	const tocPages = 3
	if got := slots[len(slots)-1].page; got != tocPages {
		t.Fatalf("contents pages: got %d want %d", got, tocPages)
	}
	if slots[36].page != 1 || slots[37].page != 2 || slots[76].page != 3 {
		t.Fatalf("unexpected slot pages: %d %d %d", slots[36].page, slots[37].page, slots[76].page)
	}
	for _, h := range headings {
		if h.Target != h.BodyPage+tocPages {
			t.Fatalf("%q links to page %d, recorded on body page %d", h.Text, h.Target, h.BodyPage)
		}
	}
	if headings[0].Target != tocPages+1 {
		t.Fatalf("first heading should link to the first body page, got %d", headings[0].Target)
	}

	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	last := headings[n-1]
	if r.NumPage() != tocPages+last.BodyPage {
		t.Fatalf("pages: got %d want %d", r.NumPage(), tocPages+last.BodyPage)
	}
	for page, want := range map[int]string{1: "Heading 37", 2: "Heading 50", 3: "Heading 80", 4: "Index"} {
		text, err := r.Page(page).GetPlainText(nil)
		if err != nil {
			t.Fatalf("page %d text: %v", page, err)
		}
		if !strings.Contains(text, want) {
			t.Fatalf("page %d missing %q: %q", page, want, text)
		}
	}
}

func TestPDFLongBodyBreaksPages(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteString("## Section\n\n")
		b.WriteString(strings.Repeat("A fairly long sentence that will need wrapping across the page width. ", 40))
		b.WriteString("\n\n")
	}
	_, headings, err := renderPDF(document.Parse(b.String()), "Long")
	if err != nil {
		t.Fatalf("renderPDF: %v", err)
	}
	if len(headings) != 6 {
		t.Fatalf("expected 6 headings, got %d", len(headings))
	}
	last := headings[len(headings)-1]
	if last.BodyPage < 2 || last.Target != last.BodyPage+1 {
		t.Fatalf("expected later headings past the first body page: %+v", last)
	}
	for i := 1; i < len(headings); i++ {
		if headings[i].BodyPage < headings[i-1].BodyPage {
			t.Fatalf("headings out of order: %+v", headings)
		}
	}
}

func TestPDFWithoutHeadingsHasNoContentsPage(t *testing.T) {
	_, headings, err := renderPDF(document.Parse("just a paragraph"), "Plain")
	if err != nil {
		t.Fatalf("renderPDF: %v", err)
	}
	if len(headings) != 0 {
		t.Fatalf("unexpected headings: %+v", headings)
	}
	a, err := Render("just a paragraph", "Plain", FormatPDF)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(a.Body, []byte("%PDF-")) || a.ContentType != "application/pdf" {
		t.Fatalf("unexpected artifact: %s %q", a.ContentType, a.Body[:8])
	}
}
