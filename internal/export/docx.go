package export

import (
	"bytes"
	"fmt"

	"github.com/fumiama/go-docx"

	"github.com/yungbote/edutools-backend/internal/document"
)

// Heading sizes in half-points, indexed by level. The bundled template has no heading styles,
// so runs carry their own size and weight.
var docxHeadingSize = [...]string{"", "32", "28", "26", "24", "22", "22"}

func renderDOCX(m document.Model, title string) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText(title).Bold().Size("40")

	for _, b := range m.Blocks {
		switch b.Kind {
		case document.KindHeading:
			lvl := b.Level
			if lvl < 1 || lvl >= len(docxHeadingSize) {
				lvl = len(docxHeadingSize) - 1
			}
			doc.AddParagraph().AddText(b.Text).Bold().Size(docxHeadingSize[lvl])
		case document.KindParagraph:
			doc.AddParagraph().AddText(b.Text)
		case document.KindList:
			for i, item := range b.Items {
				prefix := "• "
				if b.Ordered {
					prefix = fmt.Sprintf("%d. ", b.Start+i)
				}
				doc.AddParagraph().AddText(prefix + item)
			}
		case document.KindTable:
			addDOCXTable(doc, b.Table)
		case document.KindSpacer:
			doc.AddParagraph()
		}
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addDOCXTable(doc *docx.Docx, t *document.Table) {
	cols := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return
	}
	tbl := doc.AddTable(len(t.Rows)+1, cols, 0, nil)
	for c, cell := range t.Header {
		tbl.TableRows[0].TableCells[c].AddParagraph().AddText(cell).Bold()
	}
	for r, row := range t.Rows {
		for c := 0; c < cols; c++ {
			p := tbl.TableRows[r+1].TableCells[c].AddParagraph()
			if c < len(row) {
				p.AddText(row[c])
			}
		}
	}
}
