// Package export renders generated Markdown into downloadable artifacts.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/edutools-backend/internal/document"
)

var ErrNoTable = errors.New("no table found in the output to export")

type Format string

const (
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatXLSX     Format = "xlsx"
	FormatCSV      Format = "csv"
)

var allFormats = []Format{FormatMarkdown, FormatPDF, FormatDOCX, FormatXLSX, FormatCSV}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	switch f {
	case "markdown":
		return FormatMarkdown, nil
	case "word":
		return FormatDOCX, nil
	case "excel", "spreadsheet":
		return FormatXLSX, nil
	}
	for _, known := range allFormats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

func (f Format) Spreadsheet() bool {
	return f == FormatXLSX || f == FormatCSV
}

// Options lists the formats offered for content. Spreadsheets need a table.
func Options(content string) []Format {
	if document.HasTable(content) {
		return append([]Format(nil), allFormats...)
	}
	return []Format{FormatMarkdown, FormatPDF, FormatDOCX}
}

type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename derives "<title>_output.<ext>" with whitespace runs collapsed to underscores.
func Filename(title string, f Format) string {
	return whitespaceRun.ReplaceAllString(title, "_") + "_output." + string(f)
}

// Render produces the artifact for one export request.
func Render(content, title string, f Format) (*Artifact, error) {
	var (
		body []byte
		err  error
	)
	switch f {
	case FormatMarkdown:
		body = []byte(content)
	case FormatPDF:
		body, _, err = renderPDF(document.Parse(content), title)
	case FormatDOCX:
		body, err = renderDOCX(document.Parse(content), title)
	case FormatXLSX, FormatCSV:
		tbl, ok := document.FirstTable(document.Parse(content))
		if !ok {
			return nil, ErrNoTable
		}
		if f == FormatXLSX {
			body, err = renderXLSX(tbl)
		} else {
			body, err = renderCSV(tbl)
		}
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", f, err)
	}
	return &Artifact{Filename: Filename(title, f), ContentType: f.ContentType(), Body: body}, nil
}
