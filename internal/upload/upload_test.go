package upload

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"

	"github.com/yungbote/edutools-backend/internal/platform/gcp"
)

func makePDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		if text != "" {
			doc.Cell(40, 10, text)
		}
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	return buf.Bytes()
}

func uploadErr(t *testing.T, err error) *Error {
	t.Helper()
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected *upload.Error, got %T %v", err, err)
	}
	return ue
}

func TestExtractText(t *testing.T) {
	e := New(nil, Config{}, nil, nil)
	res, err := e.Extract(context.Background(), "notes.txt", "text/plain; charset=utf-8", strings.NewReader("\ufeffCell biology notes"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.MimeType != MimeText || res.Text != "Cell biology notes" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExtractTextWithoutDeclaredType(t *testing.T) {
	e := New(nil, Config{}, nil, nil)
	res, err := e.Extract(context.Background(), "notes", "", strings.NewReader("plain words"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.MimeType != MimeText {
		t.Fatalf("expected text/plain, got %s", res.MimeType)
	}
}

func TestExtractRejections(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	cases := []struct {
		name     string
		declared string
		data     []byte
		status   int
		message  string
	}{
		{"image", "image/png", png, http.StatusUnsupportedMediaType, MsgUnsupported},
		{"image undeclared", "", png, http.StatusUnsupportedMediaType, MsgUnsupported},
		{"docx declared", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK\x03\x04"), http.StatusUnsupportedMediaType, MsgUnsupported},
		{"binary as text", "text/plain", []byte{0x00, 0xff, 0xfe, 0x00, 0x01}, http.StatusBadRequest, MsgTextRead},
		{"pdf without header", "application/pdf", []byte("not a pdf at all"), http.StatusBadRequest, MsgPDFParse},
		{"broken pdf", "application/pdf", []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"), http.StatusBadRequest, MsgPDFParse},
	}
	e := New(nil, Config{}, nil, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), "f", tc.declared, bytes.NewReader(tc.data))
			ue := uploadErr(t, err)
			if ue.Status != tc.status || ue.Message != tc.message {
				t.Fatalf("got %d %q, want %d %q", ue.Status, ue.Message, tc.status, tc.message)
			}
		})
	}
}

func TestExtractTooLarge(t *testing.T) {
	e := New(nil, Config{MaxBytes: 1 << 10}, nil, nil)
	_, err := e.Extract(context.Background(), "big.txt", "text/plain", strings.NewReader(strings.Repeat("a", 2<<10)))
	ue := uploadErr(t, err)
	if ue.Status != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", ue.Status)
	}
	if !strings.Contains(ue.Message, "1 KB") {
		t.Fatalf("message should name the limit: %q", ue.Message)
	}
}

func TestExtractPDF(t *testing.T) {
	data := makePDF(t, "Photosynthesis", "Respiration")
	e := New(nil, Config{}, nil, nil)
	res, err := e.Extract(context.Background(), "bio.pdf", "application/pdf", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.MimeType != MimePDF || res.Pages != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	first := strings.Index(res.Text, "Photosynthesis")
	second := strings.Index(res.Text, "Respiration")
	if first < 0 || second < first {
		t.Fatalf("page text missing or out of order: %q", res.Text)
	}
	if !strings.Contains(res.Text[first:second], "\n\n") {
		t.Fatalf("pages should be separated by a blank line: %q", res.Text)
	}
}

type fakeOCR struct {
	calls int
	text  string
	err   error
}

func (f *fakeOCR) ProcessBytes(ctx context.Context, req gcp.DocAIProcessBytesRequest) (*gcp.DocAIResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gcp.DocAIResult{MimeType: req.MimeType, Pages: []string{f.text}}, nil
}

func (f *fakeOCR) Close() error { return nil }

func TestExtractPDFFallsBackToOCR(t *testing.T) {
	ocr := &fakeOCR{text: "Scanned worksheet"}
	e := New(nil, Config{}, ocr, nil)
	res, err := e.Extract(context.Background(), "scan.pdf", "application/pdf", bytes.NewReader(makePDF(t, "")))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 1 || !res.OCR || res.Text != "Scanned worksheet" {
		t.Fatalf("expected OCR text, got %+v (calls=%d)", res, ocr.calls)
	}
}

func TestExtractPDFSkipsOCRWhenTextFound(t *testing.T) {
	ocr := &fakeOCR{text: "unused"}
	e := New(nil, Config{}, ocr, nil)
	if _, err := e.Extract(context.Background(), "a.pdf", "", bytes.NewReader(makePDF(t, "Fractions"))); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 0 {
		t.Fatalf("OCR should not run when the PDF has text")
	}
}

func TestExtractPDFOCRFailureKeepsEmptyText(t *testing.T) {
	ocr := &fakeOCR{err: errors.New("quota")}
	e := New(nil, Config{}, ocr, nil)
	res, err := e.Extract(context.Background(), "scan.pdf", "application/pdf", bytes.NewReader(makePDF(t, "")))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.OCR || res.Text != "" {
		t.Fatalf("unexpected result %+v", res)
	}
}
