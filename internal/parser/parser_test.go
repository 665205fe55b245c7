package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kotae-ai/kotae/internal/models"
)

func TestParse_Plain(t *testing.T) {
	p := New()
	text, err := p.Parse([]byte("hello world"), "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("got %q", text)
	}
}

func TestParse_UnknownExtensionIsPlain(t *testing.T) {
	p := New()
	text, err := p.Parse([]byte("raw bytes"), "file.weird")
	if err != nil {
		t.Fatal(err)
	}
	if text != "raw bytes" {
		t.Errorf("got %q", text)
	}
}

func TestParse_PlainNormalized(t *testing.T) {
	p := New()
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("first\r\nsecond\r\n")...)
	text, err := p.Parse(content, "win.txt")
	if err != nil {
		t.Fatal(err)
	}
	if text != "first\nsecond\n" {
		t.Errorf("got %q", text)
	}
}

func TestParse_InvalidUTF8Sanitized(t *testing.T) {
	p := New()
	text, err := p.Parse([]byte{'a', 0xff, 'b'}, "bad.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "a") || !strings.Contains(text, "b") {
		t.Errorf("got %q", text)
	}
	if strings.Contains(text, "\xff") {
		t.Error("invalid byte should be replaced")
	}
}

func TestParse_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte(`<w:document><w:body><w:p w:rsidR="0"><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve">docx world</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	p := New()
	text, err := p.Parse(buf.Bytes(), "doc.docx")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Hello") || !strings.Contains(text, "docx world") {
		t.Errorf("got %q", text)
	}
}

func TestParse_XLSXMultiSheet(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "alpha"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Costs"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Costs", "A1", "beta"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	p := New()
	text, err := p.Parse(buf.Bytes(), "book.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Sheet1", "alpha", "Costs", "beta"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in %q", want, text)
		}
	}
}

func TestParse_CorruptDOCXIsParseError(t *testing.T) {
	p := New()
	_, err := p.Parse([]byte("not a zip"), "doc.docx")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, models.ErrParse) {
		t.Errorf("expected parse error kind, got %v", err)
	}
}

func TestParse_CorruptPDFIsParseError(t *testing.T) {
	p := New()
	_, err := p.Parse([]byte("not a pdf"), "doc.pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, models.ErrParse) {
		t.Errorf("expected parse error kind, got %v", err)
	}
}
