package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-editor/internal/models"
)

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single page", "Account Number: 1\nDate Balance", []string{"Account Number: 1\nDate Balance"}},
		{"marker", "page one\n---PAGE_BREAK---\npage two", []string{"page one", "page two"}},
		{"form feed", "page one\fpage two", []string{"page one", "page two"}},
		{"drops empty", "---PAGE_BREAK---\n\n---PAGE_BREAK---\nonly", []string{"only"}},
		{"crlf", "a\r\nb", []string{"a\nb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitPages(tt.in))
		})
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("statement.PDF"))
	assert.True(t, Supported("statement.docx"))
	assert.True(t, Supported("statement.txt"))
	assert.False(t, Supported("statement.xls"))
	assert.False(t, Supported("statement"))
}

func TestExtract_Text(t *testing.T) {
	e := New(Options{})
	pages, err := e.Extract(context.Background(), Document{Name: "s.txt", Data: []byte("one\fTwo")})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "Two"}, pages)
}

func TestExtract_Errors(t *testing.T) {
	e := New(Options{})
	tests := []struct {
		name string
		doc  Document
	}{
		{"empty", Document{Name: "s.pdf"}},
		{"unsupported", Document{Name: "s.xls", Data: []byte("x")}},
		{"blank text", Document{Name: "s.txt", Data: []byte("  \n ")}},
		{"broken docx", Document{Name: "s.docx", Data: []byte("not a zip")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), tt.doc)
			var perr *models.ParseError
			require.True(t, errors.As(err, &perr), "want ParseError, got %v", err)
		})
	}
}

func TestExtract_InvalidPDF(t *testing.T) {
	if _, err := exec.LookPath("pdftotext"); err == nil {
		t.Skip("pdftotext installed; its error path differs")
	}
	e := New(Options{})
	_, err := e.Extract(context.Background(), Document{Name: "s.pdf", Data: []byte("%PDF-1.4 garbage")})
	var perr *models.ParseError
	require.True(t, errors.As(err, &perr))
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>Account Holder: Jane Doe</w:t></w:r></w:p>`+
			`<w:tbl><w:tr>`+
			`<w:tc><w:p><w:r><w:t>2024-01-01</w:t></w:r></w:p></w:tc>`+
			`<w:tc><w:p><w:r><w:t>Salary</w:t></w:r></w:p></w:tc>`+
			`</w:tr></w:tbl>`+
			`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`+
			`<w:p><w:r><w:t>Page two</w:t></w:r></w:p>`)

	pages, err := extractDOCX(data)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Account Holder: Jane Doe")
	assert.Contains(t, pages[0], "2024-01-01")
	assert.Contains(t, pages[0], "Salary")
	assert.Equal(t, "Page two", pages[1])
}

func TestExtractDOCX_MissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = extractDOCX(buf.Bytes())
	require.Error(t, err)
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"statement text", []string{"Account Number 12345678\nDate Description Balance\n01/01/2024 Opening"}, true},
		{"too short", []string{"balance"}, false},
		{"no statement words", []string{"lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod"}, false},
		{"garbage", []string{"ÀÁÂÃÄÅÆÇÈÉÊËÌÍÎÏÐÑÒÓÔÕÖ×ØÙÚÛÜÝÞßàáâãäåæçèéêëìíîïðñòóôõö balance"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReadableText(tt.pages))
		})
	}
}

func TestIsOCRAvailable(t *testing.T) {
	_, err1 := exec.LookPath("pdftoppm")
	_, err2 := exec.LookPath("tesseract")
	assert.Equal(t, err1 == nil && err2 == nil, IsOCRAvailable())
}
