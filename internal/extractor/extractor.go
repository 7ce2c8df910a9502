package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// PageBreak separates pages in client-side extracted text.
const PageBreak = "---PAGE_BREAK---"

// Supported upload extensions.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

// Document is an uploaded statement file held in memory.
type Document struct {
	Name string
	Data []byte
}

// Options controls the fallback chain.
type Options struct {
	// OCR enables the pdftoppm + tesseract fallback for image-only PDFs.
	OCR    bool
	Logger *slog.Logger
}

// Extractor turns uploaded documents into per-page text.
type Extractor struct {
	ocr    bool
	logger *slog.Logger
}

// New returns an Extractor.
func New(opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{ocr: opts.OCR, logger: logger}
}

// Supported reports whether the file name has an extension we can extract.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract returns the text of each page of doc. Failures are reported as
// *models.ParseError.
func (e *Extractor) Extract(ctx context.Context, doc Document) ([]string, error) {
	if len(doc.Data) == 0 {
		return nil, &models.ParseError{Reason: "uploaded file is empty"}
	}

	var (
		pages []string
		err   error
	)
	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		pages, err = e.extractPDF(ctx, doc.Data)
	case ".docx":
		pages, err = extractDOCX(doc.Data)
	case ".txt":
		pages = SplitPages(string(doc.Data))
	default:
		return nil, &models.ParseError{Reason: fmt.Sprintf("unsupported file type %q: use PDF, DOCX or TXT", filepath.Ext(doc.Name))}
	}
	if err != nil {
		return nil, &models.ParseError{Reason: err.Error()}
	}
	if len(pages) == 0 {
		return nil, &models.ParseError{Reason: "document contains no text"}
	}
	return pages, nil
}

// SplitPages splits pre-extracted text on page break markers and form feeds,
// dropping empty pages.
func SplitPages(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\f", "\n"+PageBreak+"\n")

	var pages []string
	for _, page := range strings.Split(text, PageBreak) {
		page = strings.TrimSpace(page)
		if page != "" {
			pages = append(pages, page)
		}
	}
	return pages
}

// withTempFile writes data to a temp file for the external tools, which only
// read from disk.
func withTempFile(data []byte, pattern string, fn func(path string) ([]string, error)) ([]string, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return fn(tmp.Name())
}
