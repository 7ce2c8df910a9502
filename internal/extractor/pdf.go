package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// extractPDF runs the PDF fallback chain: the structured library first,
// then pdftotext, then OCR when enabled. Garbage text is never returned.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) ([]string, error) {
	pages, libErr := extractWithLibrary(data)
	if libErr == nil && isReadableText(pages) {
		return pages, nil
	}
	e.logger.Debug("pdf library extraction unusable", "error", libErr)

	popplerPages, popplerErr := withTempFile(data, "statement-*.pdf", func(path string) ([]string, error) {
		return extractWithPdftotext(ctx, path)
	})
	if popplerErr == nil && isReadableText(popplerPages) {
		return popplerPages, nil
	}
	e.logger.Debug("pdftotext extraction unusable", "error", popplerErr)

	if e.ocr {
		ocrPages, ocrErr := withTempFile(data, "statement-*.pdf", func(path string) ([]string, error) {
			return extractWithOCR(ctx, path)
		})
		if ocrErr == nil && isReadableText(ocrPages) {
			return ocrPages, nil
		}
		e.logger.Debug("ocr extraction unusable", "error", ocrErr)
	}

	if libErr != nil {
		return nil, fmt.Errorf("PDF text extraction failed: %v; the PDF may be image-based or use custom font encodings", libErr)
	}
	return nil, errors.New("no readable text could be extracted from PDF; the file may be image-based or scanned")
}

// pageStrategy extracts every page of a PDF one way.
type pageStrategy func(r *pdf.Reader) []string

// extractWithLibrary tries the ledongthuc/pdf strategies in order of layout
// fidelity and returns the first readable result.
func extractWithLibrary(data []byte) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PDF library crashed: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if r.NumPage() == 0 {
		return nil, errors.New("PDF has no pages")
	}

	strategies := []pageStrategy{byRow, byContent, byReaderPlainText}
	for _, strategy := range strategies {
		pages = strategy(r)
		if isReadableText(pages) {
			return pages, nil
		}
	}
	return pages, nil
}

func byRow(r *pdf.Reader) []string {
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// byContent rebuilds rows by grouping text runs on their rounded Y
// coordinate and ordering each row by X. Wide gaps become double spaces so
// column boundaries survive.
func byContent(r *pdf.Reader) []string {
	type run struct {
		x float64
		s string
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		rows := make(map[int][]run)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			rows[y] = append(rows[y], run{x: t.X, s: t.S})
		}

		ys := make([]int, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		// PDF Y grows upwards.
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		var lines []string
		for _, y := range ys {
			runs := rows[y]
			sort.Slice(runs, func(a, b int) bool { return runs[a].x < runs[b].x })

			var sb strings.Builder
			for j, rn := range runs {
				if j > 0 && rn.x-runs[j-1].x > 15 {
					sb.WriteString("  ")
				}
				sb.WriteString(rn.s)
			}
			if line := strings.TrimSpace(sb.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func byReaderPlainText(r *pdf.Reader) []string {
	reader, err := r.GetPlainText()
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	return []string{text}
}

// extractWithPdftotext shells out to poppler's pdftotext, one page at a
// time so page boundaries are kept.
func extractWithPdftotext(ctx context.Context, path string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages := pdfPageCount(ctx, path)
	if numPages == 0 {
		numPages = 1
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		n := strconv.Itoa(i)
		out, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-f", n, "-l", n, path, "-").Output()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, errors.New("pdftotext produced no output")
	}
	return pages, nil
}

// pdfPageCount asks pdfinfo for the page count; 0 when unknown.
func pdfPageCount(ctx context.Context, path string) int {
	out, err := exec.CommandContext(ctx, "pdfinfo", path).Output()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(line, "Pages:"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// textQuality returns the share of ASCII letters, digits, whitespace, common
// punctuation and currency symbols. Identity-encoded fonts decode to
// accented garbage, so letters outside ASCII do not count.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(".,-/:;()'\"%&@#!?+=*", r)) {
				readable++
				continue
			}
			if strings.ContainsRune("£$€₹", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// statementWords appear in virtually every bank statement.
var statementWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "sort code",
	"money", "paid", "opening", "closing", "transfer", "direct",
	"number", "page", "period", "withdrawal", "deposit", "ifsc",
}

func containsStatementWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range statementWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}

// isReadableText requires more than 50 characters, over 60% readable
// characters, and at least one statement word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsStatementWords(pages)
}

// IsReadableText reports whether extracted pages look like real statement
// text rather than decoding garbage.
func IsReadableText(pages []string) bool {
	return isReadableText(pages)
}
