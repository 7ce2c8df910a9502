// Package writer renders statements into downloadable documents.
package writer

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// Renderer serializes a statement in one format. Output depends only on
// the statement value.
type Renderer interface {
	Render(w io.Writer, st *models.Statement) error
	ContentType() string
}

var renderers = map[string]Renderer{
	"csv":  &CSVWriter{IncludeHeader: true},
	"json": JSONWriter{},
	"xlsx": XLSXWriter{},
	"pdf":  PDFWriter{},
	"docx": DOCXWriter{},
}

// Formats lists the recognized export formats.
func Formats() []string {
	out := make([]string, 0, len(renderers))
	for f := range renderers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Canonical returns the registered name matching format, ignoring case and
// surrounding space. The result is the registry's own string.
func Canonical(format string) (string, bool) {
	format = strings.TrimSpace(format)
	for name := range renderers {
		if strings.EqualFold(name, format) {
			return name, true
		}
	}
	return "", false
}

// Lookup returns the renderer for format, matched case-insensitively.
func Lookup(format string) (Renderer, error) {
	name, ok := Canonical(format)
	if !ok {
		return nil, &models.UnsupportedFormatError{Format: strings.Clone(format)}
	}
	return renderers[name], nil
}

// Render serializes st in format.
func Render(st *models.Statement, format string) ([]byte, string, error) {
	r, err := Lookup(format)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, st); err != nil {
		return nil, "", fmt.Errorf("failed to render %s: %w", format, err)
	}
	return buf.Bytes(), r.ContentType(), nil
}

// Filename is the download name for an exported statement.
func Filename(id, format string) string {
	return fmt.Sprintf("%s_edited.%s", id, strings.ToLower(strings.TrimSpace(format)))
}

func headerRows(h models.Header) [][2]string {
	rows := [][2]string{
		{"Bank", h.BankName},
		{"Account Holder", h.AccountHolder},
		{"Account Number", h.AccountNumber},
		{"IFSC", h.IFSC},
		{"MICR", h.MICR},
		{"Branch", h.Branch},
		{"Sort Code", h.SortCode},
		{"Statement Period", h.StatementPeriod},
		{"Address", h.Address},
	}
	out := rows[:0]
	for _, r := range rows {
		if r[1] != "" {
			out = append(out, r)
		}
	}
	return out
}

// formatAmount leaves zero amounts blank.
func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}

func title(st *models.Statement) string {
	if st.Header.BankName != "" {
		return st.Header.BankName
	}
	return "Bank Statement"
}
