package writer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-editor/internal/models"
)

func sampleStatement() *models.Statement {
	st := &models.Statement{
		ID: "abc",
		Header: models.Header{
			BankName:      "Metro Bank",
			AccountHolder: "John Smith",
			AccountNumber: "12345678",
			SortCode:      "23-05-80",
			Address:       "1 High St & Co <London>",
		},
		OpeningBalance: decimal.RequireFromString("1260.55"),
		Version:        3,
		CreatedAt:      time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC),
		Transactions: []models.Transaction{
			{Date: models.NewDate(2024, 1, 15), Description: "CARD PAYMENT TESCO", Debit: decimal.RequireFromString("25.99")},
			{Date: models.NewDate(2024, 1, 16), Description: "SALARY, ACME", Credit: decimal.RequireFromString("2500"), Ref: "PAY-1"},
		},
	}
	st.Recalculate()
	return st
}

func TestLookup(t *testing.T) {
	for _, f := range []string{"csv", "json", "xlsx", "pdf", "docx", "PDF", " docx "} {
		_, err := Lookup(f)
		assert.NoError(t, err, f)
	}

	_, err := Lookup("xyz")
	var uerr *models.UnsupportedFormatError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "xyz", uerr.Format)

	assert.Equal(t, []string{"csv", "docx", "json", "pdf", "xlsx"}, Formats())
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "abc_edited.pdf", Filename("abc", "PDF"))
}

func TestCSVWriter_Render(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	require.NoError(t, w.Render(&buf, sampleStatement()))

	output := buf.String()
	assert.Contains(t, output, "# Bank,Metro Bank\n")
	assert.Contains(t, output, "# Account Holder,John Smith\n")
	assert.Contains(t, output, "# Opening Balance,1260.55\n")
	assert.Contains(t, output, "Date,Description,Credit,Debit,Balance,Ref\n")
	assert.Contains(t, output, "2024-01-15,CARD PAYMENT TESCO,,25.99,1234.56,\n")
	assert.Contains(t, output, "2024-01-16,\"SALARY, ACME\",2500.00,,3734.56,PAY-1\n")
	assert.Contains(t, output, "TOTAL,,2500.00,25.99,3734.56,\n")

	lines := strings.Split(strings.TrimSpace(output), "\n")
	// 6 metadata lines + 1 header + 2 transactions + totals
	assert.Len(t, lines, 10)
}

func TestCSVWriter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: false}
	require.NoError(t, w.Render(&buf, sampleStatement()))
	assert.True(t, strings.HasPrefix(buf.String(), "Date,Description"))
}

func TestJSONWriter_Render(t *testing.T) {
	data, contentType, err := Render(sampleStatement(), "json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)

	var got models.Statement
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "John Smith", got.Header.AccountHolder)
	assert.True(t, got.ClosingBalance.Equal(decimal.RequireFromString("3734.56")))
	assert.Contains(t, string(data), `"closing_balance": "3734.56"`)
}

func TestXLSXWriter_Render(t *testing.T) {
	data, _, err := Render(sampleStatement(), "xlsx")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary", "transactions"}, f.GetSheetList())
	v, err := f.GetCellValue("transactions", "B3")
	require.NoError(t, err)
	assert.Equal(t, "SALARY, ACME", v)
	v, err = f.GetCellValue("summary", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Metro Bank", v)
}

func TestPDFWriter_Render(t *testing.T) {
	st := sampleStatement()
	for i := 0; i < 120; i++ {
		st.Transactions = append(st.Transactions, models.Transaction{
			Date: models.NewDate(2024, 1, 20), Description: "Coffee ☕ shop", Debit: decimal.NewFromInt(1),
		})
	}
	st.Recalculate()

	data, contentType, err := Render(st, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestDOCXWriter_Render(t *testing.T) {
	data, _, err := Render(sampleStatement(), "docx")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var doc string
	for _, f := range zr.File {
		assert.True(t, f.Modified.Equal(docxModified) || f.Modified.IsZero(), f.Name)
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
			doc = string(b)
		}
	}
	require.NotEmpty(t, doc)
	assert.Contains(t, doc, "John Smith")
	assert.Contains(t, doc, "1 High St &amp; Co &lt;London&gt;")
	assert.Contains(t, doc, "15-01-2024")
	assert.Contains(t, doc, "3734.56")
}

func TestRender_Stable(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			a, _, err := Render(sampleStatement(), format)
			require.NoError(t, err)
			b, _, err := Render(sampleStatement(), format)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestSheetWriter_KeepsFirstError(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sw := &sheetWriter{f: f}
	sw.set("missing", "A1", "lost")
	firstErr := sw.err
	require.Error(t, firstErr)

	sw.set("Sheet1", "A1", "skipped")
	sw.width("Sheet1", "A", "A", 10)
	assert.Equal(t, firstErr, sw.err)

	v, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestCanonical(t *testing.T) {
	name, ok := Canonical(" PDF ")
	assert.True(t, ok)
	assert.Equal(t, "pdf", name)

	_, ok = Canonical("rtf")
	assert.False(t, ok)
}

func TestRender_DoesNotMutate(t *testing.T) {
	st := sampleStatement()
	before, err := json.Marshal(st)
	require.NoError(t, err)

	for _, format := range Formats() {
		_, _, err := Render(st, format)
		require.NoError(t, err, format)
	}
	after, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}
