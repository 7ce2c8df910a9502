package writer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	// IncludeHeader prefixes the table with "# Field,value" metadata rows.
	IncludeHeader bool
}

func (w *CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }

// Render writes the statement in CSV format to out.
func (w *CSVWriter) Render(out io.Writer, st *models.Statement) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, r := range headerRows(st.Header) {
			if err := writer.Write([]string{"# " + r[0], r[1]}); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
		if err := writer.Write([]string{"# Opening Balance", st.OpeningBalance.StringFixed(2)}); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	header := []string{"Date", "Description", "Credit", "Debit", "Balance", "Ref"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range st.Transactions {
		row := []string{
			txn.Date.String(),
			txn.Description,
			formatAmount(txn.Credit),
			formatAmount(txn.Debit),
			txn.Balance.StringFixed(2),
			txn.Ref,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	total := []string{"TOTAL", "", st.TotalCredits.StringFixed(2), st.TotalDebits.StringFixed(2), st.ClosingBalance.StringFixed(2), ""}
	if err := writer.Write(total); err != nil {
		return fmt.Errorf("failed to write CSV totals: %w", err)
	}

	writer.Flush()
	return writer.Error()
}
