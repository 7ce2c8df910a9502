// Package editor applies edit requests to statements.
package editor

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-editor/internal/audit"
	"github.com/insightdelivered/statement-editor/internal/models"
)

// DefaultMaxRangeDays bounds the date sequencing range.
const DefaultMaxRangeDays = 3650

// Options configures an Engine.
type Options struct {
	// ValidateCodes rejects IFSC and MICR overrides that are not well formed.
	ValidateCodes bool
	MaxRangeDays  int
	MaxSalary     decimal.Decimal
	Clock         func() time.Time
}

// Engine validates and applies edit requests.
type Engine struct {
	validateCodes bool
	maxRangeDays  int
	maxSalary     decimal.Decimal
	now           func() time.Time
}

// New returns an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		validateCodes: opts.ValidateCodes,
		maxRangeDays:  opts.MaxRangeDays,
		maxSalary:     opts.MaxSalary,
		now:           opts.Clock,
	}
	if e.maxRangeDays <= 0 {
		e.maxRangeDays = DefaultMaxRangeDays
	}
	if e.maxSalary.IsZero() {
		e.maxSalary = DefaultMaxSalary
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Apply validates req and returns an edited copy of st. Changes are
// recorded on rec. On error neither st nor rec is touched.
//
// Order: header overrides, transaction edits, date sequencing, salary
// insertion, then balances are recomputed.
func (e *Engine) Apply(st *models.Statement, req models.EditRequest, rec *audit.Recorder) (*models.Statement, error) {
	if err := e.Validate(st, req); err != nil {
		return nil, err
	}

	out := st.Clone()
	before := rec.Len()

	applyHeader(out, req, rec)
	amountsChanged := applyTransactionEdits(out, req.TransactionEdits, rec)
	if req.ApplyDateSequencing {
		applySequencing(out, req, rec)
	}
	if req.SalaryAmount.Valid {
		insertSalary(out, req, rec)
		amountsChanged = true
	}

	if amountsChanged {
		out.Recalculate()
	} else {
		out.RefreshTotals()
	}
	if rec.Len() > before {
		out.Version++
		out.UpdatedAt = e.now().UTC()
	}
	return out, nil
}

func applyHeader(st *models.Statement, req models.EditRequest, rec *audit.Recorder) {
	for _, fv := range req.HeaderOverrides() {
		v := strings.TrimSpace(fv.Value)
		if v == "" {
			continue
		}
		if fv.Field == "ifsc" {
			v = strings.ToUpper(v)
		}
		field := st.Header.HeaderField(fv.Field)
		rec.Header(fv.Field, *field, v)
		*field = v
	}
}

// applyTransactionEdits reports whether any credit or debit changed.
func applyTransactionEdits(st *models.Statement, edits []models.TransactionEdit, rec *audit.Recorder) bool {
	amounts := false
	for _, te := range edits {
		txn := &st.Transactions[te.Index]
		if te.Date != nil {
			rec.Transaction(te.Index, "date", txn.Date, *te.Date)
			txn.Date = *te.Date
		}
		if te.Description != nil {
			rec.Transaction(te.Index, "description", txn.Description, *te.Description)
			txn.Description = *te.Description
		}
		if te.Credit != nil {
			v := te.Credit.Round(2)
			rec.Transaction(te.Index, "credit", txn.Credit, v)
			txn.Credit = v
			amounts = true
		}
		if te.Debit != nil {
			v := te.Debit.Round(2)
			rec.Transaction(te.Index, "debit", txn.Debit, v)
			txn.Debit = v
			amounts = true
		}
		if te.Ref != nil {
			rec.Transaction(te.Index, "ref", txn.Ref, *te.Ref)
			txn.Ref = *te.Ref
		}
	}
	return amounts
}

func applySequencing(st *models.Statement, req models.EditRequest, rec *audit.Recorder) {
	dates := make([]models.Date, len(st.Transactions))
	for i, txn := range st.Transactions {
		dates[i] = txn.Date
	}
	next := SequenceDates(dates, req.StartDate, req.EndDate, req.DateDistributionMethod)
	for i := range st.Transactions {
		if next[i].Equal(dates[i]) {
			continue
		}
		rec.DateSequenced(i, dates[i], next[i])
		st.Transactions[i].Date = next[i]
	}
}

// insertSalary places the salary credit before the first transaction dated
// on or after the salary date, so it counts toward every such row.
func insertSalary(st *models.Statement, req models.EditRequest, rec *audit.Recorder) {
	desc := strings.TrimSpace(req.SalaryDescription)
	if desc == "" {
		desc = models.DefaultSalaryDescription
	}
	amount := req.SalaryAmount.Decimal.Round(2)
	txn := models.Transaction{
		Date:        req.SalaryDate,
		Description: desc,
		Credit:      amount,
	}

	pos := len(st.Transactions)
	for i, t := range st.Transactions {
		if !t.Date.Before(req.SalaryDate) {
			pos = i
			break
		}
	}
	st.Transactions = append(st.Transactions, models.Transaction{})
	copy(st.Transactions[pos+1:], st.Transactions[pos:])
	st.Transactions[pos] = txn

	rec.SalaryInserted(pos, audit.Salary{Date: req.SalaryDate, Description: desc, Amount: amount})
}
