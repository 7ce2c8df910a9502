package editor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-editor/internal/models"
)

var (
	ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	micrPattern = regexp.MustCompile(`^\d{9}$`)
)

const maxDescriptionLen = 500

func invalid(field, format string, args ...any) error {
	return &models.ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks req against st without changing either. Every failure is
// a *models.ValidationError.
func (e *Engine) Validate(st *models.Statement, req models.EditRequest) error {
	if e.validateCodes {
		if v := strings.TrimSpace(req.IFSC); v != "" && !ifscPattern.MatchString(strings.ToUpper(v)) {
			return invalid("ifsc", "expected 4 letters, a zero and 6 letters or digits (e.g. SBIN0001234)")
		}
		if v := strings.NewReplacer(" ", "", "-", "").Replace(req.MICR); v != "" && !micrPattern.MatchString(v) {
			return invalid("micr", "must be 9 digits")
		}
	}

	for i, te := range req.TransactionEdits {
		field := fmt.Sprintf("transaction_edits[%d]", i)
		if te.Index < 0 || te.Index >= len(st.Transactions) {
			return invalid(field+".index", "%d is out of range (statement has %d transactions)", te.Index, len(st.Transactions))
		}
		if te.Credit != nil && te.Credit.IsNegative() {
			return invalid(field+".credit", "must not be negative")
		}
		if te.Debit != nil && te.Debit.IsNegative() {
			return invalid(field+".debit", "must not be negative")
		}
		if te.Date != nil && te.Date.IsZero() {
			return invalid(field+".date", "must be a YYYY-MM-DD date")
		}
		if te.Description != nil && len(*te.Description) > maxDescriptionLen {
			return invalid(field+".description", "too long (max %d characters)", maxDescriptionLen)
		}
	}

	if req.ApplyDateSequencing {
		switch {
		case req.StartDate.IsZero():
			return invalid("start_date", "required when apply_date_sequencing is true")
		case req.EndDate.IsZero():
			return invalid("end_date", "required when apply_date_sequencing is true")
		case req.DateDistributionMethod == "":
			return invalid("date_distribution_method", "required when apply_date_sequencing is true")
		case !knownMethod(req.DateDistributionMethod):
			return invalid("date_distribution_method", "unknown method %q (use %s or %s)",
				req.DateDistributionMethod, models.DistributionPreserveSpacing, models.DistributionUniform)
		case req.EndDate.Before(req.StartDate):
			return invalid("end_date", "must not be before start_date")
		case req.StartDate.DaysUntil(req.EndDate) > e.maxRangeDays:
			return invalid("end_date", "date range too large (max %d days)", e.maxRangeDays)
		}
	}

	if req.SalaryAmount.Valid {
		amount := req.SalaryAmount.Decimal
		switch {
		case req.SalaryDate.IsZero():
			return invalid("salary_date", "required when salary_amount is set")
		case !amount.IsPositive():
			return invalid("salary_amount", "must be positive")
		case e.maxSalary.IsPositive() && amount.GreaterThan(e.maxSalary):
			return invalid("salary_amount", "exceeds the limit of %s", e.maxSalary.StringFixed(2))
		}
	}
	return nil
}

func knownMethod(m string) bool {
	return m == models.DistributionPreserveSpacing || m == models.DistributionUniform
}

// DefaultMaxSalary bounds synthetic salary credits.
var DefaultMaxSalary = decimal.NewFromInt(10_000_000)
