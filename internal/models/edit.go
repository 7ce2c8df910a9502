package models

import "github.com/shopspring/decimal"

// Date distribution methods understood by the edit engine.
const (
	DistributionPreserveSpacing = "preserve_spacing"
	DistributionUniform         = "uniform"
)

// DefaultSalaryDescription is used when a salary insertion omits one.
const DefaultSalaryDescription = "Salary Credit"

// EditRequest is a sparse set of header overrides plus optional
// transaction-level operations.
type EditRequest struct {
	AccountHolder string `json:"account_holder,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	MICR          string `json:"micr,omitempty"`
	Branch        string `json:"branch,omitempty"`

	TransactionEdits []TransactionEdit `json:"transaction_edits,omitempty"`

	ApplyDateSequencing    bool   `json:"apply_date_sequencing"`
	DateDistributionMethod string `json:"date_distribution_method,omitempty"`
	StartDate              Date   `json:"start_date"`
	EndDate                Date   `json:"end_date"`

	SalaryAmount      decimal.NullDecimal `json:"salary_amount"`
	SalaryDate        Date                `json:"salary_date"`
	SalaryDescription string              `json:"salary_description,omitempty"`
}

// TransactionEdit overrides fields of the transaction at Index. Nil fields
// are left untouched.
type TransactionEdit struct {
	Index       int              `json:"index"`
	Date        *Date            `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
	Credit      *decimal.Decimal `json:"credit,omitempty"`
	Debit       *decimal.Decimal `json:"debit,omitempty"`
	Ref         *string          `json:"ref,omitempty"`
}

// HeaderOverrides lists the header overrides in application order.
func (r EditRequest) HeaderOverrides() []FieldValue {
	return []FieldValue{
		{Field: "account_holder", Value: r.AccountHolder},
		{Field: "account_number", Value: r.AccountNumber},
		{Field: "ifsc", Value: r.IFSC},
		{Field: "micr", Value: r.MICR},
		{Field: "branch", Value: r.Branch},
	}
}

// FieldValue pairs a header field name with a value.
type FieldValue struct {
	Field string
	Value string
}

// HeaderField returns a pointer to the named header field, or nil.
func (h *Header) HeaderField(name string) *string {
	switch name {
	case "account_holder":
		return &h.AccountHolder
	case "account_number":
		return &h.AccountNumber
	case "ifsc":
		return &h.IFSC
	case "micr":
		return &h.MICR
	case "branch":
		return &h.Branch
	}
	return nil
}
