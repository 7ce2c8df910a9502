package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Header holds the account metadata printed at the top of a statement.
// Every field is free text and may be empty.
type Header struct {
	BankName        string `json:"bank_name,omitempty"`
	AccountHolder   string `json:"account_holder"`
	AccountNumber   string `json:"account_number"`
	IFSC            string `json:"ifsc,omitempty"`
	MICR            string `json:"micr,omitempty"`
	Branch          string `json:"branch,omitempty"`
	SortCode        string `json:"sort_code,omitempty"`
	StatementPeriod string `json:"statement_period,omitempty"`
	Address         string `json:"address,omitempty"`
}

// Transaction represents a single statement row.
type Transaction struct {
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	Credit      decimal.Decimal `json:"credit"`
	Debit       decimal.Decimal `json:"debit"`
	Balance     decimal.Decimal `json:"balance"`
	Ref         string          `json:"ref,omitempty"`
}

// Statement is a parsed bank statement. Exactly one version per ID is
// current at any time.
type Statement struct {
	ID             string          `json:"id"`
	Layout         string          `json:"layout,omitempty"`
	SourceFile     string          `json:"source_file,omitempty"`
	Header         Header          `json:"header"`
	Transactions   []Transaction   `json:"transactions"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TotalCredits   decimal.Decimal `json:"total_credits"`
	TotalDebits    decimal.Decimal `json:"total_debits"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it without touching the
// stored version.
func (s *Statement) Clone() *Statement {
	if s == nil {
		return nil
	}
	c := *s
	c.Transactions = make([]Transaction, len(s.Transactions))
	copy(c.Transactions, s.Transactions)
	return &c
}

// Recalculate refreshes the running balances from the opening balance
// and then the totals.
func (s *Statement) Recalculate() {
	running := s.OpeningBalance
	for i := range s.Transactions {
		txn := &s.Transactions[i]
		running = running.Add(txn.Credit).Sub(txn.Debit)
		txn.Balance = running.Round(2)
	}
	s.RefreshTotals()
}

// RefreshTotals recomputes the credit/debit totals and closing balance
// without touching per-row balances.
func (s *Statement) RefreshTotals() {
	credits := decimal.Zero
	debits := decimal.Zero
	for _, txn := range s.Transactions {
		credits = credits.Add(txn.Credit)
		debits = debits.Add(txn.Debit)
	}
	s.TotalCredits = credits.Round(2)
	s.TotalDebits = debits.Round(2)
	if n := len(s.Transactions); n > 0 {
		s.ClosingBalance = s.Transactions[n-1].Balance
	} else {
		s.ClosingBalance = s.OpeningBalance
	}
}

// BalanceMismatch returns the index of the first row whose balance does not
// equal the previous balance minus debit plus credit, or -1 when every row
// is consistent. The first row is checked against the opening balance.
func (s *Statement) BalanceMismatch() int {
	prev := s.OpeningBalance
	for i, txn := range s.Transactions {
		want := prev.Add(txn.Credit).Sub(txn.Debit)
		if !want.Equal(txn.Balance) {
			return i
		}
		prev = txn.Balance
	}
	return -1
}
