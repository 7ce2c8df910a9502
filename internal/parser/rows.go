package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// Layout names recorded on parsed statements.
const (
	LayoutCreditFirst = "date_description_credit_debit_balance"
	LayoutDebitFirst  = "date_description_debit_credit_balance"
)

var (
	creditColumn  = regexp.MustCompile(`(?i)\b(?:credits?|deposits?|paid\s+in|money\s+in|receipts?)\b`)
	debitColumn   = regexp.MustCompile(`(?i)\b(?:debits?|withdrawals?|paid\s+out|money\s+out)\b`)
	balanceColumn = regexp.MustCompile(`(?i)\bbalance\b`)
)

// detectColumnHeader recognizes the table header row and reports whether
// the debit column precedes the credit column.
//
//	"Date  Narration  Withdrawal Amt.  Deposit Amt.  Closing Balance" -> debit first
//	"Date  Description  Paid in  Paid out  Balance"                   -> credit first
func detectColumnHeader(line string) (debitFirst bool, ok bool) {
	if d, _ := leadingDate(line); d != "" {
		return false, false
	}
	c := creditColumn.FindStringIndex(line)
	d := debitColumn.FindStringIndex(line)
	if c == nil || d == nil || !balanceColumn.MatchString(line) {
		return false, false
	}
	return d[0] < c[0], true
}

// rowScan is the outcome of scanning all pages for transaction rows.
type rowScan struct {
	rows        []models.Transaction
	opening     decimal.Decimal
	haveOpening bool
	debitFirst  bool
}

// pendingRow is a dated line whose amounts arrive on a later line.
type pendingRow struct {
	date models.Date
	desc string
}

type rowScanner struct {
	rowScan
	defaultYear int
	currentDate models.Date
	pending     *pendingRow
	// closed is set after a summary line so trailing text is not glued onto
	// the last row.
	closed bool
}

// scanRows walks every line of every page and collects transaction rows.
//
// Supported row shapes (amount columns are right-aligned):
//
//	"15/01/2024  CARD PAYMENT TO TESCO  25.99  1,234.56"
//	"15 Jan 2024 NEFT CR SALARY  -  50,000.00  61,234.56"
//	"5 Dec → Direct Debit to Stripe → 58.80 → 9,397.88"
//	"01/02/24 UPI/PAY/1234  500.00 DR  9,500.00 CR"
//
// A dated line without amounts waits for its amounts on the next line;
// undated lines without amounts continue the previous description.
func scanRows(pages []string, defaultYear int) rowScan {
	s := &rowScanner{defaultYear: defaultYear}
	for _, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			s.line(raw)
		}
	}
	s.flushPending()
	return s.rowScan
}

func (s *rowScanner) line(raw string) {
	line := strings.ReplaceAll(raw, "→", "  ")
	line = strings.TrimSpace(sanitizeOCRAmounts(line))
	if line == "" {
		return
	}

	if debitFirst, ok := detectColumnHeader(line); ok {
		s.debitFirst = debitFirst
		return
	}

	if isOpeningBalanceLine(line) {
		if !s.haveOpening && len(s.rows) == 0 {
			if amounts, _ := trailingAmounts(line); len(amounts) > 0 {
				s.opening = amounts[len(amounts)-1].signed()
				s.haveOpening = true
			}
		}
		if d, short := leadingDate(line); d != "" {
			if date, err := parseDate(d, short, s.defaultYear); err == nil {
				s.currentDate = date
			}
		}
		return
	}

	if isSummaryLine(line) {
		s.flushPending()
		s.closed = true
		return
	}

	dateText, short := leadingDate(line)
	rest := line
	var date models.Date
	if dateText != "" {
		d, err := parseDate(dateText, short, s.defaultYear)
		if err != nil {
			dateText = ""
		} else {
			date = d
			rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), dateText))
			rest = stripValueDate(rest)
		}
	}

	amounts, desc := trailingAmounts(rest)
	desc = cleanDescription(desc)

	switch {
	case dateText != "" && len(amounts) == 0:
		s.flushPending()
		s.pending = &pendingRow{date: date, desc: desc}
		s.currentDate = date
	case dateText != "":
		s.flushPending()
		s.currentDate = date
		s.addRow(date, desc, amounts)
	case len(amounts) > 0 && s.pending != nil:
		p := s.pending
		s.pending = nil
		s.addRow(p.date, joinDescription(p.desc, desc), amounts)
	case len(amounts) > 0 && !s.currentDate.IsZero() && !s.closed && desc != "":
		// Undated row sharing the previous row's date.
		s.addRow(s.currentDate, desc, amounts)
	case len(amounts) == 0 && s.pending != nil:
		s.pending.desc = joinDescription(s.pending.desc, desc)
	case len(amounts) == 0 && len(s.rows) > 0 && !s.closed && !isHeaderLine(line):
		last := &s.rows[len(s.rows)-1]
		last.Description = joinDescription(last.Description, desc)
	}
}

// flushPending drops a dated line that never received amounts.
func (s *rowScanner) flushPending() {
	s.pending = nil
}

func (s *rowScanner) addRow(date models.Date, desc string, amounts []amountToken) {
	s.closed = false
	txn := models.Transaction{Date: date, Description: desc}

	prev, havePrev := s.previousBalance()
	switch n := len(amounts); {
	case n >= 3:
		first, second, bal := amounts[n-3], amounts[n-2], amounts[n-1]
		if s.debitFirst {
			txn.Debit, txn.Credit = first.value, second.value
		} else {
			txn.Credit, txn.Debit = first.value, second.value
		}
		txn.Balance = bal.signed()
	case n == 2:
		amt, bal := amounts[0], amounts[1]
		txn.Balance = bal.signed()
		if amt.blank {
			break
		}
		if isCreditAmount(amt, desc, txn.Balance, prev, havePrev) {
			txn.Credit = amt.value
		} else {
			txn.Debit = amt.value
		}
	case n == 1:
		amt := amounts[0]
		if amt.blank {
			return
		}
		if isCreditAmount(amt, desc, decimal.Zero, prev, false) {
			txn.Credit = amt.value
		} else {
			txn.Debit = amt.value
		}
		txn.Balance = prev.Add(txn.Credit).Sub(txn.Debit)
	}
	s.rows = append(s.rows, txn)
}

func (s *rowScanner) previousBalance() (decimal.Decimal, bool) {
	if n := len(s.rows); n > 0 {
		return s.rows[n-1].Balance, true
	}
	return s.opening, s.haveOpening
}

// isCreditAmount decides the direction of a single amount column. The
// balance movement wins when it is known, then CR/DR markers and signs,
// then description keywords. Unclassifiable amounts count as credits.
func isCreditAmount(amt amountToken, desc string, balance, prev decimal.Decimal, havePrev bool) bool {
	if havePrev {
		delta := balance.Sub(prev)
		switch {
		case delta.Equal(amt.value):
			return true
		case delta.Equal(amt.value.Neg()):
			return false
		}
	}
	switch {
	case amt.marker == "CR":
		return true
	case amt.marker == "DR", amt.negative:
		return false
	case isDebitDescription(desc):
		return false
	case isCreditDescription(desc):
		return true
	}
	return true
}

// trailingAmounts peels up to three amount columns off the end of line and
// returns them left to right with the remaining description. Separate
// "CR"/"DR" tokens attach to the amount before them.
func trailingAmounts(line string) ([]amountToken, string) {
	fields := strings.Fields(line)
	var rev []amountToken
	end := len(fields)
	for end > 0 && len(rev) < 3 {
		f := fields[end-1]
		marker := ""
		if u := strings.ToUpper(strings.Trim(f, ".")); (u == "CR" || u == "DR") && end > 1 {
			marker = u
			f = fields[end-2]
		}
		tok, ok := parseAmountToken(f)
		if !ok {
			break
		}
		if marker != "" {
			tok.marker = marker
			end--
		}
		rev = append(rev, tok)
		end--
	}
	// A lone "-" with no real amount is part of the description.
	nonBlank := 0
	for _, t := range rev {
		if !t.blank {
			nonBlank++
		}
	}
	if nonBlank == 0 {
		return nil, line
	}
	amounts := make([]amountToken, len(rev))
	for i, t := range rev {
		amounts[len(rev)-1-i] = t
	}
	return amounts, strings.Join(fields[:end], " ")
}

// stripValueDate drops a second date column (value date) after the
// transaction date.
func stripValueDate(rest string) string {
	if d, _ := leadingDate(rest); d != "" {
		return strings.TrimSpace(strings.TrimPrefix(rest, d))
	}
	return rest
}

func isHeaderLine(line string) bool {
	for _, hl := range headerLabels {
		if hl.label.MatchString(line) {
			return true
		}
	}
	return false
}

func joinDescription(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

// cleanDescription trims separators and collapses runs of spaces.
func cleanDescription(s string) string {
	s = strings.Trim(s, " |-→\t")
	return strings.Join(strings.Fields(s), " ")
}
