package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-editor/internal/models"
)

const monthNames = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?`

// Date shapes that may open a transaction row. Order matters: the first
// match wins.
var (
	// 2024-01-15
	datePatternISO = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\b`)
	// 15/01/2024, 15-01-24, 15.01.2024
	datePatternNumeric = regexp.MustCompile(`^(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\b`)
	// 15 Jan 2024, 15-Jan-24, 15 January 2024
	datePatternText = regexp.MustCompile(`(?i)^(\d{1,2}[\s-]` + monthNames + `[\s-]\d{2,4})\b`)
	// 4 Dec (no year)
	datePatternShort = regexp.MustCompile(`(?i)^(\d{1,2}\s+` + monthNames + `)(?:\s|$)`)

	datePatterns = []*regexp.Regexp{datePatternISO, datePatternNumeric, datePatternText}

	yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

	// "Sept." style abbreviations
	monthDot = regexp.MustCompile(`([A-Za-z])\.`)
)

// Layouts are day-first; month-first dates are not supported.
var dateLayouts = []string{
	"2006-01-02",
	"2/1/2006", "2/1/06",
	"2-1-2006", "2-1-06",
	"2.1.2006", "2.1.06",
	"2 Jan 2006", "2 Jan 06",
	"2-Jan-2006", "2-Jan-06",
	"2 January 2006", "2 January 06",
	"2-January-2006", "2-January-06",
}

// leadingDate returns the date text opening line and whether it lacks a
// year.
func leadingDate(line string) (string, bool) {
	line = strings.TrimSpace(line)
	for _, pat := range datePatterns {
		if m := pat.FindStringSubmatch(line); m != nil {
			return m[1], false
		}
	}
	if m := datePatternShort.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	return "", false
}

// parseDate converts date text to a calendar date. Short "D Mon" dates take
// defaultYear; they fail when it is zero.
func parseDate(s string, short bool, defaultYear int) (models.Date, error) {
	s = strings.Join(strings.Fields(s), " ")
	s = monthDot.ReplaceAllString(s, "$1")
	if short {
		if defaultYear == 0 {
			return models.Date{}, fmt.Errorf("date %q has no year and none could be inferred", s)
		}
		s = s + " " + strconv.Itoa(defaultYear)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("unrecognized date %q", s)
}

// inferYear picks the last four-digit year in text, or 0.
func inferYear(text string) int {
	years := yearPattern.FindAllString(text, -1)
	if len(years) == 0 {
		return 0
	}
	y, _ := strconv.Atoi(years[len(years)-1])
	return y
}

// amountPattern matches a money token: optional currency prefix, optional
// sign or parentheses, grouped digits (Western or Indian grouping) with two
// decimals, and an optional CR/DR suffix.
var amountPattern = regexp.MustCompile(
	`^(?i:rs\.?|inr)?[£$€₹]?(\()?(-)?[£$€₹]?(\d{1,3}(?:,\d{2,3})*|\d+)\.(\d{2})(\))?(-)?(?i:(cr|dr))?$`,
)

// amountToken is one parsed money column.
type amountToken struct {
	value    decimal.Decimal // absolute value
	negative bool
	marker   string // "CR", "DR" or ""
	blank    bool   // "-" placeholder for an empty column
}

// signed returns the value with its sign applied; DR marks a negative
// balance.
func (a amountToken) signed() decimal.Decimal {
	if a.negative || a.marker == "DR" {
		return a.value.Neg()
	}
	return a.value
}

// parseAmountToken parses a single whitespace-free token.
func parseAmountToken(tok string) (amountToken, bool) {
	tok = strings.TrimSpace(strings.ReplaceAll(tok, " ", ""))
	if tok == "-" || tok == "--" || tok == "–" {
		return amountToken{blank: true}, true
	}
	m := amountPattern.FindStringSubmatch(tok)
	if m == nil {
		return amountToken{}, false
	}
	digits := strings.ReplaceAll(m[3], ",", "") + "." + m[4]
	v, err := decimal.NewFromString(digits)
	if err != nil {
		return amountToken{}, false
	}
	return amountToken{
		value:    v,
		negative: m[2] != "" || m[6] != "" || (m[1] != "" && m[5] != ""),
		marker:   strings.ToUpper(m[7]),
	}, true
}

// parseAmount converts text like "1,234.56", "-£1,234.56" or "₹5,000.00 Cr"
// to a signed decimal. Empty text and "-" are zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return decimal.Zero, nil
	}
	tok, ok := parseAmountToken(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if tok.blank {
		return decimal.Zero, nil
	}
	return tok.signed(), nil
}

var (
	ocrSemicolon     = regexp.MustCompile(`(\d);(\s*)(\d)`)
	ocrTrailingColon = regexp.MustCompile(`(\d):(\s|$)`)
	ocrNA            = regexp.MustCompile(`\s+NA\b`)
)

// sanitizeOCRAmounts repairs the punctuation tesseract tends to misread in
// amounts, e.g. "19,720; 15:" becomes "19,720.15".
func sanitizeOCRAmounts(line string) string {
	line = ocrSemicolon.ReplaceAllString(line, "$1.$3")
	line = ocrTrailingColon.ReplaceAllString(line, "$1$2")
	line = ocrNA.ReplaceAllString(line, "")
	return line
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

var debitKeywords = []string{
	"card payment", "direct debit", "debit", "payment to", "withdrawal",
	"transfer out", "transfer to", "standing order", "dd ", "pos ", "atm",
	"purchase", "fee", "charge", "emi", "bill pay",
}

var creditKeywords = []string{
	"direct credit", "credit from", "bgc ", "bacs ", "refund", "interest paid",
	"transfer from", "salary", "deposit", "neft cr", "imps cr", "upi cr", "reversal",
}

func isDebitDescription(desc string) bool  { return containsAny(desc, debitKeywords) }
func isCreditDescription(desc string) bool { return containsAny(desc, creditKeywords) }

var summaryKeywords = []string{
	"closing balance", "total paid in", "total paid out", "total payments",
	"total receipts", "total credits", "total debits", "balance carried forward",
	"carried forward", "end balance", "continued", "page total",
}

var openingKeywords = []string{
	"opening balance", "balance brought forward", "brought forward", "start balance",
}

var pageFooter = regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`)

var totalRow = regexp.MustCompile(`(?i)^totals?\b`)

func isSummaryLine(line string) bool {
	line = strings.TrimSpace(line)
	return containsAny(line, summaryKeywords) || pageFooter.MatchString(line) || totalRow.MatchString(line)
}

func isOpeningBalanceLine(line string) bool {
	return containsAny(line, openingKeywords)
}
