package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// headerLabel locates one header field. When value is nil the rest of the
// line up to the next column gap or label is taken as free text.
type headerLabel struct {
	field string
	label *regexp.Regexp
	value *regexp.Regexp
}

var headerLabels = []headerLabel{
	{field: "account_holder", label: regexp.MustCompile(`(?i)\b(?:account\s*holder(?:'?s)?(?:\s*name)?|customer\s*name|account\s*name)\s*[:\-]?\s*`)},
	{field: "account_holder", label: regexp.MustCompile(`(?i)(?:^|\s{2,}|\t|\|)\s*name\s*:\s*`)},
	{field: "account_number", label: regexp.MustCompile(`(?i)\b(?:account|a/c|acct)\.?\s*(?:number|no\.?|num|#)\s*[:\-]?\s*`), value: regexp.MustCompile(`^([0-9Xx*][0-9Xx*\-]{3,}[0-9])`)},
	{field: "ifsc", label: regexp.MustCompile(`(?i)\bifsc(?:\s*code)?\s*[:\-]?\s*`), value: regexp.MustCompile(`^([A-Za-z]{4}0[A-Za-z0-9]{6})\b`)},
	{field: "micr", label: regexp.MustCompile(`(?i)\bmicr(?:\s*code)?\s*[:\-]?\s*`), value: regexp.MustCompile(`^(\d{9})\b`)},
	{field: "sort_code", label: regexp.MustCompile(`(?i)\bsort\s*code\s*[:\-]?\s*`), value: regexp.MustCompile(`^(\d{2}-\d{2}-\d{2})\b`)},
	{field: "branch", label: regexp.MustCompile(`(?i)\bbranch(?:\s*name)?\s*[:\-]\s*`)},
	{field: "bank_name", label: regexp.MustCompile(`(?i)^\s*bank(?:\s*name)?\s*[:\-]\s*`)},
	{field: "statement_period", label: regexp.MustCompile(`(?i)\b(?:statement\s*period|period)\s*[:\-]?\s*`)},
	{field: "address", label: regexp.MustCompile(`(?i)\baddress\s*[:\-]\s*`)},
}

var (
	columnGap        = regexp.MustCompile(`\s{2,}|\t|\|`)
	sortCodeAnyWhere = regexp.MustCompile(`\b(\d{2}-\d{2}-\d{2})\b`)
)

// extractHeader scans every line for the known labels. The first hit per
// field wins.
func extractHeader(text string) models.Header {
	found := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		for _, hl := range headerLabels {
			if _, ok := found[hl.field]; ok {
				continue
			}
			loc := hl.label.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if v := labelValue(hl, line[loc[1]:]); v != "" {
				found[hl.field] = v
			}
		}
	}

	h := models.Header{
		BankName:        found["bank_name"],
		AccountHolder:   found["account_holder"],
		AccountNumber:   found["account_number"],
		IFSC:            strings.ToUpper(found["ifsc"]),
		MICR:            found["micr"],
		Branch:          found["branch"],
		SortCode:        found["sort_code"],
		StatementPeriod: found["statement_period"],
		Address:         found["address"],
	}
	if h.SortCode == "" {
		h.SortCode = sortCodeAnyWhere.FindString(text)
	}
	if h.BankName == "" {
		h.BankName = DetectBank(text)
	}
	return h
}

func labelValue(hl headerLabel, rest string) string {
	rest = strings.TrimSpace(rest)
	if hl.value != nil {
		if m := hl.value.FindStringSubmatch(rest); m != nil {
			return m[1]
		}
		return ""
	}
	return cutValue(rest)
}

// cutValue trims free text at the next column gap or at the next label on
// the same line.
func cutValue(rest string) string {
	if loc := columnGap.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	end := len(rest)
	for _, hl := range headerLabels {
		if loc := hl.label.FindStringIndex(rest); loc != nil && loc[0] > 0 && loc[0] < end {
			end = loc[0]
		}
	}
	return strings.TrimSpace(strings.TrimRight(rest[:end], ",;"))
}

// missingRequired lists the required header fields that are empty.
func missingRequired(h models.Header) []string {
	var missing []string
	if strings.TrimSpace(h.AccountHolder) == "" {
		missing = append(missing, "account holder")
	}
	if strings.TrimSpace(h.AccountNumber) == "" {
		missing = append(missing, "account number")
	}
	return missing
}

// knownBanks maps text fragments to display names for statements that do
// not label the bank explicitly.
var knownBanks = []struct {
	needles []string
	name    string
}{
	{[]string{"metro bank", "metrobankonline"}, "Metro Bank"},
	{[]string{"hsbc"}, "HSBC"},
	{[]string{"barclays"}, "Barclays"},
	{[]string{"state bank of india", "sbin0"}, "State Bank of India"},
	{[]string{"hdfc bank", "hdfc0"}, "HDFC Bank"},
	{[]string{"icici bank", "icic0"}, "ICICI Bank"},
	{[]string{"axis bank", "utib0"}, "Axis Bank"},
	{[]string{"kotak mahindra", "kkbk0"}, "Kotak Mahindra Bank"},
	{[]string{"punjab national bank", "punb0"}, "Punjab National Bank"},
}

// DetectBank identifies the issuing bank from statement text, or "".
func DetectBank(text string) string {
	for _, kb := range knownBanks {
		if containsAny(text, kb.needles) {
			return kb.name
		}
	}
	return ""
}
