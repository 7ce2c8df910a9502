package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// Fallback extracts a statement from text the rule parser could not handle.
type Fallback interface {
	ExtractStatement(ctx context.Context, text string) (*models.Statement, error)
}

// Options configures a Parser.
type Options struct {
	// StrictBalances rejects statements whose running balances do not add
	// up instead of recomputing them.
	StrictBalances bool
	Fallback       Fallback
	Logger         *slog.Logger
}

// Parser turns extracted page text into a Statement.
type Parser struct {
	strict   bool
	fallback Fallback
	logger   *slog.Logger
}

// New returns a Parser.
func New(opts Options) *Parser {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{strict: opts.StrictBalances, fallback: opts.Fallback, logger: logger}
}

// Parse builds a Statement from page texts. The returned statement has no
// ID; failures are *models.ParseError.
func (p *Parser) Parse(ctx context.Context, pages []string) (*models.Statement, error) {
	st, err := p.parseRules(pages)
	if err == nil || p.fallback == nil {
		return st, err
	}

	p.logger.Info("rule parser failed, trying fallback", "error", err)
	fst, ferr := p.fallback.ExtractStatement(ctx, strings.Join(pages, "\n"))
	if ferr != nil || fst == nil {
		p.logger.Warn("fallback extraction failed", "error", ferr)
		return nil, err
	}
	fst.Layout = "fallback"
	if fst.Header.BankName == "" {
		fst.Header.BankName = DetectBank(strings.Join(pages, "\n"))
	}
	if ferr := p.finalize(fst, !fst.OpeningBalance.IsZero()); ferr != nil {
		p.logger.Warn("fallback result rejected", "error", ferr)
		return nil, err
	}
	return fst, nil
}

func (p *Parser) parseRules(pages []string) (*models.Statement, error) {
	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, &models.ParseError{Reason: "document contains no text"}
	}

	scan := scanRows(pages, inferYear(text))
	st := &models.Statement{
		Header:         extractHeader(text),
		Transactions:   scan.rows,
		OpeningBalance: scan.opening,
		Layout:         LayoutCreditFirst,
	}
	if scan.debitFirst {
		st.Layout = LayoutDebitFirst
	}
	if err := p.finalize(st, scan.haveOpening); err != nil {
		return nil, err
	}
	return st, nil
}

// finalize checks required fields and the balance invariant. When the
// opening balance was not printed it is derived from the first row.
func (p *Parser) finalize(st *models.Statement, haveOpening bool) error {
	if missing := missingRequired(st.Header); len(missing) > 0 {
		return &models.ParseError{Reason: "missing required header fields: " + strings.Join(missing, ", ")}
	}
	if len(st.Transactions) == 0 {
		return &models.ParseError{Reason: "no transaction rows found"}
	}

	if !haveOpening {
		first := st.Transactions[0]
		st.OpeningBalance = first.Balance.Sub(first.Credit).Add(first.Debit)
	}

	if i := st.BalanceMismatch(); i >= 0 {
		if p.strict {
			return &models.ParseError{
				Reason: fmt.Sprintf("balance mismatch at transaction %d (%s)", i+1, st.Transactions[i].Date),
			}
		}
		p.logger.Warn("recomputing inconsistent running balances",
			"first_mismatch", i+1,
			"transactions", len(st.Transactions))
		st.Recalculate()
	}
	st.RefreshTotals()
	return nil
}
