// Package llm extracts statements from free text with Gemini when the rule
// parser cannot.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gemini-1.5-flash"

// defaultMaxChars bounds the statement text sent in one prompt.
const defaultMaxChars = 15000

// Options configures the Gemini client.
type Options struct {
	APIKey   string
	Model    string
	MaxChars int
	Logger   *slog.Logger
}

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini implements parser.Fallback.
type Gemini struct {
	client   *genai.Client
	model    generator
	maxChars int
	logger   *slog.Logger
}

// NewGemini connects to the Gemini API.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gemini client: %w", err)
	}

	name := opts.Model
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(8000)
	model.ResponseMIMEType = "application/json"

	g := newGemini(model, opts)
	g.client = client
	g.logger.Info("gemini fallback enabled", "model", name)
	return g, nil
}

func newGemini(model generator, opts Options) *Gemini {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &Gemini{model: model, maxChars: maxChars, logger: logger}
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// ExtractStatement asks the model for a JSON rendition of the statement
// text. The result still has to pass the parser's own checks.
func (g *Gemini) ExtractStatement(ctx context.Context, text string) (*models.Statement, error) {
	if len(text) > g.maxChars {
		g.logger.Warn("truncating statement text for gemini", "from", len(text), "to", g.maxChars)
		text = truncate(text, g.maxChars)
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt(text)))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	answer := responseText(resp)
	if answer == "" {
		return nil, errors.New("gemini returned no result")
	}

	st, err := decodeStatement(answer)
	if err != nil {
		g.logger.Warn("gemini returned unusable json", "error", err)
		return nil, err
	}
	g.logger.Info("gemini extraction complete", "transactions", len(st.Transactions))
	return st, nil
}

func prompt(text string) string {
	return `You are a bank statement parser. Extract the following information from the text and return ONLY valid JSON.

Required format:
{
  "header": {
    "bank_name": "string or null",
    "account_holder": "string",
    "account_number": "string",
    "ifsc": "string or null",
    "micr": "string or null",
    "branch": "string or null",
    "statement_period": "string or null",
    "address": "string or null"
  },
  "transactions": [
    {"date": "YYYY-MM-DD", "description": "string", "credit": 0.0, "debit": 0.0, "balance": 0.0, "ref": "string or null"}
  ],
  "opening_balance": 0.0,
  "closing_balance": 0.0
}

Rules:
- Extract ALL transactions in statement order
- Credit/Debit amounts must be positive numbers (or 0)
- If a field is missing, use null for strings, 0.0 for numbers
- Dates must be in YYYY-MM-DD format

Bank Statement Text:
` + text
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// extraction mirrors the JSON shape requested in the prompt.
type extraction struct {
	Header struct {
		BankName        *string `json:"bank_name"`
		AccountHolder   *string `json:"account_holder"`
		AccountNumber   *string `json:"account_number"`
		IFSC            *string `json:"ifsc"`
		MICR            *string `json:"micr"`
		Branch          *string `json:"branch"`
		StatementPeriod *string `json:"statement_period"`
		Address         *string `json:"address"`
	} `json:"header"`
	Transactions []struct {
		Date        models.Date         `json:"date"`
		Description string              `json:"description"`
		Credit      decimal.NullDecimal `json:"credit"`
		Debit       decimal.NullDecimal `json:"debit"`
		Balance     decimal.NullDecimal `json:"balance"`
		Ref         *string             `json:"ref"`
	} `json:"transactions"`
	OpeningBalance decimal.NullDecimal `json:"opening_balance"`
}

// decodeStatement parses a model answer into a Statement.
func decodeStatement(answer string) (*models.Statement, error) {
	var ex extraction
	if err := json.Unmarshal([]byte(cleanJSON(answer)), &ex); err != nil {
		return nil, fmt.Errorf("failed to parse gemini json: %w", err)
	}

	h := ex.Header
	st := &models.Statement{
		Header: models.Header{
			BankName:        deref(h.BankName),
			AccountHolder:   deref(h.AccountHolder),
			AccountNumber:   deref(h.AccountNumber),
			IFSC:            strings.ToUpper(deref(h.IFSC)),
			MICR:            deref(h.MICR),
			Branch:          deref(h.Branch),
			StatementPeriod: deref(h.StatementPeriod),
			Address:         deref(h.Address),
		},
		OpeningBalance: money(ex.OpeningBalance),
	}
	for i, t := range ex.Transactions {
		if t.Date.IsZero() {
			return nil, fmt.Errorf("gemini transaction %d has no date", i+1)
		}
		st.Transactions = append(st.Transactions, models.Transaction{
			Date:        t.Date,
			Description: strings.TrimSpace(t.Description),
			Credit:      money(t.Credit).Abs(),
			Debit:       money(t.Debit).Abs(),
			Balance:     money(t.Balance),
			Ref:         deref(t.Ref),
		})
	}
	return st, nil
}

// cleanJSON strips markdown fences and any prose around the outermost
// object.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if i := strings.Index(s, "{"); i >= 0 {
		s = s[i:]
	}
	if i := strings.LastIndex(s, "}"); i >= 0 {
		s = s[:i+1]
	}
	return strings.TrimSpace(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func money(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal.Round(2)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
