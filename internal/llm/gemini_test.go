package llm

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	answer string
	err    error
	prompt string
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		if txt, ok := parts[0].(genai.Text); ok {
			f.prompt = string(txt)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.answer)}},
		}},
	}, nil
}

const sampleAnswer = "```json\n" + `{
  "header": {"bank_name": null, "account_holder": "Jane Smith", "account_number": "11223344", "ifsc": "sbin0001234", "micr": null},
  "transactions": [
    {"date": "2024-01-15", "description": " Salary ", "credit": 2500.5, "debit": 0, "balance": 3500.5, "ref": null},
    {"date": "2024-01-16", "description": "Rent", "credit": 0, "debit": -1000, "balance": 2500.5, "ref": "SO-1"}
  ],
  "opening_balance": 1000.0,
  "closing_balance": 2500.5
}` + "\n```"

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":{\"b\":2}} Thanks!", `{"a":{"b":2}}`},
		{"plain", `{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.input))
		})
	}
}

func TestExtractStatement(t *testing.T) {
	model := &fakeModel{answer: sampleAnswer}
	g := newGemini(model, Options{})

	st, err := g.ExtractStatement(context.Background(), "raw statement text")
	require.NoError(t, err)
	assert.Contains(t, model.prompt, "raw statement text")

	assert.Equal(t, "Jane Smith", st.Header.AccountHolder)
	assert.Equal(t, "11223344", st.Header.AccountNumber)
	assert.Equal(t, "SBIN0001234", st.Header.IFSC)
	assert.Empty(t, st.Header.BankName)
	assert.True(t, st.OpeningBalance.Equal(decimal.NewFromInt(1000)))

	require.Len(t, st.Transactions, 2)
	assert.Equal(t, "2024-01-15", st.Transactions[0].Date.String())
	assert.Equal(t, "Salary", st.Transactions[0].Description)
	assert.True(t, st.Transactions[0].Credit.Equal(decimal.RequireFromString("2500.5")))
	assert.True(t, st.Transactions[1].Debit.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "SO-1", st.Transactions[1].Ref)
}

func TestExtractStatement_TruncatesText(t *testing.T) {
	model := &fakeModel{answer: sampleAnswer}
	g := newGemini(model, Options{MaxChars: 5})

	_, err := g.ExtractStatement(context.Background(), "abcdefghij")
	require.NoError(t, err)
	assert.Contains(t, model.prompt, "abcde")
	assert.NotContains(t, model.prompt, "abcdef")
}

func TestExtractStatement_TruncatesOnRuneBoundary(t *testing.T) {
	model := &fakeModel{answer: sampleAnswer}
	g := newGemini(model, Options{MaxChars: 5})

	// "£" is two bytes; the fifth byte starts the third pound sign.
	_, err := g.ExtractStatement(context.Background(), "££££")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(model.prompt))
	assert.Contains(t, model.prompt, "££")
	assert.NotContains(t, model.prompt, "£££")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc"},
		{"₹100", 2, ""},
		{"₹100", 3, "₹"},
		{"a₹b", 3, "a"},
		{"a₹b", 4, "a₹"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		assert.Equal(t, tt.want, got, "truncate(%q, %d)", tt.in, tt.n)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestExtractStatement_Errors(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"request error", &fakeModel{err: errors.New("quota")}},
		{"empty answer", &fakeModel{answer: ""}},
		{"not json", &fakeModel{answer: "I cannot help with that"}},
		{"missing date", &fakeModel{answer: `{"transactions":[{"description":"x"}]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newGemini(tt.model, Options{}).ExtractStatement(context.Background(), "text")
			assert.Error(t, err)
		})
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), Options{})
	assert.Error(t, err)
}
