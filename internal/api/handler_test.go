package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-editor/internal/editor"
	"github.com/insightdelivered/statement-editor/internal/extractor"
	"github.com/insightdelivered/statement-editor/internal/models"
	"github.com/insightdelivered/statement-editor/internal/parser"
	"github.com/insightdelivered/statement-editor/internal/service"
	"github.com/insightdelivered/statement-editor/internal/store"
)

const statementText = `Barclays Bank UK PLC
Name: Jane Smith
Sort code: 20-00-00
Account number: 11223344
Date Description Money out Money in Balance
15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56
16/01/2024 DIRECT DEBIT SKY UK 45.00 1,189.56
17/01/2024 BGC SALARY EMPLOYER 2,500.00 3,689.56`

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	svc := service.New(service.Options{
		Store:     store.NewMemory(),
		Extractor: extractor.New(extractor.Options{}),
		Parser:    parser.New(parser.Options{}),
		Editor:    editor.New(editor.Options{Clock: now}),
		Clock:     now,
	})
	return NewApp(NewHandler(svc, "test", nil), ServerOptions{})
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func multipartRequest(t *testing.T, fields map[string]string, fileName, fileBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(fileBody))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	return req
}

func uploadStatement(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := doRequest(t, app, multipartRequest(t, nil, "jan.txt", statementText))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out UploadResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.StatementID)
	return out.StatementID
}

func editRequest(id, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/edit/"+id, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func detail(t *testing.T, body []byte) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Detail
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]any
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "test", result["version"])
}

func TestUpload(t *testing.T) {
	app := setupTestApp(t)
	resp, body := doRequest(t, app, multipartRequest(t, nil, "jan.txt", statementText))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out struct {
		StatementID string `json:"statement_id"`
		Data        struct {
			Header struct {
				AccountHolder string `json:"account_holder"`
			} `json:"header"`
			Transactions   []map[string]any `json:"transactions"`
			ClosingBalance string           `json:"closing_balance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out.StatementID)
	assert.Equal(t, "Jane Smith", out.Data.Header.AccountHolder)
	assert.Len(t, out.Data.Transactions, 3)
	assert.Equal(t, "3689.56", out.Data.ClosingBalance)
}

func TestUpload_ExtractedTextOnly(t *testing.T) {
	app := setupTestApp(t)
	resp, body := doRequest(t, app, multipartRequest(t, map[string]string{"extractedText": statementText}, "", ""))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		status   int
		contains string
	}{
		{
			name:     "missing file",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, nil, "", "") },
			status:   fiber.StatusBadRequest,
			contains: "No file uploaded",
		},
		{
			name:     "unsupported extension",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, nil, "photo.png", "png") },
			status:   fiber.StatusBadRequest,
			contains: "supported",
		},
		{
			name:     "unparseable statement",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, nil, "letter.txt", "Dear customer") },
			status:   fiber.StatusUnprocessableEntity,
			contains: "could not parse statement",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(t)
			resp, body := doRequest(t, app, tt.req(t))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, detail(t, body), tt.contains)
		})
	}
}

func TestEdit(t *testing.T) {
	app := setupTestApp(t)
	id := uploadStatement(t, app)

	req := editRequest(id, `{
		"account_holder": "Jane Doe",
		"apply_date_sequencing": true,
		"date_distribution_method": "uniform",
		"start_date": "2024-01-01",
		"end_date": "2024-01-31",
		"salary_amount": "1000.00",
		"salary_date": "2024-01-31"
	}`)
	req.Header.Set(ActorHeader, "auditor")
	resp, body := doRequest(t, app, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out EditResponse
	require.NoError(t, json.Unmarshal(body, &out))
	// holder, two moved dates (16 Jan stays put) and the salary
	assert.Equal(t, 4, out.AuditSummary.TotalChanges)
	assert.Equal(t, 2, out.AuditSummary.ChangesByType[models.ChangeDateSequencing])
	assert.Equal(t, 1, out.AuditSummary.ChangesByType[models.ChangeSalaryInsertion])
	assert.Equal(t, "Jane Doe", out.UpdatedData.Header.AccountHolder)
	require.Len(t, out.UpdatedData.Transactions, 4)
	assert.Equal(t, "2024-01-01", out.UpdatedData.Transactions[0].Date.String())
	assert.Equal(t, "2024-01-16", out.UpdatedData.Transactions[1].Date.String())
	assert.Equal(t, models.DefaultSalaryDescription, out.UpdatedData.Transactions[2].Description)
	assert.Equal(t, "BGC SALARY EMPLOYER", out.UpdatedData.Transactions[3].Description)
	assert.Equal(t, "auditor", out.AuditSummary.Changes[0].Actor)
}

func TestEdit_Errors(t *testing.T) {
	app := setupTestApp(t)
	id := uploadStatement(t, app)

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{name: "unknown id", id: "nope", body: `{"account_holder":"X"}`, status: fiber.StatusNotFound},
		{name: "sequencing without end", id: id, body: `{"apply_date_sequencing":true,"date_distribution_method":"uniform","start_date":"2024-01-01"}`, status: fiber.StatusBadRequest},
		{name: "salary without date", id: id, body: `{"salary_amount":"100"}`, status: fiber.StatusBadRequest},
		{name: "malformed json", id: id, body: `{"account_holder":`, status: fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, editRequest(tt.id, tt.body))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, detail(t, body))
		})
	}

	// None of the rejected requests left a trace.
	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/audit/"+id, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out AuditResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Empty(t, out.AuditLog)
}

func TestEdit_ConcurrentSameID(t *testing.T) {
	app := setupTestApp(t)
	require.True(t, app.Config().Immutable)
	a := uploadStatement(t, app)
	b := uploadStatement(t, app)

	const edits = 60
	var wg sync.WaitGroup
	for i := 0; i < edits; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			resp, err := app.Test(editRequest(a, `{"salary_amount":"10","salary_date":"2024-01-20"}`), -1)
			if assert.NoError(t, err) {
				assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			}
		}()
		go func(i int) {
			defer wg.Done()
			resp, err := app.Test(editRequest(b, fmt.Sprintf(`{"branch":"Branch %d"}`, i)), -1)
			if assert.NoError(t, err) {
				assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			}
		}(i)
		go func() {
			defer wg.Done()
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit/"+b, nil), -1)
			if assert.NoError(t, err) {
				assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/statements/"+a, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var st models.Statement
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, edits+1, st.Version)
	assert.Len(t, st.Transactions, 3+edits)

	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/audit/"+a, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var log AuditResponse
	require.NoError(t, json.Unmarshal(body, &log))
	assert.Len(t, log.AuditLog, edits)
}

func TestExport(t *testing.T) {
	app := setupTestApp(t)
	id := uploadStatement(t, app)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/export/"+id+"?format=csv", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), id+"_edited.csv")
	assert.Contains(t, string(body), "Jane Smith")

	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/export/"+id, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestExport_Errors(t *testing.T) {
	app := setupTestApp(t)
	id := uploadStatement(t, app)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/export/"+id+"?format=xyz", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, detail(t, body), "xyz")

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/export/nope?format=csv", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAudit(t *testing.T) {
	app := setupTestApp(t)
	id := uploadStatement(t, app)

	resp, _ := doRequest(t, app, editRequest(id, `{"branch":"Leeds","account_number":"99887766"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/audit/"+id, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out AuditResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.AuditLog, 2)
	assert.Equal(t, "account_number", out.AuditLog[0].Field)
	assert.Equal(t, "branch", out.AuditLog[1].Field)
	assert.Equal(t, "system", out.AuditLog[0].Actor)
	assert.Equal(t, 2, out.Summary.TotalChanges)

	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/audit/"+id+"?format=jsonl", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get(fiber.HeaderContentType))
	assert.Len(t, strings.Split(strings.TrimSpace(string(body)), "\n"), 2)

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/audit/nope", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStatementLifecycle(t *testing.T) {
	app := setupTestApp(t)
	id := uploadStatement(t, app)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/statements/"+id, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var st models.Statement
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, id, st.ID)
	assert.Equal(t, 1, st.Version)

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodDelete, "/statements/"+id, nil))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/statements/"+id, nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusUnprocessableEntity, StatusFor(&models.ParseError{}))
	assert.Equal(t, fiber.StatusNotFound, StatusFor(&models.NotFoundError{}))
	assert.Equal(t, fiber.StatusBadRequest, StatusFor(&models.ValidationError{}))
	assert.Equal(t, fiber.StatusBadRequest, StatusFor(&models.UnsupportedFormatError{}))
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, StatusFor(fiber.ErrRequestEntityTooLarge))
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor(assert.AnError))
}
