package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/statement-editor/internal/audit"
	"github.com/insightdelivered/statement-editor/internal/extractor"
	"github.com/insightdelivered/statement-editor/internal/models"
	"github.com/insightdelivered/statement-editor/internal/service"
	"github.com/insightdelivered/statement-editor/internal/writer"
)

// DefaultExportFormat is used when /export is called without ?format=.
const DefaultExportFormat = "pdf"

// ActorHeader names the request header identifying who made an edit.
const ActorHeader = "X-Actor"

// UploadResponse is the JSON response of POST /upload.
type UploadResponse struct {
	StatementID string            `json:"statement_id"`
	Data        *models.Statement `json:"data"`
}

// EditResponse is the JSON response of POST /edit/:id.
type EditResponse struct {
	Message      string              `json:"message"`
	UpdatedData  *models.Statement   `json:"updated_data"`
	AuditSummary models.AuditSummary `json:"audit_summary"`
}

// AuditResponse is the JSON response of GET /audit/:id.
type AuditResponse struct {
	AuditLog []models.AuditEntry `json:"audit_log"`
	Summary  models.AuditSummary `json:"summary"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	svc     *service.Service
	logger  *slog.Logger
	version string
}

// NewHandler returns a Handler serving svc.
func NewHandler(svc *service.Service, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger, version: version}
}

// RegisterRoutes sets up the statement routes on r.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/health", h.handleHealth)
	r.Post("/upload", h.handleUpload)
	r.Post("/edit/:id", h.handleEdit)
	r.Get("/export/:id", h.handleExport)
	r.Get("/audit/:id", h.handleAudit)
	r.Get("/statements/:id", h.handleGet)
	r.Delete("/statements/:id", h.handleDelete)
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.version,
		"formats": writer.Formats(),
	})
}

func (h *Handler) handleUpload(c *fiber.Ctx) error {
	up := service.Upload{Text: c.FormValue("extractedText")}

	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		if !extractor.Supported(fh.Filename) {
			return fiber.NewError(fiber.StatusBadRequest, "Only PDF, DOCX and TXT files are supported.")
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("failed to read upload: %w", err)
		}
		up.Document = extractor.Document{Name: fh.Filename, Data: data}
	case strings.TrimSpace(up.Text) == "":
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}

	st, err := h.svc.Upload(c.UserContext(), up)
	if err != nil {
		return err
	}
	return c.JSON(UploadResponse{StatementID: st.ID, Data: st})
}

func (h *Handler) handleEdit(c *fiber.Ctx) error {
	var req models.EditRequest
	if len(bytes.TrimSpace(c.Body())) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid edit request body: "+err.Error())
		}
	}

	st, summary, err := h.svc.Edit(c.UserContext(), c.Params("id"), req, c.Get(ActorHeader))
	if err != nil {
		return err
	}
	return c.JSON(EditResponse{
		Message:      fmt.Sprintf("Applied %d change(s)", summary.TotalChanges),
		UpdatedData:  st,
		AuditSummary: summary,
	})
}

func (h *Handler) handleExport(c *fiber.Ctx) error {
	exp, err := h.svc.Export(c.UserContext(), c.Params("id"), c.Query("format", DefaultExportFormat))
	if err != nil {
		return err
	}
	c.Attachment(exp.Filename)
	c.Set(fiber.HeaderContentType, exp.ContentType)
	return c.Send(exp.Data)
}

func (h *Handler) handleAudit(c *fiber.Ctx) error {
	id := c.Params("id")
	entries, err := h.svc.AuditLog(c.UserContext(), id)
	if err != nil {
		return err
	}

	if strings.EqualFold(c.Query("format"), "jsonl") {
		var buf bytes.Buffer
		if err := audit.WriteJSONL(&buf, entries); err != nil {
			return err
		}
		c.Attachment(id + "_audit.jsonl")
		c.Set(fiber.HeaderContentType, "application/x-ndjson")
		return c.Send(buf.Bytes())
	}
	return c.JSON(AuditResponse{AuditLog: entries, Summary: audit.Summarize(entries)})
}

func (h *Handler) handleGet(c *fiber.Ctx) error {
	st, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handler) handleDelete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
