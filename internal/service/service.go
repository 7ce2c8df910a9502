// Package service ties extraction, parsing, editing, auditing and export
// together over a Store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-editor/internal/audit"
	"github.com/insightdelivered/statement-editor/internal/editor"
	"github.com/insightdelivered/statement-editor/internal/extractor"
	"github.com/insightdelivered/statement-editor/internal/metrics"
	"github.com/insightdelivered/statement-editor/internal/models"
	"github.com/insightdelivered/statement-editor/internal/store"
	"github.com/insightdelivered/statement-editor/internal/writer"
)

// TextExtractor turns an uploaded document into page texts.
type TextExtractor interface {
	Extract(ctx context.Context, doc extractor.Document) ([]string, error)
}

// StatementParser builds a statement from page texts.
type StatementParser interface {
	Parse(ctx context.Context, pages []string) (*models.Statement, error)
}

// Options wires a Service. Store, Extractor, Parser and Editor are required.
type Options struct {
	Store     store.Store
	Extractor TextExtractor
	Parser    StatementParser
	Editor    *editor.Engine
	Clock     func() time.Time
	NewID     func() string
	Logger    *slog.Logger
}

// Service runs statement operations. Calls for the same statement id are
// serialized; calls for different ids run concurrently.
type Service struct {
	store     store.Store
	extractor TextExtractor
	parser    StatementParser
	editor    *editor.Engine
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
	locks     *keyedMutex
}

// New returns a Service.
func New(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		extractor: opts.Extractor,
		parser:    opts.Parser,
		editor:    opts.Editor,
		now:       opts.Clock,
		newID:     opts.NewID,
		logger:    opts.Logger,
		locks:     newKeyedMutex(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Upload is one uploaded statement. When Text is set it is used instead of
// extracting Document.
type Upload struct {
	Document extractor.Document
	Text     string
}

// Export is a rendered statement ready for download.
type Export struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Upload parses a document and stores it under a fresh id with an empty
// audit log.
func (s *Service) Upload(ctx context.Context, up Upload) (st *models.Statement, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpload(resultLabel(err), time.Since(start)) }()

	var pages []string
	if strings.TrimSpace(up.Text) != "" {
		pages = extractor.SplitPages(up.Text)
	}
	if len(pages) == 0 {
		pages, err = s.extractor.Extract(ctx, up.Document)
		if err != nil {
			return nil, err
		}
	}

	st, err = s.parser.Parse(ctx, pages)
	if err != nil {
		s.logger.Info("statement rejected", "file", up.Document.Name, "error", err)
		return nil, err
	}

	now := s.now().UTC()
	st.ID = s.newID()
	st.SourceFile = up.Document.Name
	st.Version = 1
	st.CreatedAt = now
	st.UpdatedAt = now
	if err := s.store.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to store statement: %w", err)
	}

	metrics.StatementCreated()
	metrics.ObserveTransactions(len(st.Transactions))
	s.logger.Info("statement uploaded",
		"id", st.ID,
		"file", st.SourceFile,
		"bank", st.Header.BankName,
		"layout", st.Layout,
		"transactions", len(st.Transactions))
	return st, nil
}

// Get returns the current version of a statement.
func (s *Service) Get(ctx context.Context, id string) (*models.Statement, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.store.Get(ctx, id)
}

// Edit applies req to the stored statement and appends the resulting audit
// entries. A rejected request changes nothing.
func (s *Service) Edit(ctx context.Context, id string, req models.EditRequest, actor string) (out *models.Statement, summary models.AuditSummary, err error) {
	start := time.Now()
	defer func() { metrics.ObserveEdit(resultLabel(err), time.Since(start)) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, models.AuditSummary{}, err
	}

	rec := audit.NewRecorder(actor, s.now)
	out, err = s.editor.Apply(st, req, rec)
	if err != nil {
		return nil, models.AuditSummary{}, err
	}

	entries := rec.Entries()
	if len(entries) > 0 {
		if err := s.store.Commit(ctx, out, entries); err != nil {
			return nil, models.AuditSummary{}, fmt.Errorf("failed to commit edit: %w", err)
		}
	}

	summary = audit.Summarize(entries)
	for changeType, n := range summary.ChangesByType {
		metrics.AddAuditEntries(changeType, n)
	}
	s.logger.Info("statement edited",
		"id", id,
		"actor", actorOf(entries, actor),
		"changes", summary.TotalChanges,
		"version", out.Version)
	return out, summary, nil
}

// Export renders the current version of a statement.
func (s *Service) Export(ctx context.Context, id, format string) (exp *Export, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveExport(exportLabel(format), resultLabel(err), time.Since(start))
	}()

	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, contentType, err := writer.Render(st, format)
	if err != nil {
		return nil, err
	}
	return &Export{
		Data:        data,
		ContentType: contentType,
		Filename:    writer.Filename(id, format),
	}, nil
}

// AuditLog returns every audit entry of a statement in append order.
func (s *Service) AuditLog(ctx context.Context, id string) ([]models.AuditEntry, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	entries, err := s.store.AuditLog(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}

// Delete evicts a statement and its audit log.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	metrics.StatementDeleted()
	s.logger.Info("statement deleted", "id", id)
	return nil
}

func actorOf(entries []models.AuditEntry, actor string) string {
	if len(entries) > 0 {
		return entries[0].Actor
	}
	if actor == "" {
		return audit.DefaultActor
	}
	return actor
}

// exportLabel is the registered format name, never the caller's input.
func exportLabel(format string) string {
	if name, ok := writer.Canonical(format); ok {
		return name
	}
	return "unsupported"
}

// resultLabel maps an operation error to a metrics label.
func resultLabel(err error) string {
	var (
		perr *models.ParseError
		nerr *models.NotFoundError
		verr *models.ValidationError
		uerr *models.UnsupportedFormatError
	)
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.As(err, &perr):
		return "parse_error"
	case errors.As(err, &nerr):
		return "not_found"
	case errors.As(err, &verr):
		return "validation_error"
	case errors.As(err, &uerr):
		return "unsupported_format"
	}
	return "error"
}
