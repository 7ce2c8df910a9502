// Package store keeps the current version of each statement together with
// its append-only audit log.
package store

import (
	"context"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// Store persists statements and audit logs keyed by statement id.
// Implementations return *models.NotFoundError for unknown ids and never
// hand out values shared with their internal state.
type Store interface {
	// Create stores a new statement with an empty audit log.
	Create(ctx context.Context, st *models.Statement) error
	// Get returns the current version of a statement.
	Get(ctx context.Context, id string) (*models.Statement, error)
	// Commit replaces the stored statement and appends entries to its log
	// as one step.
	Commit(ctx context.Context, st *models.Statement, entries []models.AuditEntry) error
	// AuditLog returns the log in append order.
	AuditLog(ctx context.Context, id string) ([]models.AuditEntry, error)
	// Delete evicts a statement and its log.
	Delete(ctx context.Context, id string) error
}
