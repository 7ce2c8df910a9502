package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/insightdelivered/statement-editor/internal/models"
)

type record struct {
	statement *models.Statement
	log       []models.AuditEntry
}

// Memory is a process-local Store. Entries live until deleted or the
// process exits.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*record)}
}

func (m *Memory) Create(_ context.Context, st *models.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[st.ID]; ok {
		return fmt.Errorf("statement %q already exists", st.ID)
	}
	m.records[st.ID] = &record{statement: st.Clone()}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*models.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, &models.NotFoundError{ID: id}
	}
	return rec.statement.Clone(), nil
}

func (m *Memory) Commit(_ context.Context, st *models.Statement, entries []models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[st.ID]
	if !ok {
		return &models.NotFoundError{ID: st.ID}
	}
	rec.statement = st.Clone()
	rec.log = append(rec.log, entries...)
	return nil
}

func (m *Memory) AuditLog(_ context.Context, id string) ([]models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, &models.NotFoundError{ID: id}
	}
	out := make([]models.AuditEntry, len(rec.log))
	copy(out, rec.log)
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return &models.NotFoundError{ID: id}
	}
	delete(m.records, id)
	return nil
}

// Len reports the number of stored statements.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
