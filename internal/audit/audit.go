// Package audit builds, summarizes and renders statement audit entries.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// DefaultActor is recorded when a request does not identify its caller.
const DefaultActor = "system"

// Salary is the new value recorded for a salary insertion.
type Salary struct {
	Date        models.Date     `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Recorder collects the entries produced by one edit call.
type Recorder struct {
	actor   string
	now     func() time.Time
	entries []models.AuditEntry
}

// NewRecorder returns a Recorder stamping entries with actor and now. A nil
// clock means time.Now.
func NewRecorder(actor string, now func() time.Time) *Recorder {
	if actor == "" {
		actor = DefaultActor
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{actor: actor, now: now}
}

func (r *Recorder) add(changeType, field string, oldValue, newValue any, index *int) {
	r.entries = append(r.entries, models.AuditEntry{
		Timestamp:        r.now().UTC(),
		Actor:            r.actor,
		ChangeType:       changeType,
		Field:            field,
		OldValue:         oldValue,
		NewValue:         newValue,
		TransactionIndex: index,
	})
}

// Header records a header field override.
func (r *Recorder) Header(field, oldValue, newValue string) {
	r.add(models.ChangeHeader, field, oldValue, newValue, nil)
}

// Transaction records a direct edit of one transaction field.
func (r *Recorder) Transaction(index int, field string, oldValue, newValue any) {
	r.add(models.ChangeTransaction, field, oldValue, newValue, &index)
}

// DateSequenced records a date moved by sequencing.
func (r *Recorder) DateSequenced(index int, oldDate, newDate models.Date) {
	r.add(models.ChangeDateSequencing, "date", oldDate, newDate, &index)
}

// SalaryInserted records a synthetic salary credit placed at index.
func (r *Recorder) SalaryInserted(index int, s Salary) {
	r.add(models.ChangeSalaryInsertion, "salary", nil, s, &index)
}

// Entries returns the recorded entries in order.
func (r *Recorder) Entries() []models.AuditEntry {
	return r.entries
}

// Len reports how many entries have been recorded.
func (r *Recorder) Len() int {
	return len(r.entries)
}

// Summarize counts entries per change type.
func Summarize(entries []models.AuditEntry) models.AuditSummary {
	byType := make(map[string]int)
	for _, e := range entries {
		byType[e.ChangeType]++
	}
	changes := entries
	if changes == nil {
		changes = []models.AuditEntry{}
	}
	return models.AuditSummary{
		TotalChanges:  len(entries),
		ChangesByType: byType,
		Changes:       changes,
	}
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, entries []models.AuditEntry) error {
	enc := json.NewEncoder(w)
	for i, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode audit entry %d: %w", i, err)
		}
	}
	return nil
}
