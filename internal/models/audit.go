package models

import "time"

// Audit change types.
const (
	ChangeHeader          = "header"
	ChangeTransaction     = "transaction"
	ChangeDateSequencing  = "date_sequencing"
	ChangeSalaryInsertion = "salary_insertion"
)

// AuditEntry records a single field or operation change.
type AuditEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	Actor            string    `json:"actor"`
	ChangeType       string    `json:"change_type"`
	Field            string    `json:"field"`
	OldValue         any       `json:"old_value"`
	NewValue         any       `json:"new_value"`
	TransactionIndex *int      `json:"transaction_index,omitempty"`
}

// AuditSummary describes the entries produced by one edit call.
type AuditSummary struct {
	TotalChanges  int            `json:"total_changes"`
	ChangesByType map[string]int `json:"changes_by_type"`
	Changes       []AuditEntry   `json:"changes"`
}
