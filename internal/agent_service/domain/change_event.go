package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType mirrors the row-level event kinds clients can filter on.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// AgentsTable is the only table that currently emits change events.
const AgentsTable = "agents"

// ChangeEvent is one notification on the change channel. Delivery is
// at-least-once; consumers dedupe on ID if they care.
type ChangeEvent struct {
	ID         uuid.UUID    `json:"id"`
	Table      string       `json:"table"`
	Type       ChangeType   `json:"type"`
	UserID     string       `json:"user_id"`
	Record     *AgentRecord `json:"record,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// ChangeFilter selects events. Zero-valued fields match everything.
type ChangeFilter struct {
	Table  string
	UserID string
	Types  []ChangeType
}

// Matches reports whether evt passes the filter.
func (f ChangeFilter) Matches(evt ChangeEvent) bool {
	if f.Table != "" && f.Table != evt.Table {
		return false
	}
	if f.UserID != "" && f.UserID != evt.UserID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == evt.Type {
			return true
		}
	}
	return false
}
