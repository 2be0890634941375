// Package audit keeps the change log: who did what to which record,
// and when. Mutating workflows record an event for every curator
// action so merges and splits stay explainable years later.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one change-log entry.
type Event struct {
	ID        uuid.UUID
	Editor    string
	Message   string
	Table     string
	RecordID  string
	CreatedAt time.Time
}

// Filter narrows event listings. Zero fields match all.
type Filter struct {
	Table    string
	RecordID string
	Editor   string
}

// Store persists the change log.
type Store interface {
	Insert(ctx context.Context, e Event) error
	// List returns events matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]Event, error)
}
