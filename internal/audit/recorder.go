package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/requestcontext"
)

// Recorder writes change-log events with the editor and time taken
// from the request context.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record stores one event. Failing to write the change log fails the
// surrounding operation; an unexplainable merge is worse than a
// rejected one.
func (r *Recorder) Record(ctx context.Context, table, recordID, message string) error {
	e := Event{
		ID:        uuid.New(),
		Editor:    requestcontext.Editor(ctx),
		Message:   message,
		Table:     table,
		RecordID:  recordID,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := r.store.Insert(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record change log event")
	}
	r.logger.DebugContext(ctx, "change recorded",
		"table", table, "record", recordID, "editor", e.Editor)
	return nil
}

// List returns events matching the filter, newest first.
func (r *Recorder) List(ctx context.Context, f Filter) ([]Event, error) {
	events, err := r.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list change log events")
	}
	return events, nil
}
