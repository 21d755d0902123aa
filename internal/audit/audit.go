package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

// Entry records one state mutation: who did what to which entity.
type Entry struct {
	ActorID  uuid.UUID
	Action   string
	Entity   string
	EntityID uuid.UUID
	Before   any
	After    any
}

// Sink receives audit entries after every state mutation. Implementations
// must not fail the mutating operation.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

type logSink struct {
	logg *logger.Logger
}

// NewLogSink emits audit entries as structured log lines.
func NewLogSink(logg *logger.Logger) Sink {
	return &logSink{logg: logg}
}

func (s *logSink) Record(ctx context.Context, entry Entry) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"audit":     true,
		"action":    entry.Action,
		"entity":    entry.Entity,
		"entity_id": entry.EntityID,
	}
	if entry.ActorID != uuid.Nil {
		fields["actor_id"] = entry.ActorID
	}
	if entry.Before != nil {
		fields["before"] = entry.Before
	}
	if entry.After != nil {
		fields["after"] = entry.After
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "audit event")
}

// Noop discards every entry, used by tests.
type Noop struct{}

func (Noop) Record(context.Context, Entry) {}
