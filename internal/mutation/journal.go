package mutation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/campus-console/internal/domain"
)

// Outcome is how a submitted mutation settled.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeTimedOut   Outcome = "timed_out"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeConflict   Outcome = "conflict"
)

// Entry is the audit record of one settled mutation.
type Entry struct {
	MutationID uuid.UUID
	EntityID   string
	Kind       domain.Kind
	Label      string
	Outcome    Outcome
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// Journal persists settled mutations. Errors are logged by the coordinator.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
}
