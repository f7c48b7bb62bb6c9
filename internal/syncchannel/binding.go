package syncchannel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/events"
	"github.com/spec-kit/campus-console/internal/observability"
	"github.com/spec-kit/campus-console/internal/store"
)

// Store is the part of the entity store the event policies write to.
type Store interface {
	Kind() domain.Kind
	Get(id string) (domain.Record, bool)
	Upsert(r domain.Record) bool
	Remove(id string) bool
	Mutate(id string, fn store.MutateFunc) (domain.Record, bool)
}

// Arbiter decides whether a write must wait for a pending mutation.
type Arbiter interface {
	RunOrDefer(entityID string, apply func()) bool
}

// Update is a partial change carried by an *-updated event. A zero Version
// means the event was unversioned.
type Update struct {
	Status  domain.Status
	Fields  map[string]any
	Version int64
}

// Binding applies event policies to one store.
type Binding struct {
	store   Store
	arbiter Arbiter
	machine *domain.StateMachine
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Bind returns the policies for st, arbitrated by a.
func (c *Channel) Bind(st Store, a Arbiter) *Binding {
	return &Binding{
		store:   st,
		arbiter: a,
		machine: domain.MachineFor(st.Kind()),
		logger:  c.logger.With(zap.String("kind", string(st.Kind()))),
		metrics: c.metrics,
	}
}

// ApplyCreated fetches the new record and inserts it.
func (b *Binding) ApplyCreated(ctx context.Context, name events.Name, id string, fetch func(context.Context, string) (domain.Record, error)) error {
	rec, err := fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch created %s %s: %w", b.store.Kind(), id, err)
	}
	rec.ID = id
	rec.PendingMutationID = nil

	deferred := b.arbiter.RunOrDefer(id, func() {
		if rec.Version == 0 {
			rec.Version = 1
			if cur, ok := b.store.Get(id); ok {
				rec.Version = cur.Version + 1
			}
		}
		if b.store.Upsert(rec) {
			b.metrics.RecordPushEvent(string(name), DispositionApplied)
		} else {
			b.metrics.RecordPushEvent(string(name), DispositionStale)
		}
	})
	if deferred {
		b.metrics.RecordPushEvent(string(name), DispositionDeferred)
	}
	return nil
}

// ApplyUpdated merges u into the record. While the record has a pending
// mutation the merge is queued and replays after it settles. Updates older
// than the held version, updates for unknown records and moves back into
// the initial state are discarded. Returns whether the merge was deferred.
func (b *Binding) ApplyUpdated(name events.Name, id string, u Update) bool {
	deferred := b.arbiter.RunOrDefer(id, func() {
		b.metrics.RecordPushEvent(string(name), b.merge(id, u))
	})
	if deferred {
		b.logger.Debug("push update deferred behind pending mutation",
			zap.String("event", string(name)),
			zap.String("id", id))
		b.metrics.RecordPushEvent(string(name), DispositionDeferred)
	}
	return deferred
}

func (b *Binding) merge(id string, u Update) string {
	disposition := DispositionApplied
	b.store.Mutate(id, func(cur domain.Record, exists bool) (domain.Record, bool) {
		if !exists {
			disposition = DispositionMissing
			return cur, false
		}
		version := u.Version
		if version == 0 {
			version = cur.Version + 1
		}
		if version < cur.Version {
			disposition = DispositionStale
			b.logger.Debug("stale push update ignored",
				zap.String("id", id),
				zap.Int64("version", version),
				zap.Int64("current_version", cur.Version))
			b.metrics.RecordStaleWrite(string(b.store.Kind()), "push")
			return cur, false
		}
		if u.Status != "" && b.machine != nil && b.machine.Regresses(cur.Status, u.Status) {
			disposition = DispositionRegressed
			b.logger.Warn("push update would re-enter initial status",
				zap.String("id", id),
				zap.String("from", string(cur.Status)),
				zap.String("to", string(u.Status)))
			return cur, false
		}
		next := cur.WithFields(u.Fields)
		if u.Status != "" {
			next.Status = u.Status
		}
		next.Version = version
		return next, true
	})
	return disposition
}

// Refetch reloads the scoped collection for events whose effects reach
// beyond one record.
func (b *Binding) Refetch(ctx context.Context, name events.Name, refetch func(context.Context) error) error {
	if err := refetch(ctx); err != nil {
		return fmt.Errorf("refetch %s after %s: %w", b.store.Kind(), name, err)
	}
	b.metrics.RecordPushEvent(string(name), DispositionRefetched)
	return nil
}

// ApplyDeleted removes the record at once, pending or not.
func (b *Binding) ApplyDeleted(name events.Name, id string) bool {
	removed := b.store.Remove(id)
	if removed {
		b.metrics.RecordPushEvent(string(name), DispositionRemoved)
	} else {
		b.metrics.RecordPushEvent(string(name), DispositionMissing)
	}
	return removed
}
