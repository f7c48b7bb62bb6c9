// Package mutation applies optimistic edits to the entity store and settles
// them against the server.
//
// A submit makes exactly one store write on entry (the optimistic record,
// version bumped and flagged with a fresh mutation id) and at most one on
// exit (the commit merge or the verbatim rollback). While a record is
// pending, push updates for it are queued through RunOrDefer and replayed in
// arrival order once the mutation settles.
package mutation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/notification"
	"github.com/spec-kit/campus-console/internal/observability"
	"github.com/spec-kit/campus-console/internal/store"
)

// Store is the subset of the entity store the coordinator writes through.
type Store interface {
	Kind() domain.Kind
	Get(id string) (domain.Record, bool)
	Mutate(id string, fn store.MutateFunc) (domain.Record, bool)
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Enqueue(message string, kind notification.Kind, ttl time.Duration) notification.Handle
}

// UpdateFunc computes the optimistic record. It must not keep references to
// its argument.
type UpdateFunc func(domain.Record) domain.Record

// Response carries the authoritative parts of a successful server call.
// Zero values are not merged.
type Response struct {
	Status  domain.Status
	Fields  map[string]any
	Version int64
}

// ServerCall performs the network request backing a mutation.
type ServerCall func(ctx context.Context) (*Response, error)

// Result describes a settled mutation.
type Result struct {
	MutationID uuid.UUID
	Record     domain.Record
	Committed  bool
	Superseded bool
}

// Config holds coordinator dependencies that are optional.
type Config struct {
	Timeout time.Duration
	Metrics *observability.Metrics
	Journal Journal
}

// Coordinator runs optimistic mutations for one store.
type Coordinator struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics
	journal  Journal
	timeout  time.Duration
	now      func() time.Time

	// mu orders entry writes, deferral decisions and settle+replay.
	mu       sync.Mutex
	deferred map[string][]func()
}

// NewCoordinator builds a coordinator writing to st.
func NewCoordinator(st Store, notifier Notifier, logger *zap.Logger, cfg Config) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:    st,
		notifier: notifier,
		logger:   logger.With(zap.String("kind", string(st.Kind()))),
		metrics:  cfg.Metrics,
		journal:  cfg.Journal,
		timeout:  cfg.Timeout,
		now:      time.Now,
		deferred: make(map[string][]func()),
	}
}

// Submit applies update optimistically to the record with entityID, runs
// call, then commits or rolls back. It rejects with *ConflictError when the
// record already has a pending mutation and with ErrNotFound when the record
// is absent; in both cases the store is unchanged. A failed precondition
// returns the check's error, also without a store write.
func (c *Coordinator) Submit(ctx context.Context, entityID string, update UpdateFunc, call ServerCall, opts ...Option) (Result, error) {
	o := submitOptions{timeout: c.timeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.label == "" {
		o.label = "update"
	}

	mutationID := uuid.New()
	started := c.now()
	pre, err := c.begin(entityID, mutationID, update, o.check)
	if err != nil {
		if _, ok := err.(*ConflictError); ok {
			c.metrics.RecordMutation(string(c.store.Kind()), string(OutcomeConflict), 0)
		}
		return Result{}, err
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if o.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
	}
	resp, callErr := call(callCtx)
	cancel()

	var failure error
	if callErr != nil {
		failure = classify(entityID, mutationID, o.timeout, callErr)
	}

	final, written := c.settle(entityID, mutationID, pre, resp, failure)
	duration := c.now().Sub(started)

	res := Result{MutationID: mutationID, Record: final}
	outcome := OutcomeCommitted
	switch {
	case !written:
		outcome = OutcomeSuperseded
		res.Superseded = true
	case failure != nil:
		outcome = OutcomeRolledBack
	default:
		res.Committed = true
	}
	if failure != nil {
		if _, ok := failure.(*TimeoutError); ok {
			outcome = OutcomeTimedOut
		}
		c.reportFailure(entityID, mutationID, o.label, failure)
	}

	c.metrics.RecordMutation(string(c.store.Kind()), string(outcome), duration)
	c.appendJournal(ctx, Entry{
		MutationID: mutationID,
		EntityID:   entityID,
		Kind:       c.store.Kind(),
		Label:      o.label,
		Outcome:    outcome,
		Error:      errString(failure),
		StartedAt:  started,
		Duration:   duration,
	})

	if failure != nil {
		return res, failure
	}

	c.logger.Debug("mutation settled",
		zap.String("id", entityID),
		zap.String("mutation_id", mutationID.String()),
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", duration))

	if res.Committed {
		if o.success != "" && c.notifier != nil {
			c.notifier.Enqueue(o.success, notification.KindSuccess, 0)
		}
		if o.refetch != nil {
			if err := o.refetch(ctx); err != nil {
				c.logger.Warn("refetch after mutation failed",
					zap.String("id", entityID),
					zap.String("mutation_id", mutationID.String()),
					zap.Error(err))
				if c.notifier != nil {
					c.notifier.Enqueue(fmt.Sprintf("%s saved, but the list could not be refreshed: %v", o.label, err),
						notification.KindWarning, 0)
				}
			}
		}
	}
	return res, nil
}

// RunOrDefer runs apply now unless the record has a pending mutation or
// earlier deferred work, in which case apply is queued and runs after the
// mutation settles. apply is always called with the coordinator lock held
// and must only write to the store. Returns whether apply was deferred.
func (c *Coordinator) RunOrDefer(entityID string, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.deferred[entityID]) > 0 || c.pendingLocked(entityID) {
		c.deferred[entityID] = append(c.deferred[entityID], apply)
		return true
	}
	apply()
	return false
}

// Pending reports whether entityID has a mutation in flight.
func (c *Coordinator) Pending(entityID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked(entityID)
}

// Deferred returns the number of queued updates for entityID.
func (c *Coordinator) Deferred(entityID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deferred[entityID])
}

func (c *Coordinator) pendingLocked(entityID string) bool {
	r, ok := c.store.Get(entityID)
	return ok && r.Pending()
}

func (c *Coordinator) begin(entityID string, mutationID uuid.UUID, update UpdateFunc, check func(domain.Record) error) (domain.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		pre      domain.Record
		found    bool
		conflict *ConflictError
		rejected error
	)
	c.store.Mutate(entityID, func(cur domain.Record, exists bool) (domain.Record, bool) {
		if !exists {
			return cur, false
		}
		found = true
		if cur.Pending() {
			conflict = &ConflictError{EntityID: entityID, PendingMutationID: *cur.PendingMutationID}
			return cur, false
		}
		if check != nil {
			if err := check(cur.Clone()); err != nil {
				rejected = err
				return cur, false
			}
		}
		pre = cur.Clone()
		next := update(cur.Clone())
		if next.Kind == "" {
			next.Kind = cur.Kind
		}
		next.Version = cur.Version + 1
		id := mutationID
		next.PendingMutationID = &id
		return next, true
	})

	switch {
	case !found:
		return domain.Record{}, fmt.Errorf("%w: %s %s", ErrNotFound, c.store.Kind(), entityID)
	case conflict != nil:
		return domain.Record{}, conflict
	case rejected != nil:
		return domain.Record{}, rejected
	}
	return pre, nil
}

// settle makes the exit write and replays deferred updates. It reports false
// when the record no longer carries this mutation.
func (c *Coordinator) settle(entityID string, mutationID uuid.UUID, pre domain.Record, resp *Response, failure error) (domain.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	final, written := c.store.Mutate(entityID, func(cur domain.Record, exists bool) (domain.Record, bool) {
		if !exists || cur.PendingMutationID == nil || *cur.PendingMutationID != mutationID {
			return cur, false
		}
		if failure != nil {
			return pre.Clone(), true
		}
		return merge(cur, resp), true
	})
	if failure != nil && written {
		c.logger.Warn("mutation rolled back",
			zap.String("id", entityID),
			zap.String("mutation_id", mutationID.String()),
			zap.Error(failure))
	}

	c.drainLocked(entityID)
	if r, ok := c.store.Get(entityID); ok {
		final = r
	}
	return final, written
}

func (c *Coordinator) drainLocked(entityID string) {
	for len(c.deferred[entityID]) > 0 && !c.pendingLocked(entityID) {
		apply := c.deferred[entityID][0]
		c.deferred[entityID] = c.deferred[entityID][1:]
		apply()
	}
	if len(c.deferred[entityID]) == 0 {
		delete(c.deferred, entityID)
	}
}

func merge(cur domain.Record, resp *Response) domain.Record {
	next := cur.Clone()
	next.PendingMutationID = nil
	if resp == nil {
		return next
	}
	if resp.Status != "" {
		next.Status = resp.Status
	}
	if len(resp.Fields) > 0 {
		next = next.WithFields(resp.Fields)
	}
	if resp.Version > next.Version {
		next.Version = resp.Version
	}
	return next
}

func (c *Coordinator) reportFailure(entityID string, mutationID uuid.UUID, label string, failure error) {
	if c.notifier == nil {
		return
	}
	if t, ok := failure.(*TimeoutError); ok {
		msg := fmt.Sprintf("%s timed out, changes were reverted", label)
		if t.Timeout > 0 {
			msg = fmt.Sprintf("%s timed out after %s, changes were reverted", label, t.Timeout)
		}
		c.notifier.Enqueue(msg, notification.KindWarning, 0)
		return
	}
	cause := failure
	if n, ok := failure.(*NetworkError); ok {
		cause = n.Err
	}
	c.notifier.Enqueue(fmt.Sprintf("%s failed: %v", label, cause), notification.KindError, 0)
}

func (c *Coordinator) appendJournal(ctx context.Context, entry Entry) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Append(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Error("mutation journal append failed",
			zap.String("id", entry.EntityID),
			zap.String("mutation_id", entry.MutationID.String()),
			zap.Error(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
