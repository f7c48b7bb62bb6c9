// Package store holds the authoritative in-memory collection of records for
// one entity kind. It is the only mutable copy of record state in the console;
// every committed write is announced to subscribers exactly once.
package store

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/observability"
)

// ChangeReason names the write that produced a Change.
type ChangeReason string

const (
	ReasonUpsert  ChangeReason = "upsert"
	ReasonRemove  ChangeReason = "remove"
	ReasonReplace ChangeReason = "replace"
	ReasonMutate  ChangeReason = "mutate"
)

// Change is delivered to subscribers after each committed write.
// IDs is nil for bulk replacements.
type Change struct {
	Kind     domain.Kind
	Revision uint64
	Reason   ChangeReason
	IDs      []string
}

// Listener observes committed changes. Listeners must not write to the store.
type Listener func(Change)

// Option configures an EntityStore.
type Option func(*EntityStore)

// WithLogger sets the logger used for stale-write diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *EntityStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *EntityStore) {
		s.metrics = m
	}
}

// EntityStore is a keyed collection of records of one kind.
type EntityStore struct {
	kind    domain.Kind
	logger  *zap.Logger
	metrics *observability.Metrics

	// writeMu serializes writers and the delivery of their notifications.
	writeMu sync.Mutex

	mu         sync.RWMutex
	records    map[string]domain.Record
	revision   uint64
	fetchSeq   uint64
	appliedSeq uint64

	listenersMu  sync.Mutex
	listeners    map[uint64]Listener
	nextListener uint64
}

// New creates an empty store for kind.
func New(kind domain.Kind, opts ...Option) *EntityStore {
	s := &EntityStore{
		kind:      kind,
		logger:    zap.NewNop(),
		records:   make(map[string]domain.Record),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind returns the entity kind held by the store.
func (s *EntityStore) Kind() domain.Kind {
	return s.kind
}

// Get returns a copy of the record with the given id.
func (s *EntityStore) Get(id string) (domain.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return domain.Record{}, false
	}
	return r.Clone(), true
}

// Len returns the number of records held.
func (s *EntityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Revision returns the store-wide change counter.
func (s *EntityStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Upsert merges r by id. A record with a lower version than the one held is
// ignored; at equal versions the incoming record wins. Returns whether the
// store changed.
func (s *EntityStore) Upsert(r domain.Record) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var current int64
	change, ok := s.commit(func() (ChangeReason, []string, bool) {
		if cur, exists := s.records[r.ID]; exists && r.Version < cur.Version {
			current = cur.Version
			return "", nil, false
		}
		s.records[r.ID] = s.normalize(r)
		return ReasonUpsert, []string{r.ID}, true
	})
	if !ok {
		s.staleWrite(r.ID, "upsert", r.Version, current)
		return false
	}
	s.notify(change)
	return true
}

// Remove deletes the record with the given id. Removing an absent id is a no-op.
func (s *EntityStore) Remove(id string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	change, ok := s.commit(func() (ChangeReason, []string, bool) {
		if _, exists := s.records[id]; !exists {
			return "", nil, false
		}
		delete(s.records, id)
		return ReasonRemove, []string{id}, true
	})
	if !ok {
		return false
	}
	s.notify(change)
	return true
}

// MutateFunc computes the next state of a record from the current one.
// Returning false leaves the store untouched.
type MutateFunc func(cur domain.Record, exists bool) (domain.Record, bool)

// Mutate runs fn and writes its result atomically with respect to other
// writers. The result is stored verbatim; the caller owns version handling.
// fn runs without the read lock held, so readers are not blocked by it.
func (s *EntityStore) Mutate(id string, fn MutateFunc) (domain.Record, bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, ok := s.Get(id)
	next, write := fn(cur, ok)
	if !write {
		return cur, false
	}
	next.ID = id
	change, _ := s.commit(func() (ChangeReason, []string, bool) {
		s.records[id] = s.normalize(next)
		return ReasonMutate, []string{id}, true
	})
	s.notify(change)
	return next.Clone(), true
}

// BeginFetch reserves the sequence number of a reconciling fetch. Pass it to
// ReplaceAll when the response arrives.
func (s *EntityStore) BeginFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchSeq++
	return s.fetchSeq
}

// ReplaceAll swaps the collection for the result of a reconciling fetch.
// A response whose seq is not newer than the last applied one is discarded.
// Records with a pending mutation survive unless the incoming copy carries a
// higher version, in which case the server copy wins and the pending flag is
// cleared. Returns whether the response was applied.
func (s *EntityStore) ReplaceAll(seq uint64, records []domain.Record) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var applied uint64
	change, ok := s.commit(func() (ChangeReason, []string, bool) {
		if seq <= s.appliedSeq {
			applied = s.appliedSeq
			return "", nil, false
		}
		s.appliedSeq = seq
		s.records = s.reconcileLocked(records)
		return ReasonReplace, nil, true
	})
	if !ok {
		s.logger.Debug("stale fetch response ignored",
			zap.String("kind", string(s.kind)),
			zap.Uint64("seq", seq),
			zap.Uint64("applied_seq", applied))
		s.metrics.RecordStaleWrite(string(s.kind), "replace_all")
		return false
	}
	s.notify(change)
	return true
}

func (s *EntityStore) reconcileLocked(records []domain.Record) map[string]domain.Record {
	next := make(map[string]domain.Record, len(records))
	for _, in := range records {
		in.PendingMutationID = nil
		cur, ok := s.records[in.ID]
		switch {
		case !ok:
			if in.Version == 0 {
				in.Version = 1
			}
			next[in.ID] = s.normalize(in)
		case cur.Pending():
			if in.Version > cur.Version {
				next[in.ID] = s.normalize(in)
			} else {
				next[in.ID] = cur
			}
		case in.Version == 0:
			in.Version = cur.Version + 1
			next[in.ID] = s.normalize(in)
		case in.Version < cur.Version:
			s.logger.Debug("stale record in fetch ignored",
				zap.String("kind", string(s.kind)),
				zap.String("id", in.ID),
				zap.Int64("version", in.Version),
				zap.Int64("current_version", cur.Version))
			next[in.ID] = cur
		default:
			next[in.ID] = s.normalize(in)
		}
	}
	for id, cur := range s.records {
		if _, ok := next[id]; !ok && cur.Pending() {
			next[id] = cur
		}
	}
	return next
}

// commit runs apply under the write lock. When apply reports a change the
// revision is bumped and the resulting Change returned for notify, which
// must run after the lock is released.
func (s *EntityStore) commit(apply func() (ChangeReason, []string, bool)) (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason, ids, changed := apply()
	if !changed {
		return Change{}, false
	}
	return s.commitLocked(reason, ids), true
}

// Snapshot returns an immutable copy of every record keyed by id.
func (s *EntityStore) Snapshot() map[string]domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Record, len(s.records))
	for id, r := range s.records {
		out[id] = r.Clone()
	}
	return out
}

// List returns copies of all records ordered by id.
func (s *EntityStore) List() []domain.Record {
	s.mu.RLock()
	out := make([]domain.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Subscribe registers fn for change notifications and returns its unsubscribe func.
func (s *EntityStore) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.nextListener++
	id := s.nextListener
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *EntityStore) normalize(r domain.Record) domain.Record {
	r = r.Clone()
	if r.Kind == "" {
		r.Kind = s.kind
	}
	return r
}

func (s *EntityStore) commitLocked(reason ChangeReason, ids []string) Change {
	s.revision++
	return Change{Kind: s.kind, Revision: s.revision, Reason: reason, IDs: ids}
}

func (s *EntityStore) staleWrite(id, source string, version, current int64) {
	s.logger.Debug("stale write ignored",
		zap.String("kind", string(s.kind)),
		zap.String("id", id),
		zap.String("source", source),
		zap.Int64("version", version),
		zap.Int64("current_version", current))
	s.metrics.RecordStaleWrite(string(s.kind), source)
}

func (s *EntityStore) notify(change Change) {
	s.listenersMu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
