package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/backend"
	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/events"
	"github.com/spec-kit/campus-console/internal/mutation"
	"github.com/spec-kit/campus-console/internal/projection"
	"github.com/spec-kit/campus-console/internal/store"
	"github.com/spec-kit/campus-console/internal/syncchannel"
	apperrors "github.com/spec-kit/campus-console/pkg/util/errorutil"
)

// EnrollmentBackend is the enrollment service API.
type EnrollmentBackend interface {
	ListEnrollments(ctx context.Context, q backend.EnrollmentQuery) ([]domain.Record, error)
	GetEnrollment(ctx context.Context, id string) (domain.Record, error)
	DecideEnrollment(ctx context.Context, id string, action domain.DecisionAction, note string) (backend.StatusResult, error)
	AssignAdvisor(ctx context.Context, id, advisorID string) (domain.AdvisorRef, error)
}

// EnrollmentDependencies bundles collaborators for the enrollment console.
type EnrollmentDependencies struct {
	Backend     EnrollmentBackend
	Store       *store.EntityStore
	Coordinator *mutation.Coordinator
	Logger      *zap.Logger
}

// EnrollmentSearchFields are matched by free-text search.
var EnrollmentSearchFields = []string{
	domain.FieldStudentName,
	domain.FieldStudentID,
	domain.FieldCourseTitle,
	domain.FieldCourseCode,
}

// EnrollmentConsole runs the admin enrollment workflows.
type EnrollmentConsole struct {
	api    EnrollmentBackend
	store  *store.EntityStore
	coord  *mutation.Coordinator
	view   *projection.View
	logger *zap.Logger

	mu    sync.Mutex
	query backend.EnrollmentQuery
}

// NewEnrollmentConsole constructs the console.
func NewEnrollmentConsole(deps EnrollmentDependencies) *EnrollmentConsole {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentConsole{
		api:    deps.Backend,
		store:  deps.Store,
		coord:  deps.Coordinator,
		view:   projection.NewView(deps.Store),
		logger: logger,
	}
}

// Refresh reloads the collection. A non-nil q becomes the active server
// query, reused by push-driven refetches.
func (c *EnrollmentConsole) Refresh(ctx context.Context, q *backend.EnrollmentQuery) error {
	c.mu.Lock()
	if q != nil {
		c.query = *q
	}
	active := c.query
	c.mu.Unlock()

	applied, err := reconcile(ctx, c.store, func(ctx context.Context) ([]domain.Record, error) {
		return c.api.ListEnrollments(ctx, active)
	})
	if err != nil {
		return err
	}
	if !applied {
		c.logger.Debug("enrollment refresh superseded by a newer fetch")
	}
	return nil
}

func (c *EnrollmentConsole) refetch(ctx context.Context) error {
	return c.Refresh(ctx, nil)
}

// Query returns the active server query.
func (c *EnrollmentConsole) Query() backend.EnrollmentQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// List projects the held enrollments.
func (c *EnrollmentConsole) List(f projection.Filter) []domain.Enrollment {
	if f.SearchFields == nil {
		f.SearchFields = EnrollmentSearchFields
	}
	if f.SortBy == "" {
		f.SortBy = projection.SortByCreatedAt
		f.Descending = true
	}
	recs := c.view.Project(f)
	out := make([]domain.Enrollment, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.EnrollmentFromRecord(r))
	}
	return out
}

// Get returns one enrollment from the store.
func (c *EnrollmentConsole) Get(id string) (domain.Enrollment, error) {
	r, ok := c.store.Get(id)
	if !ok {
		return domain.Enrollment{}, apperrors.NewNotFound("enrollment", map[string]any{"id": id})
	}
	return domain.EnrollmentFromRecord(r), nil
}

// Decide approves or rejects a pending enrollment. The response status is
// merged; nothing else depends on a decision, so there is no refetch.
func (c *EnrollmentConsole) Decide(ctx context.Context, id string, action domain.DecisionAction, note string) (domain.Enrollment, error) {
	target, ok := action.Target()
	if !ok {
		return domain.Enrollment{}, apperrors.NewValidationError("unknown decision action", map[string]any{"action": action})
	}
	if _, ok := c.store.Get(id); !ok {
		return domain.Enrollment{}, apperrors.NewNotFound("enrollment", map[string]any{"id": id})
	}

	verb := strings.ToLower(string(action))
	res, err := c.coord.Submit(ctx, id,
		func(r domain.Record) domain.Record {
			r.Status = target
			if note != "" {
				r = r.WithFields(map[string]any{domain.FieldNote: note})
			}
			return r
		},
		func(ctx context.Context) (*mutation.Response, error) {
			out, err := c.api.DecideEnrollment(ctx, id, action, note)
			if err != nil {
				return nil, err
			}
			return &mutation.Response{Status: out.Status, Version: out.Version}, nil
		},
		mutation.WithPrecondition(func(cur domain.Record) error {
			if err := domain.MachineFor(domain.KindEnrollment).Validate(cur.Status, target); err != nil {
				return apperrors.NewValidationError(err.Error(), map[string]any{
					"from": cur.Status,
					"to":   target,
				})
			}
			return nil
		}),
		mutation.WithLabel(fmt.Sprintf("%s enrollment %s", verb, id)),
		mutation.WithSuccessMessage(fmt.Sprintf("Enrollment %s %s", id, strings.ToLower(string(target)))),
	)
	if err != nil {
		return domain.Enrollment{}, err
	}
	return domain.EnrollmentFromRecord(res.Record), nil
}

// AssignAdvisor points an enrollment at another advisor. Advisor load counts
// live outside this record, so a commit is followed by a refetch.
func (c *EnrollmentConsole) AssignAdvisor(ctx context.Context, id, advisorID string) (domain.Enrollment, error) {
	if strings.TrimSpace(advisorID) == "" {
		return domain.Enrollment{}, apperrors.NewValidationError("advisorId is required", nil)
	}
	res, err := c.coord.Submit(ctx, id,
		func(r domain.Record) domain.Record {
			return r.WithFields(map[string]any{domain.FieldAdvisor: domain.AdvisorRef{ID: advisorID}})
		},
		func(ctx context.Context) (*mutation.Response, error) {
			ref, err := c.api.AssignAdvisor(ctx, id, advisorID)
			if err != nil {
				return nil, err
			}
			if ref.ID == "" {
				ref.ID = advisorID
			}
			return &mutation.Response{Fields: map[string]any{domain.FieldAdvisor: ref}}, nil
		},
		mutation.WithLabel(fmt.Sprintf("assign advisor to enrollment %s", id)),
		mutation.WithSuccessMessage("Advisor assigned"),
		mutation.WithRefetch(c.refetch),
	)
	if err != nil {
		return domain.Enrollment{}, err
	}
	return domain.EnrollmentFromRecord(res.Record), nil
}

// RegisterHandlers wires the enrollment push events to ch.
func (c *EnrollmentConsole) RegisterHandlers(ch *syncchannel.Channel) []*events.Subscription {
	b := ch.Bind(c.store, c.coord)
	return []*events.Subscription{
		ch.On(events.EnrollmentCreated, func(ctx context.Context, ev events.Event) error {
			p, err := events.DecodePayload[events.EnrollmentCreatedPayload](ev)
			if err != nil {
				return err
			}
			if p.EnrollmentID == "" {
				return fmt.Errorf("%w: %s without enrollmentId", events.ErrMalformed, ev.Name)
			}
			return b.ApplyCreated(ctx, ev.Name, p.EnrollmentID, c.api.GetEnrollment)
		}),
		ch.On(events.EnrollmentUpdated, func(ctx context.Context, ev events.Event) error {
			p, err := events.DecodePayload[events.EnrollmentUpdatedPayload](ev)
			if err != nil {
				return err
			}
			if p.EnrollmentID == "" {
				return fmt.Errorf("%w: %s without enrollmentId", events.ErrMalformed, ev.Name)
			}
			u := syncchannel.Update{Status: p.Status, Version: ev.Version}
			if p.Note != nil {
				u.Fields = map[string]any{domain.FieldNote: *p.Note}
			}
			b.ApplyUpdated(ev.Name, p.EnrollmentID, u)
			return nil
		}),
		ch.On(events.EnrollmentDropRequested, func(ctx context.Context, ev events.Event) error {
			return b.Refetch(ctx, ev.Name, c.refetch)
		}),
	}
}
