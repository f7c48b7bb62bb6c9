package service

import (
	"context"
	"fmt"
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

// StaffBackend is the staff directory API.
type StaffBackend interface {
	ListStaff(ctx context.Context, q backend.StaffQuery) ([]domain.Record, error)
	GetStaff(ctx context.Context, id string) (domain.Record, error)
	UpdateStaff(ctx context.Context, id string, u backend.StaffUpdate) (domain.Record, error)
	ToggleStaffStatus(ctx context.Context, id string) (backend.StatusResult, error)
}

// StaffDependencies bundles collaborators for the staff console.
type StaffDependencies struct {
	Backend     StaffBackend
	Store       *store.EntityStore
	Coordinator *mutation.Coordinator
	Logger      *zap.Logger
}

// StaffSearchFields are matched by free-text search.
var StaffSearchFields = []string{
	domain.FieldName,
	domain.FieldEmail,
	domain.FieldTitle,
}

// StaffConsole manages the staff directory.
type StaffConsole struct {
	api    StaffBackend
	store  *store.EntityStore
	coord  *mutation.Coordinator
	view   *projection.View
	logger *zap.Logger

	mu    sync.Mutex
	query backend.StaffQuery
}

// NewStaffConsole constructs the console.
func NewStaffConsole(deps StaffDependencies) *StaffConsole {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffConsole{
		api:    deps.Backend,
		store:  deps.Store,
		coord:  deps.Coordinator,
		view:   projection.NewView(deps.Store),
		logger: logger,
	}
}

// Refresh reloads the directory. A non-nil q becomes the active query.
func (c *StaffConsole) Refresh(ctx context.Context, q *backend.StaffQuery) error {
	c.mu.Lock()
	if q != nil {
		c.query = *q
	}
	active := c.query
	c.mu.Unlock()

	applied, err := reconcile(ctx, c.store, func(ctx context.Context) ([]domain.Record, error) {
		return c.api.ListStaff(ctx, active)
	})
	if err != nil {
		return err
	}
	if !applied {
		c.logger.Debug("staff refresh superseded by a newer fetch")
	}
	return nil
}

func (c *StaffConsole) refetch(ctx context.Context) error {
	return c.Refresh(ctx, nil)
}

// Query returns the active server query.
func (c *StaffConsole) Query() backend.StaffQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// List projects the held staff members, by name unless f says otherwise.
func (c *StaffConsole) List(f projection.Filter) []domain.StaffMember {
	if f.SearchFields == nil {
		f.SearchFields = StaffSearchFields
	}
	if f.SortBy == "" {
		f.SortBy = domain.FieldName
	}
	recs := c.view.Project(f)
	out := make([]domain.StaffMember, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.StaffMemberFromRecord(r))
	}
	return out
}

// Get returns one staff member from the store.
func (c *StaffConsole) Get(id string) (domain.StaffMember, error) {
	r, ok := c.store.Get(id)
	if !ok {
		return domain.StaffMember{}, apperrors.NewNotFound("staff member", map[string]any{"id": id})
	}
	return domain.StaffMemberFromRecord(r), nil
}

// Update edits profile fields and merges the record the server returns.
func (c *StaffConsole) Update(ctx context.Context, id string, u backend.StaffUpdate) (domain.StaffMember, error) {
	fields := u.Fields()
	if len(fields) == 0 {
		return domain.StaffMember{}, apperrors.NewValidationError("no fields to update", nil)
	}
	res, err := c.coord.Submit(ctx, id,
		func(r domain.Record) domain.Record { return r.WithFields(fields) },
		func(ctx context.Context) (*mutation.Response, error) {
			rec, err := c.api.UpdateStaff(ctx, id, u)
			if err != nil {
				return nil, err
			}
			merged := rec.Fields
			if roles, ok := merged[domain.FieldRoles].([]domain.RoleRef); ok && roles == nil {
				delete(merged, domain.FieldRoles)
			}
			return &mutation.Response{Status: rec.Status, Fields: merged, Version: rec.Version}, nil
		},
		mutation.WithLabel(fmt.Sprintf("update staff member %s", id)),
		mutation.WithSuccessMessage("Staff member updated"),
	)
	if err != nil {
		return domain.StaffMember{}, err
	}
	return domain.StaffMemberFromRecord(res.Record), nil
}

// ToggleStatus flips a member between active and inactive, or activates a
// pending one. The response status is merged.
func (c *StaffConsole) ToggleStatus(ctx context.Context, id string) (domain.StaffMember, error) {
	if _, ok := c.store.Get(id); !ok {
		return domain.StaffMember{}, apperrors.NewNotFound("staff member", map[string]any{"id": id})
	}
	machine := domain.MachineFor(domain.KindStaff)
	res, err := c.coord.Submit(ctx, id,
		func(r domain.Record) domain.Record {
			r.Status, _ = machine.Toggle(r.Status)
			return r
		},
		func(ctx context.Context) (*mutation.Response, error) {
			out, err := c.api.ToggleStaffStatus(ctx, id)
			if err != nil {
				return nil, err
			}
			return &mutation.Response{Status: out.Status, Version: out.Version}, nil
		},
		mutation.WithPrecondition(func(cur domain.Record) error {
			if _, ok := machine.Toggle(cur.Status); !ok {
				return apperrors.NewValidationError("status cannot be toggled", map[string]any{"status": cur.Status})
			}
			return nil
		}),
		mutation.WithLabel(fmt.Sprintf("toggle status of staff member %s", id)),
	)
	if err != nil {
		return domain.StaffMember{}, err
	}
	return domain.StaffMemberFromRecord(res.Record), nil
}

// RegisterHandlers wires the staff push events to ch. Staff events other
// than deletes carry no id, so they refetch the directory.
func (c *StaffConsole) RegisterHandlers(ch *syncchannel.Channel) []*events.Subscription {
	b := ch.Bind(c.store, c.coord)
	refetch := func(ctx context.Context, ev events.Event) error {
		return b.Refetch(ctx, ev.Name, c.refetch)
	}
	return []*events.Subscription{
		ch.On(events.StaffCreated, refetch),
		ch.On(events.StaffUpdated, refetch),
		ch.On(events.StaffStatusChanged, refetch),
		ch.On(events.StaffDeleted, func(ctx context.Context, ev events.Event) error {
			p, err := events.DecodePayload[events.StaffDeletedPayload](ev)
			if err != nil {
				return err
			}
			if p.StaffID == "" {
				return b.Refetch(ctx, ev.Name, c.refetch)
			}
			b.ApplyDeleted(ev.Name, p.StaffID)
			return nil
		}),
	}
}
