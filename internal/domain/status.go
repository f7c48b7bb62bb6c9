package domain

import "fmt"

// Enrollment lifecycle states.
const (
	EnrollmentStatusPending   Status = "PENDING"
	EnrollmentStatusApproved  Status = "APPROVED"
	EnrollmentStatusRejected  Status = "REJECTED"
	EnrollmentStatusCancelled Status = "CANCELLED"
	EnrollmentStatusDrop      Status = "DROP"
)

// Staff lifecycle states.
const (
	StaffStatusActive   Status = "active"
	StaffStatusInactive Status = "inactive"
	StaffStatusPending  Status = "pending"
)

// TransitionError describes a status change the state machine does not allow.
type TransitionError struct {
	Kind Kind
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: transition %s -> %s not allowed", e.Kind, e.From, e.To)
}

// StateMachine holds the allowed status transitions of one kind.
type StateMachine struct {
	kind        Kind
	initial     Status
	statuses    map[Status]struct{}
	transitions map[Status]map[Status]struct{}
}

func newStateMachine(kind Kind, initial Status, edges [][2]Status) *StateMachine {
	sm := &StateMachine{
		kind:        kind,
		initial:     initial,
		statuses:    map[Status]struct{}{initial: {}},
		transitions: make(map[Status]map[Status]struct{}),
	}
	for _, e := range edges {
		if sm.transitions[e[0]] == nil {
			sm.transitions[e[0]] = make(map[Status]struct{})
		}
		sm.transitions[e[0]][e[1]] = struct{}{}
		sm.statuses[e[0]] = struct{}{}
		sm.statuses[e[1]] = struct{}{}
	}
	return sm
}

var (
	enrollmentMachine = newStateMachine(KindEnrollment, EnrollmentStatusPending, [][2]Status{
		{EnrollmentStatusPending, EnrollmentStatusApproved},
		{EnrollmentStatusPending, EnrollmentStatusRejected},
		{EnrollmentStatusPending, EnrollmentStatusCancelled},
		{EnrollmentStatusApproved, EnrollmentStatusDrop},
	})
	staffMachine = newStateMachine(KindStaff, StaffStatusPending, [][2]Status{
		{StaffStatusActive, StaffStatusInactive},
		{StaffStatusInactive, StaffStatusActive},
		{StaffStatusPending, StaffStatusActive},
	})
)

// MachineFor returns the state machine of a kind, or nil for unknown kinds.
func MachineFor(kind Kind) *StateMachine {
	switch kind {
	case KindEnrollment:
		return enrollmentMachine
	case KindStaff:
		return staffMachine
	default:
		return nil
	}
}

// Kind returns the entity kind this machine governs.
func (sm *StateMachine) Kind() Kind {
	return sm.kind
}

// Initial returns the entry state. Once left it is never re-entered.
func (sm *StateMachine) Initial() Status {
	return sm.initial
}

// IsKnown reports whether s belongs to this kind.
func (sm *StateMachine) IsKnown(s Status) bool {
	_, ok := sm.statuses[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (sm *StateMachine) IsTerminal(s Status) bool {
	return sm.IsKnown(s) && len(sm.transitions[s]) == 0
}

// CanTransition reports whether from -> to is an edge of the machine.
func (sm *StateMachine) CanTransition(from, to Status) bool {
	_, ok := sm.transitions[from][to]
	return ok
}

// Validate returns a *TransitionError when from -> to is not allowed.
func (sm *StateMachine) Validate(from, to Status) error {
	if sm.CanTransition(from, to) {
		return nil
	}
	return &TransitionError{Kind: sm.kind, From: from, To: to}
}

// Regresses reports whether moving from -> to would re-enter the initial state.
func (sm *StateMachine) Regresses(from, to Status) bool {
	return from != "" && from != sm.initial && to == sm.initial
}

// Toggle returns the status a toggle action leads to from s.
func (sm *StateMachine) Toggle(s Status) (Status, bool) {
	if sm.kind != KindStaff {
		return "", false
	}
	switch s {
	case StaffStatusActive:
		return StaffStatusInactive, true
	case StaffStatusInactive, StaffStatusPending:
		return StaffStatusActive, true
	default:
		return "", false
	}
}
