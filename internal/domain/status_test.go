package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentMachine(t *testing.T) {
	sm := MachineFor(KindEnrollment)
	require.NotNil(t, sm)

	assert.True(t, sm.CanTransition(EnrollmentStatusPending, EnrollmentStatusApproved))
	assert.True(t, sm.CanTransition(EnrollmentStatusPending, EnrollmentStatusRejected))
	assert.True(t, sm.CanTransition(EnrollmentStatusPending, EnrollmentStatusCancelled))
	assert.True(t, sm.CanTransition(EnrollmentStatusApproved, EnrollmentStatusDrop))

	assert.False(t, sm.CanTransition(EnrollmentStatusApproved, EnrollmentStatusPending))
	assert.False(t, sm.CanTransition(EnrollmentStatusRejected, EnrollmentStatusApproved))

	for _, s := range []Status{EnrollmentStatusRejected, EnrollmentStatusCancelled, EnrollmentStatusDrop} {
		assert.True(t, sm.IsTerminal(s), s)
	}
	assert.False(t, sm.IsTerminal(EnrollmentStatusPending))

	var terr *TransitionError
	require.ErrorAs(t, sm.Validate(EnrollmentStatusRejected, EnrollmentStatusPending), &terr)
	assert.Equal(t, EnrollmentStatusRejected, terr.From)
}

func TestRegresses(t *testing.T) {
	sm := MachineFor(KindEnrollment)
	assert.True(t, sm.Regresses(EnrollmentStatusApproved, EnrollmentStatusPending))
	assert.False(t, sm.Regresses(EnrollmentStatusPending, EnrollmentStatusPending))
	assert.False(t, sm.Regresses("", EnrollmentStatusPending))
	assert.False(t, sm.Regresses(EnrollmentStatusApproved, EnrollmentStatusRejected))

	staff := MachineFor(KindStaff)
	assert.True(t, staff.Regresses(StaffStatusActive, StaffStatusPending))
	assert.False(t, staff.Regresses(StaffStatusActive, StaffStatusInactive))
}

func TestStaffToggle(t *testing.T) {
	sm := MachineFor(KindStaff)

	next, ok := sm.Toggle(StaffStatusActive)
	require.True(t, ok)
	assert.Equal(t, StaffStatusInactive, next)

	next, ok = sm.Toggle(StaffStatusInactive)
	require.True(t, ok)
	assert.Equal(t, StaffStatusActive, next)

	next, ok = sm.Toggle(StaffStatusPending)
	require.True(t, ok)
	assert.Equal(t, StaffStatusActive, next)

	_, ok = MachineFor(KindEnrollment).Toggle(EnrollmentStatusPending)
	assert.False(t, ok)
}

func TestRecordCloneIsDeep(t *testing.T) {
	r := Record{
		ID: "s1",
		Fields: map[string]any{
			FieldRoles: []RoleRef{{ID: "r1", Name: "advisor"}},
			"meta":     map[string]any{"a": 1},
		},
	}
	cp := r.Clone()
	cp.Fields[FieldRoles].([]RoleRef)[0].Name = "changed"
	cp.Fields["meta"].(map[string]any)["a"] = 2

	assert.Equal(t, "advisor", r.Fields[FieldRoles].([]RoleRef)[0].Name)
	assert.Equal(t, 1, r.Fields["meta"].(map[string]any)["a"])
}

func TestEnrollmentRoundTrip(t *testing.T) {
	e := Enrollment{
		ID:          "E1",
		Status:      EnrollmentStatusPending,
		StudentName: "Ada",
		CourseTitle: "Compilers",
		Department:  "CS",
		Advisor:     &AdvisorRef{ID: "a1", Name: "Dr. Knuth"},
		Credits:     3,
		Version:     2,
	}
	got := EnrollmentFromRecord(e.Record())
	assert.Equal(t, e, got)
}
