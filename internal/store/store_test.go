package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-console/internal/domain"
)

func enrollment(id string, status domain.Status, version int64) domain.Record {
	return domain.Record{
		ID:      id,
		Kind:    domain.KindEnrollment,
		Status:  status,
		Version: version,
		Fields:  map[string]any{domain.FieldStudentName: "student " + id},
	}
}

func pendingID() *uuid.UUID {
	id := uuid.New()
	return &id
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := New(domain.KindEnrollment)
	r := enrollment("E1", domain.EnrollmentStatusPending, 1)

	s.Upsert(r)
	once := s.Snapshot()
	s.Upsert(r)

	assert.Equal(t, once, s.Snapshot())
	assert.Equal(t, 1, s.Len())
}

func TestUpsertIgnoresLowerVersion(t *testing.T) {
	s := New(domain.KindEnrollment)
	require.True(t, s.Upsert(enrollment("E1", domain.EnrollmentStatusApproved, 5)))

	assert.False(t, s.Upsert(enrollment("E1", domain.EnrollmentStatusRejected, 4)))

	got, ok := s.Get("E1")
	require.True(t, ok)
	assert.Equal(t, domain.EnrollmentStatusApproved, got.Status)
	assert.Equal(t, int64(5), got.Version)
}

func TestUpsertTieFavorsIncoming(t *testing.T) {
	s := New(domain.KindEnrollment)
	s.Upsert(enrollment("E1", domain.EnrollmentStatusPending, 3))
	require.True(t, s.Upsert(enrollment("E1", domain.EnrollmentStatusCancelled, 3)))

	got, _ := s.Get("E1")
	assert.Equal(t, domain.EnrollmentStatusCancelled, got.Status)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := New(domain.KindStaff)
	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	assert.False(t, s.Remove("missing"))
	s.Upsert(domain.Record{ID: "S1", Version: 1})
	assert.True(t, s.Remove("S1"))
	assert.False(t, s.Remove("S1"))

	require.Len(t, changes, 2)
	assert.Equal(t, ReasonUpsert, changes[0].Reason)
	assert.Equal(t, ReasonRemove, changes[1].Reason)
	_, ok := s.Get("S1")
	assert.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(domain.KindEnrollment)
	s.Upsert(enrollment("E1", domain.EnrollmentStatusPending, 1))

	got, _ := s.Get("E1")
	got.Fields[domain.FieldStudentName] = "mutated"
	got.Status = domain.EnrollmentStatusApproved

	again, _ := s.Get("E1")
	assert.Equal(t, "student E1", again.Fields[domain.FieldStudentName])
	assert.Equal(t, domain.EnrollmentStatusPending, again.Status)
}

func TestSnapshotIsImmutable(t *testing.T) {
	s := New(domain.KindEnrollment)
	s.Upsert(enrollment("E1", domain.EnrollmentStatusPending, 1))

	snap := s.Snapshot()
	s.Upsert(enrollment("E1", domain.EnrollmentStatusApproved, 2))

	assert.Equal(t, domain.EnrollmentStatusPending, snap["E1"].Status)
	assert.Equal(t, int64(1), snap["E1"].Version)
}

func TestNotifyOncePerWrite(t *testing.T) {
	s := New(domain.KindEnrollment)
	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	s.Upsert(enrollment("E1", domain.EnrollmentStatusPending, 1))
	s.Upsert(enrollment("E1", domain.EnrollmentStatusPending, 0)) // stale, no change
	seq := s.BeginFetch()
	s.ReplaceAll(seq, []domain.Record{enrollment("E1", domain.EnrollmentStatusPending, 2), enrollment("E2", domain.EnrollmentStatusPending, 1)})

	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Revision)
	assert.Equal(t, []string{"E1"}, got[0].IDs)
	assert.Equal(t, ReasonReplace, got[1].Reason)
	assert.Nil(t, got[1].IDs)
	assert.Equal(t, uint64(2), s.Revision())

	unsubscribe()
	s.Remove("E2")
	assert.Len(t, got, 2)
}

func TestReplaceAllDropsStaleResponse(t *testing.T) {
	s := New(domain.KindEnrollment)
	older := s.BeginFetch()
	newer := s.BeginFetch()

	require.True(t, s.ReplaceAll(newer, []domain.Record{enrollment("E2", domain.EnrollmentStatusApproved, 1)}))
	assert.False(t, s.ReplaceAll(older, []domain.Record{enrollment("E1", domain.EnrollmentStatusPending, 1)}))

	_, ok := s.Get("E1")
	assert.False(t, ok)
	_, ok = s.Get("E2")
	assert.True(t, ok)
}

func TestReplaceAllPreservesPendingRecords(t *testing.T) {
	s := New(domain.KindEnrollment)
	optimistic := enrollment("E1", domain.EnrollmentStatusApproved, 4)
	optimistic.PendingMutationID = pendingID()
	s.Upsert(optimistic)
	s.Upsert(enrollment("E9", domain.EnrollmentStatusPending, 1))

	s.ReplaceAll(s.BeginFetch(), []domain.Record{enrollment("E1", domain.EnrollmentStatusPending, 4)})

	got, ok := s.Get("E1")
	require.True(t, ok)
	assert.True(t, got.Pending())
	assert.Equal(t, domain.EnrollmentStatusApproved, got.Status)

	_, ok = s.Get("E9")
	assert.False(t, ok, "records excluded from the fetch are removed")
}

func TestReplaceAllKeepsPendingRecordMissingFromFetch(t *testing.T) {
	s := New(domain.KindEnrollment)
	optimistic := enrollment("E1", domain.EnrollmentStatusApproved, 2)
	optimistic.PendingMutationID = pendingID()
	s.Upsert(optimistic)

	s.ReplaceAll(s.BeginFetch(), nil)

	got, ok := s.Get("E1")
	require.True(t, ok)
	assert.True(t, got.Pending())
}

func TestReplaceAllHigherVersionClearsPending(t *testing.T) {
	s := New(domain.KindEnrollment)
	optimistic := enrollment("E1", domain.EnrollmentStatusApproved, 4)
	optimistic.PendingMutationID = pendingID()
	s.Upsert(optimistic)

	s.ReplaceAll(s.BeginFetch(), []domain.Record{enrollment("E1", domain.EnrollmentStatusRejected, 7)})

	got, _ := s.Get("E1")
	assert.False(t, got.Pending())
	assert.Equal(t, domain.EnrollmentStatusRejected, got.Status)
	assert.Equal(t, int64(7), got.Version)
}

func TestReplaceAllVersionRules(t *testing.T) {
	s := New(domain.KindEnrollment)
	s.Upsert(enrollment("E1", domain.EnrollmentStatusApproved, 5))
	s.Upsert(enrollment("E2", domain.EnrollmentStatusPending, 2))

	s.ReplaceAll(s.BeginFetch(), []domain.Record{
		enrollment("E1", domain.EnrollmentStatusPending, 3),
		enrollment("E2", domain.EnrollmentStatusRejected, 0),
		enrollment("E3", domain.EnrollmentStatusPending, 0),
	})

	e1, _ := s.Get("E1")
	assert.Equal(t, domain.EnrollmentStatusApproved, e1.Status, "lower version keeps the held record")
	assert.Equal(t, int64(5), e1.Version)

	e2, _ := s.Get("E2")
	assert.Equal(t, domain.EnrollmentStatusRejected, e2.Status)
	assert.Equal(t, int64(3), e2.Version, "unversioned records are stamped above the held version")

	e3, _ := s.Get("E3")
	assert.Equal(t, int64(1), e3.Version)
	assert.Equal(t, domain.KindEnrollment, e3.Kind)
}

func TestMutateWritesVerbatim(t *testing.T) {
	s := New(domain.KindEnrollment)
	s.Upsert(enrollment("E1", domain.EnrollmentStatusApproved, 5))
	pre := enrollment("E1", domain.EnrollmentStatusPending, 2)

	_, wrote := s.Mutate("E1", func(cur domain.Record, exists bool) (domain.Record, bool) {
		require.True(t, exists)
		return pre, true
	})
	require.True(t, wrote)

	got, _ := s.Get("E1")
	assert.Equal(t, pre, got)

	_, wrote = s.Mutate("E1", func(domain.Record, bool) (domain.Record, bool) {
		return domain.Record{}, false
	})
	assert.False(t, wrote)
}

func TestListOrderedByID(t *testing.T) {
	s := New(domain.KindStaff)
	for _, id := range []string{"c", "a", "b"} {
		s.Upsert(domain.Record{ID: id, Version: 1})
	}
	ids := []string{}
	for _, r := range s.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestPanickingMutateFuncLeavesStoreUsable(t *testing.T) {
	s := New(domain.KindEnrollment)
	s.Upsert(enrollment("X", domain.EnrollmentStatusPending, 1))
	rev := s.Revision()

	assert.Panics(t, func() {
		s.Mutate("X", func(domain.Record, bool) (domain.Record, bool) { panic("boom") })
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := s.Get("X")
		assert.True(t, ok)
		assert.True(t, s.Upsert(enrollment("X", domain.EnrollmentStatusApproved, 2)))
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("store locked after a panicking mutate func")
	}
	assert.Equal(t, rev+1, s.Revision())
}
