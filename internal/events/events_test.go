package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-console/internal/domain"
)

func TestDecodeEnvelope(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"enrollment-updated","room":"admin","version":4,"payload":{"enrollmentId":"E3","status":"REJECTED","action":"REJECT"}}`))
	require.NoError(t, err)
	assert.Equal(t, EnrollmentUpdated, ev.Name)
	assert.Equal(t, RoomAdmin, ev.Room)
	assert.Equal(t, int64(4), ev.Version)

	p, err := DecodePayload[EnrollmentUpdatedPayload](ev)
	require.NoError(t, err)
	assert.Equal(t, "E3", p.EnrollmentID)
	assert.Equal(t, domain.EnrollmentStatusRejected, p.Status)
	assert.Nil(t, p.Note)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`{nope`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode([]byte(`{"room":"admin"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEmptyPayloadDecodesToZero(t *testing.T) {
	ev, err := New(StaffUpdated, RoomAdmin, 0, nil)
	require.NoError(t, err)

	p, err := DecodePayload[StaffDeletedPayload](ev)
	require.NoError(t, err)
	assert.Empty(t, p.StaffID)
}

func TestEncodeRoundTrip(t *testing.T) {
	ev, err := New(StaffDeleted, RoomAdmin, 2, StaffDeletedPayload{StaffID: "S1"})
	require.NoError(t, err)
	raw, err := ev.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"staff-deleted","room":"admin","version":2,"payload":{"staffId":"S1"}}`, string(raw))
}

func TestRegistryOffRemovesExactSubscription(t *testing.T) {
	r := NewRegistry()
	var calls []string
	h := func(tag string) HandlerFunc {
		return func(context.Context, Event) error {
			calls = append(calls, tag)
			return nil
		}
	}
	first := r.On(StaffUpdated, h("a"))
	r.On(StaffUpdated, h("b"))
	// same function value registered twice is two subscriptions
	shared := h("c")
	third := r.On(StaffUpdated, shared)
	r.On(StaffUpdated, shared)

	assert.True(t, r.Off(first))
	assert.False(t, r.Off(first))
	assert.True(t, r.Off(third))
	require.NoError(t, r.Publish(context.Background(), Event{Name: StaffUpdated}))

	assert.Equal(t, []string{"b", "c"}, calls)
	assert.Equal(t, 2, r.Count(StaffUpdated))
}

func TestRegistryPublishJoinsErrors(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	ran := false
	r.On(StaffDeleted, func(context.Context, Event) error { return boom })
	r.On(StaffDeleted, func(context.Context, Event) error { ran = true; return nil })

	err := r.Publish(context.Background(), Event{Name: StaffDeleted})
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran)
	assert.NoError(t, r.Publish(context.Background(), Event{Name: StaffCreated}))
}
