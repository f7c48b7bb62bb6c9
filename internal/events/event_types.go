package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/campus-console/internal/domain"
)

// Name identifies a push event.
type Name string

const (
	EnrollmentCreated       Name = "enrollment-created"
	EnrollmentUpdated       Name = "enrollment-updated"
	EnrollmentDropRequested Name = "enrollment-drop-requested"
	StaffCreated            Name = "staff-created"
	StaffUpdated            Name = "staff-updated"
	StaffStatusChanged      Name = "staff-status-changed"
	StaffDeleted            Name = "staff-deleted"
)

// RoomAdmin is the room joined by admin consoles.
const RoomAdmin = "admin"

// ErrMalformed is returned for envelopes that cannot be decoded.
var ErrMalformed = errors.New("malformed push event")

// Event is a push notification scoped to a room. Version is zero when the
// backend did not send one.
type Event struct {
	Name    Name            `json:"event"`
	Room    string          `json:"room"`
	Version int64           `json:"version,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a wire envelope.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.Name == "" {
		return Event{}, fmt.Errorf("%w: missing event name", ErrMalformed)
	}
	return ev, nil
}

// Encode renders the wire envelope.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// New builds an event with payload marshalled to JSON.
func New(name Name, room string, version int64, payload any) (Event, error) {
	ev := Event{Name: name, Room: room, Version: version}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

// DecodePayload unmarshals the payload of ev into T. An empty payload yields
// the zero value.
func DecodePayload[T any](ev Event) (T, error) {
	var out T
	if len(ev.Payload) == 0 || string(ev.Payload) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(ev.Payload, &out); err != nil {
		return out, fmt.Errorf("%w: %s payload: %v", ErrMalformed, ev.Name, err)
	}
	return out, nil
}

// EnrollmentCreatedPayload payload.
type EnrollmentCreatedPayload struct {
	EnrollmentID string `json:"enrollmentId"`
}

// EnrollmentUpdatedPayload payload.
type EnrollmentUpdatedPayload struct {
	EnrollmentID string        `json:"enrollmentId"`
	Status       domain.Status `json:"status"`
	Action       string        `json:"action,omitempty"`
	Note         *string       `json:"note,omitempty"`
}

// EnrollmentDropRequestedPayload payload.
type EnrollmentDropRequestedPayload struct {
	EnrollmentID string `json:"enrollmentId"`
}

// StaffDeletedPayload payload.
type StaffDeletedPayload struct {
	StaffID string `json:"staffId"`
}
