package dto

import (
	"time"

	"github.com/spec-kit/campus-console/internal/mutation"
	"github.com/spec-kit/campus-console/internal/notification"
)

// NotificationResponse is one entry of the notification stack.
type NotificationResponse struct {
	Handle    string            `json:"handle"`
	Message   string            `json:"message"`
	Kind      notification.Kind `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// NewNotificationResponse maps a notification.
func NewNotificationResponse(n notification.Notification) NotificationResponse {
	return NotificationResponse{
		Handle:    n.Handle.String(),
		Message:   n.Message,
		Kind:      n.Kind,
		CreatedAt: n.CreatedAt,
		ExpiresAt: n.ExpiresAt,
	}
}

// MutationListQuery filters the mutation journal.
type MutationListQuery struct {
	Kind  string `query:"kind" validate:"omitempty,oneof=enrollment staff"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// MutationResponse is one journal entry.
type MutationResponse struct {
	MutationID string           `json:"mutation_id"`
	EntityID   string           `json:"entity_id"`
	Kind       string           `json:"kind"`
	Label      string           `json:"label"`
	Outcome    mutation.Outcome `json:"outcome"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMS int64            `json:"duration_ms"`
}

// NewMutationResponse maps a journal entry.
func NewMutationResponse(e mutation.Entry) MutationResponse {
	return MutationResponse{
		MutationID: e.MutationID.String(),
		EntityID:   e.EntityID,
		Kind:       string(e.Kind),
		Label:      e.Label,
		Outcome:    e.Outcome,
		Error:      e.Error,
		StartedAt:  e.StartedAt,
		DurationMS: e.Duration.Milliseconds(),
	}
}
