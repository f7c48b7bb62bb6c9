package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies one entity collection synchronized by the console.
type Kind string

const (
	KindEnrollment Kind = "enrollment"
	KindStaff      Kind = "staff"
)

// Status is a kind-specific lifecycle state.
type Status string

// Record is the store's unit of state for one server-owned entity.
type Record struct {
	ID                string
	Kind              Kind
	Status            Status
	Fields            map[string]any
	Version           int64
	PendingMutationID *uuid.UUID
	CreatedAt         time.Time
}

// Pending reports whether a local optimistic mutation awaits confirmation.
func (r Record) Pending() bool {
	return r.PendingMutationID != nil
}

// Field returns a field value or nil.
func (r Record) Field(name string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// StringField returns a field as a string, or "" when absent or not a string.
func (r Record) StringField(name string) string {
	s, _ := r.Field(name).(string)
	return s
}

// Clone returns a deep copy; nested maps and slices are copied too.
func (r Record) Clone() Record {
	out := r
	if r.Fields != nil {
		out.Fields = cloneMap(r.Fields)
	}
	if r.PendingMutationID != nil {
		id := *r.PendingMutationID
		out.PendingMutationID = &id
	}
	return out
}

// WithFields returns a clone with the given fields merged over the existing ones.
func (r Record) WithFields(delta map[string]any) Record {
	out := r.Clone()
	if len(delta) == 0 {
		return out
	}
	if out.Fields == nil {
		out.Fields = make(map[string]any, len(delta))
	}
	for k, v := range delta {
		out.Fields[k] = cloneValue(v)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case []RoleRef:
		return append([]RoleRef(nil), val...)
	default:
		return v
	}
}
