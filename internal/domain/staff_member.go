package domain

import "time"

// Field names used by staff records. FieldDepartment is shared with enrollments.
const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldTitle = "title"
	FieldRoles = "roles"
	FieldPhone = "phone"
)

// RoleRef is a weak reference to a role granted to a staff member.
type RoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StaffMember is the typed view of a staff directory record.
type StaffMember struct {
	ID         string
	Name       string
	Email      string
	Title      string
	Department string
	Phone      string
	Roles      []RoleRef
	Status     Status
	CreatedAt  time.Time
	Version    int64
	Pending    bool
}

// HasRole reports whether the member holds a role with the given id or name.
func (s StaffMember) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r.ID == role || r.Name == role {
			return true
		}
	}
	return false
}

// Record converts the view into a store record.
func (s StaffMember) Record() Record {
	fields := map[string]any{
		FieldName:       s.Name,
		FieldEmail:      s.Email,
		FieldTitle:      s.Title,
		FieldDepartment: s.Department,
		FieldPhone:      s.Phone,
		FieldRoles:      append([]RoleRef(nil), s.Roles...),
	}
	return Record{
		ID:        s.ID,
		Kind:      KindStaff,
		Status:    s.Status,
		Fields:    fields,
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
	}
}

// StaffMemberFromRecord builds the typed view of a record.
func StaffMemberFromRecord(r Record) StaffMember {
	s := StaffMember{
		ID:         r.ID,
		Name:       r.StringField(FieldName),
		Email:      r.StringField(FieldEmail),
		Title:      r.StringField(FieldTitle),
		Department: r.StringField(FieldDepartment),
		Phone:      r.StringField(FieldPhone),
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		Version:    r.Version,
		Pending:    r.Pending(),
	}
	if roles, ok := r.Field(FieldRoles).([]RoleRef); ok {
		s.Roles = append([]RoleRef(nil), roles...)
	}
	return s
}
