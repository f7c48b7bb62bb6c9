package domain

import "time"

// Field names used by enrollment records.
const (
	FieldStudentID   = "studentId"
	FieldStudentName = "studentName"
	FieldCourseCode  = "courseCode"
	FieldCourseTitle = "courseTitle"
	FieldDepartment  = "department"
	FieldAdvisor     = "advisor"
	FieldNote        = "note"
	FieldCredits     = "credits"
	FieldCreatedAt   = "createdAt"
)

// DecisionAction is an admin verdict on a pending enrollment.
type DecisionAction string

const (
	DecisionApprove DecisionAction = "APPROVE"
	DecisionReject  DecisionAction = "REJECT"
)

// Target returns the status a decision leads to.
func (a DecisionAction) Target() (Status, bool) {
	switch a {
	case DecisionApprove:
		return EnrollmentStatusApproved, true
	case DecisionReject:
		return EnrollmentStatusRejected, true
	default:
		return "", false
	}
}

// AdvisorRef is a weak reference to an advisor; the advisor record is owned elsewhere.
type AdvisorRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Enrollment is the typed view of an enrollment record.
type Enrollment struct {
	ID          string
	Status      Status
	StudentID   string
	StudentName string
	CourseCode  string
	CourseTitle string
	Department  string
	Advisor     *AdvisorRef
	Note        string
	Credits     int
	CreatedAt   time.Time
	Version     int64
	Pending     bool
}

// Record converts the view into a store record.
func (e Enrollment) Record() Record {
	fields := map[string]any{
		FieldStudentID:   e.StudentID,
		FieldStudentName: e.StudentName,
		FieldCourseCode:  e.CourseCode,
		FieldCourseTitle: e.CourseTitle,
		FieldDepartment:  e.Department,
		FieldNote:        e.Note,
		FieldCredits:     e.Credits,
	}
	if e.Advisor != nil {
		fields[FieldAdvisor] = *e.Advisor
	}
	return Record{
		ID:        e.ID,
		Kind:      KindEnrollment,
		Status:    e.Status,
		Fields:    fields,
		Version:   e.Version,
		CreatedAt: e.CreatedAt,
	}
}

// EnrollmentFromRecord builds the typed view of a record.
func EnrollmentFromRecord(r Record) Enrollment {
	e := Enrollment{
		ID:          r.ID,
		Status:      r.Status,
		StudentID:   r.StringField(FieldStudentID),
		StudentName: r.StringField(FieldStudentName),
		CourseCode:  r.StringField(FieldCourseCode),
		CourseTitle: r.StringField(FieldCourseTitle),
		Department:  r.StringField(FieldDepartment),
		Note:        r.StringField(FieldNote),
		CreatedAt:   r.CreatedAt,
		Version:     r.Version,
		Pending:     r.Pending(),
	}
	switch c := r.Field(FieldCredits).(type) {
	case int:
		e.Credits = c
	case float64:
		e.Credits = int(c)
	}
	if adv, ok := r.Field(FieldAdvisor).(AdvisorRef); ok {
		e.Advisor = &adv
	}
	return e
}
