// Package projection derives the filtered, ordered views shown by the console.
// Nothing here writes to the store.
package projection

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/campus-console/internal/domain"
)

// Sort keys that are not record fields.
const (
	SortByID        = "id"
	SortByStatus    = "status"
	SortByVersion   = "version"
	SortByCreatedAt = "createdAt"
)

// Filter holds the criteria of a projection. Empty criteria match everything;
// the rest are combined with AND.
type Filter struct {
	Statuses     []domain.Status
	Department   string
	Role         string
	Search       string
	SearchFields []string
	SortBy       string
	Descending   bool
}

// Key returns a stable string form of the filter, used for memoization.
func (f Filter) Key() string {
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	sort.Strings(statuses)
	return fmt.Sprintf("s=%s|d=%s|r=%s|q=%s|f=%s|o=%s|desc=%t",
		strings.Join(statuses, ","), f.Department, f.Role,
		strings.ToLower(strings.TrimSpace(f.Search)),
		strings.Join(f.SearchFields, ","), f.SortBy, f.Descending)
}

// Project returns the records matching f in the requested order. Ties are
// broken by ascending id. The input slice and its records are not modified.
func Project(records []domain.Record, f Filter) []domain.Record {
	statuses := make(map[domain.Status]struct{}, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses[s] = struct{}{}
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if len(statuses) > 0 {
			if _, ok := statuses[r.Status]; !ok {
				continue
			}
		}
		if f.Department != "" && !strings.EqualFold(r.StringField(domain.FieldDepartment), f.Department) {
			continue
		}
		if f.Role != "" && !hasRole(r, f.Role) {
			continue
		}
		if needle != "" && !matches(r, f.SearchFields, needle) {
			continue
		}
		out = append(out, r.Clone())
	}

	sortKey := f.SortBy
	if sortKey == "" {
		sortKey = SortByID
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(sortValue(out[i], sortKey), sortValue(out[j], sortKey))
		if c != 0 {
			if f.Descending {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func hasRole(r domain.Record, role string) bool {
	switch roles := r.Field(domain.FieldRoles).(type) {
	case []domain.RoleRef:
		for _, ref := range roles {
			if strings.EqualFold(ref.ID, role) || strings.EqualFold(ref.Name, role) {
				return true
			}
		}
	case []string:
		for _, name := range roles {
			if strings.EqualFold(name, role) {
				return true
			}
		}
	}
	return false
}

func matches(r domain.Record, fields []string, needle string) bool {
	for _, name := range fields {
		if s, ok := r.Field(name).(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func sortValue(r domain.Record, key string) any {
	switch key {
	case SortByID:
		return r.ID
	case SortByStatus:
		return string(r.Status)
	case SortByVersion:
		return r.Version
	case SortByCreatedAt:
		if !r.CreatedAt.IsZero() {
			return r.CreatedAt
		}
		return r.Field(domain.FieldCreatedAt)
	default:
		return r.Field(key)
	}
}

// compare orders values of mixed dynamic types. Missing values sort first.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b)))
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
