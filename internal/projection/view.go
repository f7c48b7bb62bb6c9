package projection

import (
	"sync"

	"github.com/spec-kit/campus-console/internal/domain"
)

// Source is the read-only side of a store.
type Source interface {
	Revision() uint64
	List() []domain.Record
}

// View memoizes the last projection of a source. It recomputes only when the
// source revision or the filter changes.
type View struct {
	src Source

	mu       sync.Mutex
	valid    bool
	revision uint64
	key      string
	result   []domain.Record
}

// NewView wraps src.
func NewView(src Source) *View {
	return &View{src: src}
}

// Project returns the projection of the current source state under f.
func (v *View) Project(f Filter) []domain.Record {
	v.mu.Lock()
	defer v.mu.Unlock()

	rev := v.src.Revision()
	key := f.Key()
	if !v.valid || rev != v.revision || key != v.key {
		v.result = Project(v.src.List(), f)
		v.revision = rev
		v.key = key
		v.valid = true
	}
	out := make([]domain.Record, len(v.result))
	for i, r := range v.result {
		out[i] = r.Clone()
	}
	return out
}
