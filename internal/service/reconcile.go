package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/store"
)

// reconcile replaces the store contents with a fresh listing. A response
// overtaken by a later fetch is dropped by the store; the returned bool says
// whether this one was applied.
func reconcile(ctx context.Context, st *store.EntityStore, fetch func(context.Context) ([]domain.Record, error)) (bool, error) {
	seq := st.BeginFetch()
	records, err := fetch(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch %s list: %w", st.Kind(), err)
	}
	return st.ReplaceAll(seq, records), nil
}
