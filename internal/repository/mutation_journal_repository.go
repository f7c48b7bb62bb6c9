package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/mutation"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// MutationJournalRepository stores settled mutation outcomes.
type MutationJournalRepository interface {
	mutation.Journal
	ListRecent(ctx context.Context, kind domain.Kind, limit int) ([]mutation.Entry, error)
}

type mutationJournalRepository struct {
	db DB
}

// NewMutationJournalRepository builds repository.
func NewMutationJournalRepository(db DB) MutationJournalRepository {
	return &mutationJournalRepository{db: db}
}

func (r *mutationJournalRepository) Append(ctx context.Context, e mutation.Entry) error {
	const query = `
        INSERT INTO mutation_outcomes (mutation_id, entity_kind, entity_id, label, outcome, error, started_at, duration_ms)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (mutation_id) DO NOTHING`
	_, err := r.db.Exec(ctx, query,
		e.MutationID,
		string(e.Kind),
		e.EntityID,
		e.Label,
		string(e.Outcome),
		e.Error,
		e.StartedAt,
		e.Duration.Milliseconds(),
	)
	return err
}

func (r *mutationJournalRepository) ListRecent(ctx context.Context, kind domain.Kind, limit int) ([]mutation.Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `
        SELECT mutation_id, entity_kind, entity_id, label, outcome, error, started_at, duration_ms
        FROM mutation_outcomes
        WHERE ($1 = '' OR entity_kind = $1)
        ORDER BY started_at DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []mutation.Entry
	for rows.Next() {
		var (
			e          mutation.Entry
			kindText   string
			outcome    string
			durationMS int64
		)
		if err := rows.Scan(
			&e.MutationID,
			&kindText,
			&e.EntityID,
			&e.Label,
			&outcome,
			&e.Error,
			&e.StartedAt,
			&durationMS,
		); err != nil {
			return nil, err
		}
		e.Kind = domain.Kind(kindText)
		e.Outcome = mutation.Outcome(outcome)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		result = append(result, e)
	}
	return result, rows.Err()
}
