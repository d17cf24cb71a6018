package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fabio1shot/card-price-extractor/internal/model"
)

// LookupRepository tracks every outbound card lookup.
type LookupRepository interface {
	Create(ctx context.Context, call *model.LookupCall) error
	Count(ctx context.Context) (int64, error)
	CountByOutcome(ctx context.Context, outcome model.LookupOutcome) (int64, error)
}

type sqliteLookupRepository struct {
	db *sqlx.DB
}

// NewLookupRepository creates a SQLite-backed LookupRepository.
func NewLookupRepository(db *sqlx.DB) LookupRepository {
	return &sqliteLookupRepository{db: db}
}

func (r *sqliteLookupRepository) Create(ctx context.Context, call *model.LookupCall) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO lookups (name, outcome, result_count, duration_ms, error)
		VALUES (:name, :outcome, :result_count, :duration_ms, :error)
	`, call)
	if err != nil {
		return fmt.Errorf("creating lookup record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteLookupRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM lookups")
	return count, err
}

func (r *sqliteLookupRepository) CountByOutcome(ctx context.Context, outcome model.LookupOutcome) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM lookups WHERE outcome = ?", outcome)
	return count, err
}
