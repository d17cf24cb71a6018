package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fabio1shot/card-price-extractor/internal/model"
)

// ErrNotFound is returned when a record doesn't exist.
var ErrNotFound = errors.New("not found")

// BatchRepository persists finished batch runs and their entries.
type BatchRepository interface {
	Create(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, id string) (*model.Report, error)
	List(ctx context.Context, limit int) ([]model.Report, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status model.RunStatus) (int64, error)
}

type sqliteBatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a SQLite-backed BatchRepository.
func NewBatchRepository(db *sqlx.DB) BatchRepository {
	return &sqliteBatchRepository{db: db}
}

type entryRow struct {
	RunID    string `db:"run_id"`
	Position int    `db:"position"`
	CardName string `db:"card_name"`
	Price    string `db:"price"`
}

// Create stores the run and its entries in one transaction.
func (r *sqliteBatchRepository) Create(ctx context.Context, report *model.Report) error {
	if report.ID == "" {
		return fmt.Errorf("creating batch run: missing id")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO batch_runs (id, source, status, total, succeeded, not_found, failed, started_at, finished_at)
		VALUES (:id, :source, :status, :total, :succeeded, :not_found, :failed, :started_at, :finished_at)
	`, report)
	if err != nil {
		return fmt.Errorf("creating batch run: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO batch_entries (run_id, position, card_name, price)
		VALUES (:run_id, :position, :card_name, :price)
	`)
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i, entry := range report.Entries {
		row := entryRow{RunID: report.ID, Position: i, CardName: entry.CardName, Price: entry.Price}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("creating entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch run: %w", err)
	}
	return nil
}

const runColumns = "id, source, status, total, succeeded, not_found, failed, started_at, finished_at"

func (r *sqliteBatchRepository) GetByID(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	err := r.db.GetContext(ctx, &report, "SELECT "+runColumns+" FROM batch_runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting batch run %s: %w", id, err)
	}

	report.Entries = []model.ResultEntry{}
	err = r.db.SelectContext(ctx, &report.Entries,
		"SELECT card_name, price FROM batch_entries WHERE run_id = ? ORDER BY position ASC", id)
	if err != nil {
		return nil, fmt.Errorf("getting entries for %s: %w", id, err)
	}

	return &report, nil
}

// List returns the most recent runs without their entries.
func (r *sqliteBatchRepository) List(ctx context.Context, limit int) ([]model.Report, error) {
	reports := []model.Report{}
	err := r.db.SelectContext(ctx, &reports,
		"SELECT "+runColumns+" FROM batch_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing batch runs: %w", err)
	}
	return reports, nil
}

func (r *sqliteBatchRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM batch_runs")
	return count, err
}

func (r *sqliteBatchRepository) CountByStatus(ctx context.Context, status model.RunStatus) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM batch_runs WHERE status = ?", status)
	return count, err
}
