package exports

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectExport = `
SELECT id, assessment_id, org_id, status, storage_key, size_bytes, error_message,
       created_at, started_at, completed_at, updated_at
FROM exports`

func (r *PGRepo) Create(ctx context.Context, e Export) error {
	const query = `
INSERT INTO exports (id, assessment_id, org_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query, e.ID, e.AssessmentID, e.OrgID, e.Status, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, exportID string) (Export, error) {
	return scanExport(r.DB.QueryRowContext(ctx, selectExport+`
WHERE id = $1
LIMIT 1`, exportID))
}

func (r *PGRepo) GetForOrg(ctx context.Context, orgID, exportID string) (Export, error) {
	return scanExport(r.DB.QueryRowContext(ctx, selectExport+`
WHERE id = $1 AND org_id = $2
LIMIT 1`, exportID, orgID))
}

func (r *PGRepo) MarkProcessing(ctx context.Context, exportID string, startedAt time.Time) error {
	const query = `
UPDATE exports
SET status = $2, started_at = $3, error_message = NULL, updated_at = $3
WHERE id = $1`
	return r.exec(ctx, query, exportID, StatusProcessing, startedAt)
}

func (r *PGRepo) MarkCompleted(ctx context.Context, exportID, storageKey string, sizeBytes int64, completedAt time.Time) error {
	const query = `
UPDATE exports
SET status = $2, storage_key = $3, size_bytes = $4, completed_at = $5, updated_at = $5
WHERE id = $1`
	return r.exec(ctx, query, exportID, StatusCompleted, storageKey, sizeBytes, completedAt)
}

func (r *PGRepo) MarkFailed(ctx context.Context, exportID, message string, failedAt time.Time) error {
	const query = `
UPDATE exports
SET status = $2, error_message = $3, completed_at = $4, updated_at = $4
WHERE id = $1`
	return r.exec(ctx, query, exportID, StatusFailed, message, failedAt)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExport(row *sql.Row) (Export, error) {
	var e Export
	var storageKey, errorMessage sql.NullString
	var sizeBytes sql.NullInt64
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&e.ID, &e.AssessmentID, &e.OrgID, &e.Status, &storageKey, &sizeBytes, &errorMessage,
		&e.CreatedAt, &startedAt, &completedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Export{}, ErrNotFound
	}
	if err != nil {
		return Export{}, err
	}
	e.StorageKey = storageKey.String
	e.SizeBytes = sizeBytes.Int64
	e.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		t := startedAt.Time
		e.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	return e, nil
}

var _ Repo = (*PGRepo)(nil)
