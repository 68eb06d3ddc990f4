package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const recordColumns = `id, resume_id, status, score, strengths, missing_skills, suggestions,
       error_message, analyzed_at, enqueued_at, created_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// isUUID reports whether id can be compared with a uuid column. Anything else
// would fail with invalid_text_representation rather than match no row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO resume_analysis (id, resume_id, status, enqueued_at, created_at)
VALUES ($1, $2, $3, $4, $5)`
	enqueuedAt := rec.EnqueuedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = rec.CreatedAt
	}
	_, err := r.DB.ExecContext(ctx, query, rec.ID, rec.ResumeID, rec.Status, enqueuedAt, rec.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Record, error) {
	if !isUUID(analysisID) {
		return Record{}, ErrNotFound
	}
	query := `
SELECT ` + recordColumns + `
FROM resume_analysis
WHERE id = $1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, analysisID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *PGRepo) ListByResume(ctx context.Context, resumeID string) ([]Record, error) {
	if !isUUID(resumeID) {
		return []Record{}, nil
	}
	query := `
SELECT ` + recordColumns + `
FROM resume_analysis
WHERE resume_id = $1
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, resumeID)
}

func (r *PGRepo) MarkSuccess(ctx context.Context, analysisID string, res Result, analyzedAt time.Time) error {
	if !isUUID(analysisID) {
		return ErrNotFound
	}
	const query = `
UPDATE resume_analysis
SET status = 'success',
    score = $2,
    strengths = $3::jsonb,
    missing_skills = $4::jsonb,
    suggestions = $5::jsonb,
    error_message = NULL,
    analyzed_at = $6
WHERE id = $1`
	strengths, err := marshalList(res.Strengths)
	if err != nil {
		return err
	}
	missing, err := marshalList(res.MissingSkills)
	if err != nil {
		return err
	}
	suggestions, err := marshalList(res.Suggestions)
	if err != nil {
		return err
	}
	return r.exec(ctx, query, analysisID, res.Score, strengths, missing, suggestions, analyzedAt)
}

func (r *PGRepo) MarkFailed(ctx context.Context, analysisID, message string, analyzedAt time.Time) error {
	if !isUUID(analysisID) {
		return ErrNotFound
	}
	const query = `
UPDATE resume_analysis
SET status = 'failed',
    score = NULL,
    strengths = NULL,
    missing_skills = NULL,
    suggestions = NULL,
    error_message = $2,
    analyzed_at = $3
WHERE id = $1`
	return r.exec(ctx, query, analysisID, message, analyzedAt)
}

func (r *PGRepo) ResetPending(ctx context.Context, analysisID string, enqueuedAt time.Time) (Record, error) {
	if !isUUID(analysisID) {
		return Record{}, ErrNotFound
	}
	query := `
UPDATE resume_analysis
SET status = 'pending',
    score = NULL,
    strengths = NULL,
    missing_skills = NULL,
    suggestions = NULL,
    error_message = NULL,
    analyzed_at = NULL,
    enqueued_at = $2
WHERE id = $1
RETURNING ` + recordColumns
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, analysisID, enqueuedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *PGRepo) LatestSuccessful(ctx context.Context, resumeID string) (Record, error) {
	if !isUUID(resumeID) {
		return Record{}, ErrNotFound
	}
	query := `
SELECT ` + recordColumns + `
FROM resume_analysis
WHERE resume_id = $1 AND status = 'success'
ORDER BY analyzed_at DESC NULLS LAST, created_at DESC, id DESC
LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, resumeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *PGRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
SELECT ` + recordColumns + `
FROM resume_analysis
WHERE status = 'pending' AND enqueued_at < $1
ORDER BY enqueued_at ASC, id ASC
LIMIT $2`
	return r.list(ctx, query, cutoff, limit)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var score sql.NullInt64
	var strengths, missing, suggestions []byte
	var errorMessage sql.NullString
	var analyzedAt sql.NullTime
	err := row.Scan(
		&rec.ID,
		&rec.ResumeID,
		&rec.Status,
		&score,
		&strengths,
		&missing,
		&suggestions,
		&errorMessage,
		&analyzedAt,
		&rec.EnqueuedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	if score.Valid {
		v := int(score.Int64)
		rec.Score = &v
	}
	if rec.Strengths, err = unmarshalList(strengths); err != nil {
		return Record{}, fmt.Errorf("decode strengths: %w", err)
	}
	if rec.MissingSkills, err = unmarshalList(missing); err != nil {
		return Record{}, fmt.Errorf("decode missing_skills: %w", err)
	}
	if rec.Suggestions, err = unmarshalList(suggestions); err != nil {
		return Record{}, fmt.Errorf("decode suggestions: %w", err)
	}
	if errorMessage.Valid {
		rec.ErrorMessage = &errorMessage.String
	}
	if analyzedAt.Valid {
		rec.AnalyzedAt = &analyzedAt.Time
	}
	return rec, nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Repo = (*PGRepo)(nil)
