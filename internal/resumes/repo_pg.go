package resumes

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, resume Resume) error {
	const query = `
INSERT INTO resumes (id, user_id, title, file_path, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query,
		resume.ID,
		resume.OwnerID,
		resume.Title,
		resume.FilePath,
		resume.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	// resumes.id is a uuid column; a malformed id cannot match a row.
	if _, err := uuid.Parse(resumeID); err != nil {
		return Resume{}, ErrNotFound
	}
	const query = `
SELECT id, user_id, title, file_path, created_at
FROM resumes
WHERE id = $1`
	var resume Resume
	err := r.DB.QueryRowContext(ctx, query, resumeID).Scan(
		&resume.ID,
		&resume.OwnerID,
		&resume.Title,
		&resume.FilePath,
		&resume.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return resume, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Resume, error) {
	const query = `
SELECT id, user_id, title, file_path, created_at
FROM resumes
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Resume, 0)
	for rows.Next() {
		var resume Resume
		if err := rows.Scan(&resume.ID, &resume.OwnerID, &resume.Title, &resume.FilePath, &resume.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, resume)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
