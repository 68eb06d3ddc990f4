package analyses

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const (
	analysisOne = "6f1c2d3e-4a5b-4c6d-8e7f-0a1b2c3d4e01"
	analysisTwo = "6f1c2d3e-4a5b-4c6d-8e7f-0a1b2c3d4e02"
	resumeOne   = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c01"
	missingID   = "00000000-0000-4000-8000-000000000000"
)

var recordCols = []string{
	"id", "resume_id", "status", "score", "strengths", "missing_skills", "suggestions",
	"error_message", "analyzed_at", "enqueued_at", "created_at",
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)
	rec := Record{ID: analysisOne, ResumeID: resumeOne, Status: StatusPending, CreatedAt: created}

	mock.ExpectExec("INSERT INTO resume_analysis").
		WithArgs(analysisOne, resumeOne, StatusPending, created, created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScansSuccess(t *testing.T) {
	repo, mock := newMockRepo(t)
	analyzed := time.Date(2026, time.April, 2, 9, 5, 0, 0, time.UTC)
	created := analyzed.Add(-5 * time.Minute)
	rows := sqlmock.NewRows(recordCols).AddRow(
		analysisOne, resumeOne, StatusSuccess, int64(77),
		[]byte(`["clear structure","projects"]`), []byte(`[]`), []byte(`["add metrics"]`),
		nil, analyzed, created, created,
	)
	mock.ExpectQuery("FROM resume_analysis").WithArgs(analysisOne).WillReturnRows(rows)

	rec, err := repo.GetByID(context.Background(), analysisOne)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.Score == nil || *rec.Score != 77 {
		t.Fatalf("unexpected score %v", rec.Score)
	}
	if len(rec.Strengths) != 2 || rec.MissingSkills == nil || len(rec.MissingSkills) != 0 {
		t.Fatalf("unexpected lists %+v", rec)
	}
	if rec.ErrorMessage != nil || rec.AnalyzedAt == nil || !rec.AnalyzedAt.Equal(analyzed) {
		t.Fatalf("unexpected terminal fields %+v", rec)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM resume_analysis").WithArgs(missingID).WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), missingID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoMarkSuccessEncodesLists(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, time.April, 2, 9, 5, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE resume_analysis").
		WithArgs(analysisOne, 64, `["a"]`, `[]`, `["b","c"]`, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkSuccess(context.Background(), analysisOne, Result{Score: 64, Strengths: []string{"a"}, Suggestions: []string{"b", "c"}}, at)
	if err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkFailedMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()
	mock.ExpectExec("UPDATE resume_analysis").
		WithArgs(missingID, "Resume not found", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkFailed(context.Background(), missingID, "Resume not found", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoResetPendingReturnsClearedRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, time.April, 3, 8, 0, 0, 0, time.UTC)
	created := at.Add(-24 * time.Hour)
	rows := sqlmock.NewRows(recordCols).AddRow(
		analysisOne, resumeOne, StatusPending, nil, nil, nil, nil, nil, nil, at, created,
	)
	mock.ExpectQuery("UPDATE resume_analysis").WithArgs(analysisOne, at).WillReturnRows(rows)

	rec, err := repo.ResetPending(context.Background(), analysisOne, at)
	if err != nil {
		t.Fatalf("ResetPending: %v", err)
	}
	if rec.Status != StatusPending || rec.Score != nil || rec.Strengths != nil || rec.AnalyzedAt != nil {
		t.Fatalf("expected cleared record, got %+v", rec)
	}
	if !rec.EnqueuedAt.Equal(at) || !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps %+v", rec)
	}
}

func TestPGRepoListByResume(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, time.April, 3, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(recordCols).
		AddRow(analysisTwo, resumeOne, StatusFailed, nil, nil, nil, nil, "AI analysis failed", now, now, now).
		AddRow(analysisOne, resumeOne, StatusPending, nil, nil, nil, nil, nil, nil, now.Add(-time.Hour), now.Add(-time.Hour))
	mock.ExpectQuery("ORDER BY created_at DESC").WithArgs(resumeOne).WillReturnRows(rows)

	got, err := repo.ListByResume(context.Background(), resumeOne)
	if err != nil {
		t.Fatalf("ListByResume: %v", err)
	}
	if len(got) != 2 || got[0].ID != analysisTwo || got[0].ErrorMessage == nil {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestPGRepoListStalePending(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2026, time.April, 3, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("status = 'pending' AND enqueued_at < \\$1").
		WithArgs(cutoff, 100).
		WillReturnRows(sqlmock.NewRows(recordCols))

	got, err := repo.ListStalePending(context.Background(), cutoff, 0)
	if err != nil {
		t.Fatalf("ListStalePending: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no rows, got %d", len(got))
	}
}

// A nil DB proves the id check runs before any query is built.
func TestPGRepoMalformedIDsNeverReachDatabase(t *testing.T) {
	repo := &PGRepo{}
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"not-a-uuid", "", "1; DROP TABLE resume_analysis"} {
		t.Run(id, func(t *testing.T) {
			if _, err := repo.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetByID err = %v", err)
			}
			if _, err := repo.ResetPending(ctx, id, now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("ResetPending err = %v", err)
			}
			if _, err := repo.LatestSuccessful(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("LatestSuccessful err = %v", err)
			}
			if err := repo.MarkSuccess(ctx, id, Result{Score: 50}, now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("MarkSuccess err = %v", err)
			}
			if err := repo.MarkFailed(ctx, id, "boom", now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("MarkFailed err = %v", err)
			}
			got, err := repo.ListByResume(ctx, id)
			if err != nil || len(got) != 0 {
				t.Fatalf("ListByResume = %v, %v; want empty", got, err)
			}
		})
	}
}
