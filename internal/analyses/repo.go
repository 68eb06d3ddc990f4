package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analysis records.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, analysisID string) (Record, error)
	// ListByResume returns records newest-created first.
	ListByResume(ctx context.Context, resumeID string) ([]Record, error)
	MarkSuccess(ctx context.Context, analysisID string, res Result, analyzedAt time.Time) error
	MarkFailed(ctx context.Context, analysisID, message string, analyzedAt time.Time) error
	// ResetPending moves a record back to pending and clears result, error, and analyzed-at in one write.
	ResetPending(ctx context.Context, analysisID string, enqueuedAt time.Time) (Record, error)
	// LatestSuccessful returns the success record with the newest analyzed-at.
	LatestSuccessful(ctx context.Context, resumeID string) (Record, error)
	// ListStalePending returns pending records enqueued before cutoff, oldest first.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Record, error)
}
