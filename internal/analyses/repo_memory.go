package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Record)}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.EnqueuedAt.IsZero() {
		rec.EnqueuedAt = rec.CreatedAt
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = cloneRecord(rec)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[analysisID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *MemoryRepo) ListByResume(ctx context.Context, resumeID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.filter(func(rec Record) bool { return rec.ResumeID == resumeID })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) MarkSuccess(ctx context.Context, analysisID string, res Result, analyzedAt time.Time) error {
	return r.update(ctx, analysisID, func(rec *Record) {
		score := res.Score
		rec.Status = StatusSuccess
		rec.Score = &score
		rec.Strengths = append([]string(nil), res.Strengths...)
		rec.MissingSkills = append([]string(nil), res.MissingSkills...)
		rec.Suggestions = append([]string(nil), res.Suggestions...)
		rec.ErrorMessage = nil
		rec.AnalyzedAt = &analyzedAt
	})
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, analysisID, message string, analyzedAt time.Time) error {
	return r.update(ctx, analysisID, func(rec *Record) {
		msg := message
		rec.Status = StatusFailed
		rec.Score = nil
		rec.Strengths = nil
		rec.MissingSkills = nil
		rec.Suggestions = nil
		rec.ErrorMessage = &msg
		rec.AnalyzedAt = &analyzedAt
	})
}

func (r *MemoryRepo) ResetPending(ctx context.Context, analysisID string, enqueuedAt time.Time) (Record, error) {
	var out Record
	err := r.update(ctx, analysisID, func(rec *Record) {
		rec.Status = StatusPending
		rec.Score = nil
		rec.Strengths = nil
		rec.MissingSkills = nil
		rec.Suggestions = nil
		rec.ErrorMessage = nil
		rec.AnalyzedAt = nil
		rec.EnqueuedAt = enqueuedAt
		out = cloneRecord(*rec)
	})
	return out, err
}

func (r *MemoryRepo) LatestSuccessful(ctx context.Context, resumeID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	matches := r.filter(func(rec Record) bool {
		return rec.ResumeID == resumeID && rec.Status == StatusSuccess && rec.AnalyzedAt != nil
	})
	if len(matches) == 0 {
		return Record{}, ErrNotFound
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.AnalyzedAt.Equal(*b.AnalyzedAt) {
			return a.AnalyzedAt.After(*b.AnalyzedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return matches[0], nil
}

func (r *MemoryRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.filter(func(rec Record) bool {
		return rec.Status == StatusPending && rec.EnqueuedAt.Before(cutoff)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) filter(keep func(Record) bool) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0)
	for _, rec := range r.byID {
		if keep(rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	return out
}

func (r *MemoryRepo) update(ctx context.Context, analysisID string, apply func(*Record)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	apply(&rec)
	r.byID[analysisID] = rec
	return nil
}

func cloneRecord(rec Record) Record {
	if rec.Score != nil {
		score := *rec.Score
		rec.Score = &score
	}
	if rec.ErrorMessage != nil {
		msg := *rec.ErrorMessage
		rec.ErrorMessage = &msg
	}
	if rec.AnalyzedAt != nil {
		at := *rec.AnalyzedAt
		rec.AnalyzedAt = &at
	}
	rec.Strengths = cloneStrings(rec.Strengths)
	rec.MissingSkills = cloneStrings(rec.MissingSkills)
	rec.Suggestions = cloneStrings(rec.Suggestions)
	return rec
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

var _ Repo = (*MemoryRepo)(nil)
