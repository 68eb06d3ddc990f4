package analyses

import (
	"context"
	"time"

	"internship-portal/internal/queue"
	"internship-portal/internal/shared/telemetry"
)

const defaultSweepBatch = 100

// Sweeper republishes pending records whose queue message was probably lost,
// for example when the process died between the insert and the publish.
type Sweeper struct {
	Repo       Repo
	Queue      queue.Client
	StaleAfter time.Duration
	Interval   time.Duration
	Batch      int
	Now        func() time.Time
}

// Run sweeps every Interval until ctx is done. A zero Interval disables it.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.Interval <= 0 || s.Queue == nil {
		return nil
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				telemetry.Warn("sweeper.failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// SweepOnce republishes stale pending records and returns how many were sent.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	batch := s.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	stale, err := s.Repo.ListStalePending(ctx, now.Add(-s.StaleAfter), batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range stale {
		msg := queue.NewMessage(rec.ID, "", now, messageVersion)
		if err := s.Queue.Send(ctx, msg); err != nil {
			telemetry.Warn("sweeper.publish_failed", map[string]any{
				"analysis_id": rec.ID,
				"error":       err.Error(),
			})
			continue
		}
		sent++
	}
	if sent > 0 {
		telemetry.Info("sweeper.republished", map[string]any{"count": sent})
	}
	return sent, nil
}
