package resumes

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"internship-portal/internal/shared/storage/object"
	"internship-portal/internal/shared/telemetry"
)

const mimePDF = "application/pdf"

// Service stores uploaded resumes and answers ownership lookups.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
	Now   func() time.Time
}

// Upload saves a PDF to object storage and records the resume for ownerID.
func (s *Service) Upload(ctx context.Context, ownerID, title, fileName string, r io.Reader) (Resume, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(fileName) == "" {
		return Resume{}, ErrInvalidInput
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return Resume{}, fmt.Errorf("%w: only PDF resumes are accepted", ErrInvalidInput)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, ownerID, fileName, r)
	if err != nil {
		return Resume{}, fmt.Errorf("save resume: %w", err)
	}
	if mimeType != mimePDF {
		telemetry.Warn("resume.upload.mime_mismatch", map[string]any{
			"owner_id":  ownerID,
			"mime_type": mimeType,
			"size":      size,
		})
	}

	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	resume := Resume{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(title),
		FilePath:  storageKey,
		CreatedAt: s.now(),
	}
	if err := s.Repo.Create(ctx, resume); err != nil {
		return Resume{}, fmt.Errorf("create resume: %w", err)
	}

	telemetry.Info("resume.uploaded", map[string]any{
		"resume_id": resume.ID,
		"owner_id":  ownerID,
		"size":      size,
	})
	return resume, nil
}

// Get returns a resume by id without an ownership check.
func (s *Service) Get(ctx context.Context, resumeID string) (Resume, error) {
	return s.Repo.GetByID(ctx, resumeID)
}

// GetOwned returns the resume only when ownerID owns it. Foreign resumes report
// ErrNotFound so callers cannot tell whether another user's id exists.
func (s *Service) GetOwned(ctx context.Context, resumeID, ownerID string) (Resume, error) {
	r, err := s.Repo.GetByID(ctx, resumeID)
	if err != nil {
		return Resume{}, err
	}
	if r.OwnerID != ownerID {
		return Resume{}, ErrNotFound
	}
	return r, nil
}

// List returns the owner's resumes, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Resume, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
