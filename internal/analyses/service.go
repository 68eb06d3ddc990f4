package analyses

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"internship-portal/internal/extract"
	"internship-portal/internal/llm"
	"internship-portal/internal/queue"
	"internship-portal/internal/resumes"
	"internship-portal/internal/shared/metrics"
	"internship-portal/internal/shared/storage/object"
	"internship-portal/internal/shared/telemetry"
)

const (
	maxErrorMessageLen = 500
	messageVersion     = 1
)

// ResumeStore looks up resumes by id.
type ResumeStore interface {
	GetByID(ctx context.Context, resumeID string) (resumes.Resume, error)
}

// TextExtractor pulls plain text from a PDF on disk.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ResumeAnalyzer scores resume text.
type ResumeAnalyzer interface {
	Analyze(ctx context.Context, resumeText, targetRole string) (llm.Result, error)
}

// Service runs the analysis pipeline and answers ownership-checked queries.
type Service struct {
	Repo      Repo
	Resumes   ResumeStore
	Files     object.ObjectStore
	Extractor TextExtractor
	Analyzer  ResumeAnalyzer
	// Queue may be nil, in which case records stay pending until a sweeper or worker finds them.
	Queue      queue.Client
	TargetRole string
	// Validate screens extracted text before it is sent to the model. Defaults to extract.Validate.
	Validate func(text string) bool
	Now      func() time.Time
}

// Enqueue creates a pending record for resumeID and hands it to the queue.
func (s *Service) Enqueue(ctx context.Context, resumeID, requesterID string) (Record, error) {
	if _, err := s.ownedResume(ctx, resumeID, requesterID); err != nil {
		return Record{}, err
	}

	now := s.now()
	rec := Record{
		ID:         uuid.NewString(),
		ResumeID:   resumeID,
		Status:     StatusPending,
		CreatedAt:  now,
		EnqueuedAt: now,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("create analysis: %w", err)
	}
	metrics.IncAnalysisEnqueued()
	s.logTransition(ctx, rec, "none->"+StatusPending, nil)

	if err := s.publish(ctx, rec.ID, now); err != nil {
		return rec, err
	}
	return rec, nil
}

// Perform runs extraction and analysis for a record and stores the outcome.
// Every pipeline failure, including a panic, ends in a failed record; the
// returned error is non-nil only when the record is missing or the final
// write could not be stored.
func (s *Service) Perform(ctx context.Context, analysisID string) error {
	rec, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load analysis %s: %w", analysisID, err)
	}

	start := time.Now()
	res, pErr := s.runPipeline(ctx, rec)
	metrics.ObserveAnalysisDuration(time.Since(start))

	writeCtx, cancel := detached(ctx)
	defer cancel()
	analyzedAt := s.now()
	from := rec.Status

	if pErr != nil {
		msg := pErr.stored()
		if err := s.Repo.MarkFailed(writeCtx, rec.ID, msg, analyzedAt); err != nil {
			telemetry.Error("analysis.store_failed", map[string]any{
				"analysis_id": rec.ID,
				"status":      StatusFailed,
				"error":       err.Error(),
			})
			return fmt.Errorf("mark analysis %s failed: %w", rec.ID, err)
		}
		metrics.IncAnalysisCompleted(StatusFailed)
		metrics.IncAnalysisFailed(pErr.Code)
		fields := map[string]any{"failure_code": pErr.Code, "error": msg}
		if pErr.Err != nil {
			fields["cause"] = pErr.Err.Error()
		}
		s.logTransition(ctx, rec, from+"->"+StatusFailed, fields)
		return nil
	}

	if err := s.Repo.MarkSuccess(writeCtx, rec.ID, res, analyzedAt); err != nil {
		telemetry.Error("analysis.store_failed", map[string]any{
			"analysis_id": rec.ID,
			"status":      StatusSuccess,
			"error":       err.Error(),
		})
		return fmt.Errorf("mark analysis %s succeeded: %w", rec.ID, err)
	}
	metrics.IncAnalysisCompleted(StatusSuccess)
	s.logTransition(ctx, rec, from+"->"+StatusSuccess, map[string]any{"score": res.Score})
	return nil
}

// GetByID returns the record when it exists and its resume belongs to requesterID.
func (s *Service) GetByID(ctx context.Context, analysisID, requesterID string) (Record, bool, error) {
	rec, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	if _, err := s.ownedResume(ctx, rec.ResumeID, requesterID); err != nil {
		if isAbsent(err) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return rec, true, nil
}

// ListForResume returns the resume's records newest first. A resume that is
// missing or owned by someone else yields an empty list, not an error.
func (s *Service) ListForResume(ctx context.Context, resumeID, requesterID string) ([]Record, error) {
	if _, err := s.ownedResume(ctx, resumeID, requesterID); err != nil {
		if isAbsent(err) {
			return []Record{}, nil
		}
		return nil, err
	}
	return s.Repo.ListByResume(ctx, resumeID)
}

// LatestSuccessful returns the most recently analyzed success record for the resume.
func (s *Service) LatestSuccessful(ctx context.Context, resumeID, requesterID string) (Record, bool, error) {
	if _, err := s.ownedResume(ctx, resumeID, requesterID); err != nil {
		if isAbsent(err) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	rec, err := s.Repo.LatestSuccessful(ctx, resumeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return rec, true, nil
}

// Rescan resets a record to pending and queues it again.
func (s *Service) Rescan(ctx context.Context, analysisID, requesterID string) (Record, error) {
	prev, ok, err := s.GetByID(ctx, analysisID, requesterID)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrNotFound
	}

	now := s.now()
	rec, err := s.Repo.ResetPending(ctx, analysisID, now)
	if err != nil {
		return Record{}, err
	}
	metrics.IncAnalysisEnqueued()
	s.logTransition(ctx, rec, prev.Status+"->"+StatusPending, map[string]any{"rescan": true})

	if err := s.publish(ctx, rec.ID, now); err != nil {
		return rec, err
	}
	return rec, nil
}

// pipelineError carries the failure code and the message stored on the record.
type pipelineError struct {
	Code    string
	Message string
	Err     error
}

func (e *pipelineError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return e.Code + ": " + e.Message + ": " + e.Err.Error()
}

func (e *pipelineError) Unwrap() error { return e.Err }

// stored is the text written to the failed record: the summary followed by the cause.
func (e *pipelineError) stored() string {
	if e.Err == nil {
		return sanitizeMessage(e.Message)
	}
	return sanitizeMessage(e.Message + ": " + e.Err.Error())
}

func (s *Service) runPipeline(ctx context.Context, rec Record) (res Result, pErr *pipelineError) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("analysis.panic", map[string]any{
				"analysis_id": rec.ID,
				"panic":       fmt.Sprint(r),
			})
			metrics.IncPanicRecovered("pipeline")
			res = Result{}
			pErr = &pipelineError{Code: CodeInternal, Message: fmt.Sprintf("Unexpected error during analysis: %v", r)}
		}
	}()

	resume, err := s.Resumes.GetByID(ctx, rec.ResumeID)
	if err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			return Result{}, &pipelineError{Code: CodeResumeNotFound, Message: "Resume not found"}
		}
		return Result{}, &pipelineError{Code: CodeInternal, Message: "Failed to load resume", Err: err}
	}

	text, pErr := s.extractText(ctx, resume)
	if pErr != nil {
		return Result{}, pErr
	}

	validate := s.Validate
	if validate == nil {
		validate = extract.Validate
	}
	if !validate(text) {
		return Result{}, &pipelineError{
			Code:    CodeInvalidResumeText,
			Message: "Extracted text does not look like a resume or is too short",
		}
	}

	out, err := s.Analyzer.Analyze(ctx, text, s.TargetRole)
	if err != nil {
		return Result{}, classifyAnalyzerError(err)
	}
	return Result{
		Score:         out.Score,
		Strengths:     out.Strengths,
		MissingSkills: out.MissingSkills,
		Suggestions:   out.Suggestions,
	}, nil
}

func (s *Service) extractText(ctx context.Context, resume resumes.Resume) (string, *pipelineError) {
	path, release, err := object.Localize(ctx, s.Files, resume.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &pipelineError{Code: CodeExtractionFailed, Message: "Resume file not found", Err: err}
		}
		return "", &pipelineError{Code: CodeExtractionFailed, Message: "Failed to read resume file", Err: err}
	}
	defer release()

	text, err := s.Extractor.Extract(ctx, path)
	if err != nil {
		if errors.Is(err, extract.ErrNotFound) {
			return "", &pipelineError{Code: CodeExtractionFailed, Message: "Resume file not found", Err: err}
		}
		return "", &pipelineError{Code: CodeExtractionFailed, Message: "Failed to extract text from PDF", Err: err}
	}
	return text, nil
}

func classifyAnalyzerError(err error) *pipelineError {
	switch {
	case errors.Is(err, llm.ErrInvalidInput):
		return &pipelineError{Code: CodeInvalidResumeText, Message: "Resume text is too short for analysis", Err: err}
	case errors.Is(err, llm.ErrInvalidResponse):
		return &pipelineError{Code: CodeLLMInvalidResponse, Message: "AI analysis failed", Err: err}
	default:
		return &pipelineError{Code: CodeLLMFailed, Message: "AI analysis failed", Err: err}
	}
}

// ownedResume loads resumeID and checks it belongs to requesterID.
func (s *Service) ownedResume(ctx context.Context, resumeID, requesterID string) (resumes.Resume, error) {
	if strings.TrimSpace(resumeID) == "" {
		return resumes.Resume{}, ErrNotFound
	}
	resume, err := s.Resumes.GetByID(ctx, resumeID)
	if err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			return resumes.Resume{}, ErrNotFound
		}
		return resumes.Resume{}, fmt.Errorf("load resume %s: %w", resumeID, err)
	}
	if strings.TrimSpace(requesterID) == "" || resume.OwnerID != requesterID {
		return resumes.Resume{}, ErrAccessDenied
	}
	return resume, nil
}

func (s *Service) publish(ctx context.Context, analysisID string, enqueuedAt time.Time) error {
	if s.Queue == nil {
		telemetry.Warn("analysis.queue_missing", map[string]any{"analysis_id": analysisID})
		return nil
	}
	msg := queue.NewMessage(analysisID, RequestIDFromContext(ctx), enqueuedAt, messageVersion)
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("analysis.publish_failed", map[string]any{
			"analysis_id": analysisID,
			"request_id":  msg.RequestID,
			"error":       err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

func (s *Service) logTransition(ctx context.Context, rec Record, transition string, extra map[string]any) {
	fields := map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"analysis_id":       rec.ID,
		"resume_id":         rec.ResumeID,
		"status_transition": transition,
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("analysis.status", fields)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func isAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied)
}

func sanitizeMessage(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	cut := maxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
