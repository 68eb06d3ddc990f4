package analyses

import "errors"

var (
	ErrNotFound      = errors.New("analysis not found")
	ErrAccessDenied  = errors.New("resume not owned by requester")
	ErrPublishFailed = errors.New("analysis queued but not published")
)

// Failure codes recorded in logs and metrics.
const (
	CodeResumeNotFound     = "resume_not_found"
	CodeExtractionFailed   = "extraction_failed"
	CodeInvalidResumeText  = "invalid_resume_text"
	CodeLLMInvalidResponse = "llm_invalid_response"
	CodeLLMFailed          = "llm_failed"
	CodeInternal           = "internal"
)
