// Package llm scores resume text with a generative model and validates the reply.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"internship-portal/internal/shared/metrics"
	"internship-portal/internal/shared/telemetry"
)

// MinResumeChars is the shortest trimmed resume text the analyzer accepts.
const MinResumeChars = 100

const (
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 60 * time.Second
	defaultBaseDelay      = 2 * time.Second
	defaultMaxDelay       = 10 * time.Second
)

// GenerationParams are the sampling settings sent with every request.
type GenerationParams struct {
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
}

// DefaultParams favours consistent scoring over creative output.
func DefaultParams() GenerationParams {
	return GenerationParams{
		Temperature:     0.3,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 2048,
	}
}

// Generator sends a prompt to a model provider and returns the raw text reply.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Result is a validated analysis.
type Result struct {
	Score         int      `json:"score"`
	Strengths     []string `json:"strengths"`
	MissingSkills []string `json:"missing_skills"`
	Suggestions   []string `json:"suggestions"`
}

// Options tunes an Analyzer. Zero values fall back to package defaults.
type Options struct {
	TargetRole     string
	Params         GenerationParams
	MaxAttempts    int
	AttemptTimeout time.Duration
	BaseDelay      time.Duration
	MaxDelay       time.Duration
}

// Analyzer builds the prompt, calls the Generator with retries, and parses the reply.
type Analyzer struct {
	gen   Generator
	opts  Options
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAnalyzer(gen Generator, opts Options) *Analyzer {
	if opts.Params == (GenerationParams{}) {
		opts.Params = DefaultParams()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	return &Analyzer{gen: gen, opts: opts, sleep: sleepCtx}
}

// Analyze scores resumeText. targetRole overrides the configured role when set.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, targetRole string) (Result, error) {
	trimmed := strings.TrimSpace(resumeText)
	if len(trimmed) < MinResumeChars {
		return Result{}, fmt.Errorf("%w: resume text has %d chars, need %d", ErrInvalidInput, len(trimmed), MinResumeChars)
	}
	if a.gen == nil {
		return Result{}, &AnalysisError{Attempts: 0, Err: errors.New("no generator configured")}
	}
	role := strings.TrimSpace(targetRole)
	if role == "" {
		role = a.opts.TargetRole
	}
	prompt := BuildPrompt(trimmed, role)

	var lastErr error
	made := 0
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		made = attempt
		res, err := a.attempt(ctx, prompt)
		if err == nil {
			metrics.IncAIAttempt("success")
			telemetry.Info("llm.analysis.completed", map[string]any{
				"attempt": attempt,
				"score":   res.Score,
			})
			return res, nil
		}
		lastErr = err
		metrics.IncAIAttempt(attemptOutcome(err))
		telemetry.Warn("llm.analysis.attempt_failed", map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if ctx.Err() != nil {
			break
		}
		if attempt < a.opts.MaxAttempts {
			if err := a.sleep(ctx, a.backoff(attempt)); err != nil {
				break
			}
		}
	}
	return Result{}, &AnalysisError{Attempts: made, Err: lastErr}
}

func (a *Analyzer) attempt(ctx context.Context, prompt string) (Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.opts.AttemptTimeout)
	defer cancel()

	raw, err := a.gen.Generate(attemptCtx, prompt, a.opts.Params)
	if err != nil {
		return Result{}, err
	}
	return ParseResponse(raw)
}

// backoff returns the wait after the given failed attempt: base, 2*base, 4*base... capped at MaxDelay.
func (a *Analyzer) backoff(attempt int) time.Duration {
	d := a.opts.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= a.opts.MaxDelay {
			return a.opts.MaxDelay
		}
	}
	if d > a.opts.MaxDelay {
		return a.opts.MaxDelay
	}
	return d
}

func attemptOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
