package analyses

import "time"

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record is one attempt to analyze a resume. Result fields are set only when
// Status is success; ErrorMessage only when failed.
type Record struct {
	ID            string     `json:"id"`
	ResumeID      string     `json:"resumeId"`
	Status        string     `json:"status"`
	Score         *int       `json:"score"`
	Strengths     []string   `json:"strengths"`
	MissingSkills []string   `json:"missingSkills"`
	Suggestions   []string   `json:"suggestions"`
	ErrorMessage  *string    `json:"errorMessage"`
	AnalyzedAt    *time.Time `json:"analyzedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	EnqueuedAt    time.Time  `json:"-"`
}

// Result is the payload written on success.
type Result struct {
	Score         int
	Strengths     []string
	MissingSkills []string
	Suggestions   []string
}

// Summary is the list view of a record.
type Summary struct {
	ID         string     `json:"id"`
	ResumeID   string     `json:"resumeId"`
	Score      *int       `json:"score"`
	Status     string     `json:"status"`
	AnalyzedAt *time.Time `json:"analyzedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (r Record) Summary() Summary {
	return Summary{
		ID:         r.ID,
		ResumeID:   r.ResumeID,
		Score:      r.Score,
		Status:     r.Status,
		AnalyzedAt: r.AnalyzedAt,
		CreatedAt:  r.CreatedAt,
	}
}

// IsTerminal reports whether the record has finished processing.
func (r Record) IsTerminal() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailed
}
