package resumes

import "time"

// Resume is an uploaded PDF owned by exactly one user.
type Resume struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	FilePath  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
