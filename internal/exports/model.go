package exports

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Export tracks rendering of one assessment report.
type Export struct {
	ID           string     `json:"id"`
	AssessmentID string     `json:"assessmentId"`
	OrgID        string     `json:"orgId"`
	Status       string     `json:"status"`
	StorageKey   string     `json:"-"`
	SizeBytes    int64      `json:"sizeBytes,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
