package importing

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RowError records why one spreadsheet row was rejected. Row is the
// 1-based position among the data rows; the header row is not counted.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportJob is the durable record of one bulk import. Counters only ever
// increase and imported+skipped never exceeds TotalRows; once the job is
// completed or failed the only permitted mutation is an explicit retry,
// which resets it to pending.
type ImportJob struct {
	ID             string
	TemplateID     string
	RequestedBy    string
	SourceFilename string
	StoredPath     string
	Status         Status
	TotalRows      int64
	ImportedCount  int64
	SkippedCount   int64
	Errors         []RowError
	Attempts       int
	MaxAttempts    int
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

// Counts is the snapshot returned by an atomic progress update.
type Counts struct {
	Imported int64
	Skipped  int64
	Total    int64
}

func (c Counts) Done() bool {
	return c.Imported+c.Skipped >= c.Total
}
