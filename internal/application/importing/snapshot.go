package importing

import (
	"time"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

// ImportSnapshot is the pollable view of one import job.
type ImportSnapshot struct {
	ImportID       string            `json:"import_id"`
	TemplateID     string            `json:"template_id"`
	SourceFilename string            `json:"source_filename"`
	Status         domain.Status     `json:"status"`
	TotalRows      int64             `json:"total_rows"`
	Imported       int64             `json:"imported"`
	Skipped        int64             `json:"skipped"`
	Errors         []domain.RowError `json:"errors"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func snapshotOf(job *domain.ImportJob) ImportSnapshot {
	errs := job.Errors
	if errs == nil {
		errs = []domain.RowError{}
	}
	return ImportSnapshot{
		ImportID:       job.ID,
		TemplateID:     job.TemplateID,
		SourceFilename: job.SourceFilename,
		Status:         job.Status,
		TotalRows:      job.TotalRows,
		Imported:       job.ImportedCount,
		Skipped:        job.SkippedCount,
		Errors:         errs,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		CreatedAt:      job.CreatedAt,
	}
}
