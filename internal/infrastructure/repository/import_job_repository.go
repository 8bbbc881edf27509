package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
	"github.com/hrpanel/bulk-import/internal/infrastructure/db/models"
	"gorm.io/gorm"
)

// ImportJobRepository is the durable import state store. Counter updates
// are single atomic SQL statements; status transitions are conditional
// UPDATEs so concurrent chunk jobs cannot double-apply them.
type ImportJobRepository struct {
	db *gorm.DB
}

func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

func (r *ImportJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	row, err := toModel(job)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	job.CreatedAt = row.CreatedAt
	return nil
}

func (r *ImportJobRepository) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	var row models.ImportJob
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return toDomain(&row)
}

func (r *ImportJobRepository) List(ctx context.Context, requestedBy string, status *domain.Status) ([]domain.ImportJob, error) {
	query := r.db.WithContext(ctx).Where("requested_by = ?", requestedBy).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}

	var rows []models.ImportJob
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}

	jobs := make([]domain.ImportJob, 0, len(rows))
	for i := range rows {
		job, err := toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func (r *ImportJobRepository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", id, string(domain.StatusPending)).
		Updates(map[string]any{
			"status":     string(domain.StatusProcessing),
			"started_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark processing: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AddProgress is the one write chunk jobs race on. The increment and the
// capped error append happen inside a single UPDATE so concurrent chunks
// compose commutatively, and the RETURNING clause hands back the totals
// without a second read.
func (r *ImportJobRepository) AddProgress(ctx context.Context, id string, imported, skipped int64, errs []domain.RowError) (domain.Counts, error) {
	if errs == nil {
		errs = []domain.RowError{}
	}
	payload, err := json.Marshal(errs)
	if err != nil {
		return domain.Counts{}, fmt.Errorf("marshal row errors: %w", err)
	}

	var counts domain.Counts
	row := r.db.WithContext(ctx).Raw(`
UPDATE import_jobs
SET imported_count = imported_count + ?,
    skipped_count = skipped_count + ?,
    errors = CASE
      WHEN jsonb_array_length(errors) >= ? THEN errors
      ELSE errors || ?::jsonb
    END,
    updated_at = NOW()
WHERE id = ?
RETURNING imported_count, skipped_count, total_rows
`, imported, skipped, maxStoredErrors, string(payload), id).Row()

	if err := row.Scan(&counts.Imported, &counts.Skipped, &counts.Total); err != nil {
		return domain.Counts{}, fmt.Errorf("add progress: %w", err)
	}
	return counts, nil
}

// TryComplete is the idempotent completion transition: only one of N
// concurrent chunk completions can satisfy the guard.
func (r *ImportJobRepository) TryComplete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE import_jobs
SET status = ?, completed_at = NOW(), updated_at = NOW()
WHERE id = ? AND status = ? AND imported_count + skipped_count >= total_rows
`, string(domain.StatusCompleted), id, string(domain.StatusProcessing))
	if res.Error != nil {
		return false, fmt.Errorf("try complete: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ImportJobRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	entry, err := json.Marshal([]domain.RowError{{Row: 0, Message: reason}})
	if err != nil {
		return fmt.Errorf("marshal failure reason: %w", err)
	}

	res := r.db.WithContext(ctx).Exec(`
UPDATE import_jobs
SET status = ?, errors = errors || ?::jsonb, completed_at = NOW(), updated_at = NOW()
WHERE id = ? AND status IN (?, ?)
`, string(domain.StatusFailed), string(entry), id,
		string(domain.StatusPending), string(domain.StatusProcessing))
	if res.Error != nil {
		return fmt.Errorf("mark failed: %w", res.Error)
	}
	return nil
}

func (r *ImportJobRepository) Requeue(ctx context.Context, id string, reason string) (bool, error) {
	entry, err := json.Marshal([]domain.RowError{{Row: 0, Message: reason}})
	if err != nil {
		return false, fmt.Errorf("marshal requeue reason: %w", err)
	}

	var requeued bool
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
UPDATE import_jobs
SET status = ?, imported_count = 0, skipped_count = 0,
    errors = ?::jsonb, attempts = attempts + 1,
    started_at = NULL, completed_at = NULL, updated_at = NOW()
WHERE id = ? AND status = ? AND attempts + 1 < max_attempts
`, string(domain.StatusPending), string(entry), id, string(domain.StatusProcessing))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		requeued = true
		return deleteJobSubmissions(tx, id)
	})
	if err != nil {
		return false, fmt.Errorf("requeue import job: %w", err)
	}
	return requeued, nil
}

func (r *ImportJobRepository) ResetForRetry(ctx context.Context, id string) (bool, error) {
	var reset bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
UPDATE import_jobs
SET status = ?, imported_count = 0, skipped_count = 0,
    errors = '[]'::jsonb, attempts = 0,
    started_at = NULL, completed_at = NULL, updated_at = NOW()
WHERE id = ? AND status = ?
`, string(domain.StatusPending), id, string(domain.StatusFailed))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		reset = true
		return deleteJobSubmissions(tx, id)
	})
	if err != nil {
		return false, fmt.Errorf("reset import job: %w", err)
	}
	return reset, nil
}

// deleteJobSubmissions removes the rows a previous run of the job committed.
// A rerun starts from row 1 with zeroed counters, so submissions surviving
// from earlier chunks would be inserted twice otherwise. Same transaction as
// the status reset: either both happen or neither does.
func deleteJobSubmissions(tx *gorm.DB, jobID string) error {
	err := tx.Exec(`
DELETE FROM submission_responses
WHERE submission_id IN (SELECT id FROM submissions WHERE import_job_id = ?)
`, jobID).Error
	if err != nil {
		return fmt.Errorf("delete submission responses: %w", err)
	}
	if err := tx.Exec(`DELETE FROM submissions WHERE import_job_id = ?`, jobID).Error; err != nil {
		return fmt.Errorf("delete submissions: %w", err)
	}
	return nil
}

const maxStoredErrors = 100

func toModel(job *domain.ImportJob) (*models.ImportJob, error) {
	errs := job.Errors
	if errs == nil {
		errs = []domain.RowError{}
	}
	payload, err := json.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("marshal row errors: %w", err)
	}

	return &models.ImportJob{
		ID:             job.ID,
		TemplateID:     job.TemplateID,
		RequestedBy:    job.RequestedBy,
		SourceFilename: job.SourceFilename,
		StoredPath:     job.StoredPath,
		Status:         string(job.Status),
		TotalRows:      job.TotalRows,
		ImportedCount:  job.ImportedCount,
		SkippedCount:   job.SkippedCount,
		Errors:         payload,
		Attempts:       job.Attempts,
		MaxAttempts:    job.MaxAttempts,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}, nil
}

func toDomain(row *models.ImportJob) (*domain.ImportJob, error) {
	var errs []domain.RowError
	if len(row.Errors) > 0 {
		if err := json.Unmarshal(row.Errors, &errs); err != nil {
			return nil, fmt.Errorf("unmarshal row errors: %w", err)
		}
	}

	return &domain.ImportJob{
		ID:             row.ID,
		TemplateID:     row.TemplateID,
		RequestedBy:    row.RequestedBy,
		SourceFilename: row.SourceFilename,
		StoredPath:     row.StoredPath,
		Status:         domain.Status(row.Status),
		TotalRows:      row.TotalRows,
		ImportedCount:  row.ImportedCount,
		SkippedCount:   row.SkippedCount,
		Errors:         errs,
		Attempts:       row.Attempts,
		MaxAttempts:    row.MaxAttempts,
		StartedAt:      row.StartedAt,
		CompletedAt:    row.CompletedAt,
		CreatedAt:      row.CreatedAt,
	}, nil
}
