package importing

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

type RetryImportInput struct {
	ImportID    string
	RequestedBy string
}

type RetryImportOutput struct {
	ImportID string        `json:"import_id"`
	Status   domain.Status `json:"status"`
}

type RetryImport interface {
	Execute(ctx context.Context, in RetryImportInput) (RetryImportOutput, error)
}

type retryImport struct {
	jobs  JobRepository
	files domain.FileStore
	queue domain.TaskQueue
}

func NewRetryImport(jobs JobRepository, files domain.FileStore, queue domain.TaskQueue) RetryImport {
	return &retryImport{jobs: jobs, files: files, queue: queue}
}

// Execute restarts a failed import from row 1. There is no incremental
// resume: counts and errors are wiped and the stored file is re-read.
func (uc *retryImport) Execute(ctx context.Context, in RetryImportInput) (RetryImportOutput, error) {
	job, err := uc.jobs.Get(ctx, in.ImportID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return RetryImportOutput{}, err
		}
		return RetryImportOutput{}, fmt.Errorf("get import job: %w", err)
	}
	if job.RequestedBy != in.RequestedBy {
		return RetryImportOutput{}, domain.ErrNotFound
	}

	if job.Status != domain.StatusFailed {
		return RetryImportOutput{}, domain.ErrInvalidState
	}

	exists, err := uc.files.Exists(ctx, job.StoredPath)
	if err != nil {
		return RetryImportOutput{}, fmt.Errorf("check stored file: %w", err)
	}
	if !exists {
		return RetryImportOutput{}, domain.ErrFileGone
	}

	reset, err := uc.jobs.ResetForRetry(ctx, job.ID)
	if err != nil {
		return RetryImportOutput{}, fmt.Errorf("reset import job: %w", err)
	}
	if !reset {
		// Lost a race with another retry; the job is already pending again.
		return RetryImportOutput{}, domain.ErrInvalidState
	}

	if err := uc.queue.EnqueueImport(ctx, job.ID); err != nil {
		return RetryImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImport, err)
	}

	return RetryImportOutput{ImportID: job.ID, Status: domain.StatusPending}, nil
}
