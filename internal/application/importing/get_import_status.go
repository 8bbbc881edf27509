package importing

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

type GetImportStatusInput struct {
	ImportID    string
	RequestedBy string
}

type GetImportStatus interface {
	Execute(ctx context.Context, in GetImportStatusInput) (ImportSnapshot, error)
}

type getImportStatus struct {
	jobs JobRepository
}

func NewGetImportStatus(jobs JobRepository) GetImportStatus {
	return &getImportStatus{jobs: jobs}
}

func (uc *getImportStatus) Execute(ctx context.Context, in GetImportStatusInput) (ImportSnapshot, error) {
	job, err := uc.jobs.Get(ctx, in.ImportID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ImportSnapshot{}, err
		}
		return ImportSnapshot{}, fmt.Errorf("get import job: %w", err)
	}

	// Ownership is part of the lookup: a foreign job is indistinguishable
	// from a missing one.
	if job.RequestedBy != in.RequestedBy {
		return ImportSnapshot{}, domain.ErrNotFound
	}

	return snapshotOf(job), nil
}
