package importing

import (
	"context"
	"fmt"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

type ListImportsInput struct {
	RequestedBy string
	// Status filters the listing when non-empty.
	Status string
}

type ListImports interface {
	Execute(ctx context.Context, in ListImportsInput) ([]ImportSnapshot, error)
}

type listImports struct {
	jobs JobRepository
}

func NewListImports(jobs JobRepository) ListImports {
	return &listImports{jobs: jobs}
}

func (uc *listImports) Execute(ctx context.Context, in ListImportsInput) ([]ImportSnapshot, error) {
	var filter *domain.Status
	if in.Status != "" {
		status := domain.Status(in.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, in.Status)
		}
		filter = &status
	}

	jobs, err := uc.jobs.List(ctx, in.RequestedBy, filter)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}

	snapshots := make([]ImportSnapshot, 0, len(jobs))
	for i := range jobs {
		snapshots = append(snapshots, snapshotOf(&jobs[i]))
	}
	return snapshots, nil
}
