package importing

import (
	"context"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

// JobRepository is the import state store. Progress mutations are single
// atomic operations on the database side, never read-modify-write in Go.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	Get(ctx context.Context, id string) (*domain.ImportJob, error)
	List(ctx context.Context, requestedBy string, status *domain.Status) ([]domain.ImportJob, error)

	// MarkProcessing transitions pending→processing and stamps started_at.
	// Returns false when the job was not pending.
	MarkProcessing(ctx context.Context, id string) (bool, error)
	// AddProgress atomically increments the counters, appends the capped
	// error list, and returns the post-increment totals.
	AddProgress(ctx context.Context, id string, imported, skipped int64, errs []domain.RowError) (domain.Counts, error)
	// TryComplete flips processing→completed only when every row is
	// accounted for. Idempotent under concurrent chunk completions.
	TryComplete(ctx context.Context, id string) (bool, error)
	// MarkFailed moves a non-terminal job to failed and records the reason.
	MarkFailed(ctx context.Context, id string, reason string) error
	// Requeue moves processing→pending for an automatic retry while
	// attempts remain, resetting counts and discarding rows the aborted
	// run persisted so the rerun starts from row 1. Returns false once
	// attempts are exhausted.
	Requeue(ctx context.Context, id string, reason string) (bool, error)
	// ResetForRetry moves failed→pending, zeroing counts and errors and
	// discarding rows persisted by the failed run. Returns false when the
	// job was not failed.
	ResetForRetry(ctx context.Context, id string) (bool, error)
}

// BatchWriter persists one chunk's valid rows in a single transaction.
type BatchWriter interface {
	WriteChunk(ctx context.Context, jobID, templateID, userID string, rows []domain.ValidatedRow) error
}
