package importing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hrpanel/bulk-import/internal/decode"
	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

type StartImportInput struct {
	TemplateID  string
	RequestedBy string
	Filename    string
	File        io.Reader
	Size        int64
}

// StartImportOutput is the response for both paths. Stats is set only when
// the import ran inline; the background path returns just the id to poll.
type StartImportOutput struct {
	ImportID string           `json:"import_id"`
	Status   domain.Status    `json:"status"`
	Stats    *ImportStatsBody `json:"stats,omitempty"`
}

type ImportStatsBody struct {
	Imported int64             `json:"imported"`
	Skipped  int64             `json:"skipped"`
	Errors   []domain.RowError `json:"errors"`
}

type StartImport interface {
	Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error)
}

type StartImportConfig struct {
	// InlineThreshold is the row count below which the import runs on the
	// request path. Tuning constant, not a correctness property.
	InlineThreshold int64
	MaxFileBytes    int64
	MaxAttempts     int
}

type startImport struct {
	jobs      JobRepository
	files     domain.FileStore
	queue     domain.TaskQueue
	processor *Processor
	cfg       StartImportConfig
	now       func() time.Time
}

func NewStartImport(jobs JobRepository, files domain.FileStore, queue domain.TaskQueue, processor *Processor, cfg StartImportConfig) StartImport {
	if cfg.InlineThreshold <= 0 {
		cfg.InlineThreshold = 1000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &startImport{
		jobs:      jobs,
		files:     files,
		queue:     queue,
		processor: processor,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (uc *startImport) Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error) {
	format, err := decode.FormatForFilename(in.Filename)
	if err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if uc.cfg.MaxFileBytes > 0 && in.Size > uc.cfg.MaxFileBytes {
		return StartImportOutput{}, ErrFileTooLarge
	}

	storedPath, err := uc.files.Store(ctx, in.Filename, in.File)
	if err != nil {
		return StartImportOutput{}, fmt.Errorf("store upload: %w", err)
	}

	totalRows, err := uc.countRows(ctx, storedPath, format)
	if err != nil {
		_ = uc.files.Delete(ctx, storedPath)
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	job := &domain.ImportJob{
		ID:             uuid.NewString(),
		TemplateID:     in.TemplateID,
		RequestedBy:    in.RequestedBy,
		SourceFilename: in.Filename,
		StoredPath:     storedPath,
		Status:         domain.StatusPending,
		TotalRows:      totalRows,
		MaxAttempts:    uc.cfg.MaxAttempts,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return StartImportOutput{}, fmt.Errorf("create import job: %w", err)
	}

	if totalRows < uc.cfg.InlineThreshold {
		return uc.runInline(ctx, job.ID)
	}

	if err := uc.queue.EnqueueImport(ctx, job.ID); err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImport, err)
	}
	return StartImportOutput{ImportID: job.ID, Status: domain.StatusPending}, nil
}

// runInline drives the same pipeline the background consumer would, then
// reads the terminal state back so the caller gets final stats in-band.
func (uc *startImport) runInline(ctx context.Context, jobID string) (StartImportOutput, error) {
	if err := uc.processor.Process(ctx, jobID); err != nil {
		// A transient failure put the job back to pending; hand it to the
		// background path instead of blocking the request on a sick
		// dependency. Deterministic failures are already on the record.
		if errors.Is(err, ErrTransient) {
			if qerr := uc.queue.EnqueueImport(ctx, jobID); qerr != nil {
				return StartImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImport, qerr)
			}
			return StartImportOutput{ImportID: jobID, Status: domain.StatusPending}, nil
		}
	}

	job, err := uc.jobs.Get(ctx, jobID)
	if err != nil {
		return StartImportOutput{}, fmt.Errorf("load inline import result: %w", err)
	}

	return StartImportOutput{
		ImportID: job.ID,
		Status:   job.Status,
		Stats: &ImportStatsBody{
			Imported: job.ImportedCount,
			Skipped:  job.SkippedCount,
			Errors:   append([]domain.RowError{}, job.Errors...),
		},
	}, nil
}

func (uc *startImport) countRows(ctx context.Context, storedPath string, format decode.Format) (int64, error) {
	rc, err := uc.files.Open(ctx, storedPath)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return decode.RowCount(rc, format)
}
