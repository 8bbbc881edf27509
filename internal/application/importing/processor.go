package importing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hrpanel/bulk-import/internal/decode"
	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
	"github.com/hrpanel/bulk-import/internal/importer"
	"github.com/hrpanel/bulk-import/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrTransient marks a processing failure worth an automatic queue-level
// retry. The job has already been moved back to pending; the consumer only
// has to enqueue it again. Everything else is deterministic and fails the
// job for good (until the user retries explicitly).
var ErrTransient = errors.New("transient import failure")

const maxReasonLen = 1000

type ProcessorConfig struct {
	ChunkSize       int
	ChunkWorkers    int
	ChunkTimeout    time.Duration
	MaxStoredErrors int
}

// Processor drives one import job end to end: header gate, streaming
// decode, concurrent chunk validation and writes, atomic progress, and the
// idempotent completion transition.
type Processor struct {
	jobs    JobRepository
	files   domain.FileStore
	schemas domain.SchemaProvider
	writer  BatchWriter
	cfg     ProcessorConfig
	log     zerolog.Logger
}

func NewProcessor(jobs JobRepository, files domain.FileStore, schemas domain.SchemaProvider, writer BatchWriter, cfg ProcessorConfig, log zerolog.Logger) *Processor {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 10000
	}
	if cfg.ChunkWorkers <= 0 {
		cfg.ChunkWorkers = 4
	}
	if cfg.ChunkTimeout <= 0 {
		cfg.ChunkTimeout = 5 * time.Minute
	}
	if cfg.MaxStoredErrors <= 0 {
		cfg.MaxStoredErrors = 100
	}
	return &Processor{jobs: jobs, files: files, schemas: schemas, writer: writer, cfg: cfg, log: log}
}

func (p *Processor) Process(ctx context.Context, jobID string) error {
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load import job: %w", err)
	}

	claimed, err := p.jobs.MarkProcessing(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if !claimed {
		// Stale or duplicate message; the job moved on without us.
		p.log.Warn().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("import job not claimable")
		return nil
	}

	log := p.log.With().Str("job_id", job.ID).Str("template_id", job.TemplateID).Logger()

	fields, err := p.schemas.GetFields(ctx, job.TemplateID)
	if err != nil {
		return p.failTransient(ctx, job, fmt.Errorf("load template fields: %w", err))
	}

	validator, err := importer.NewValidator(fields)
	if err != nil {
		return p.fail(ctx, job, fmt.Errorf("invalid template schema: %w", err))
	}

	format, err := decode.FormatForFilename(job.SourceFilename)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	rc, err := p.files.Open(ctx, job.StoredPath)
	if err != nil {
		return p.fail(ctx, job, fmt.Errorf("%w: %v", domain.ErrFileGone, err))
	}
	defer rc.Close()

	dec, err := decode.Open(rc, format)
	if err != nil {
		return p.fail(ctx, job, err)
	}
	defer dec.Close()

	if err := importer.ReconcileHeader(dec.Headers(), fields); err != nil {
		log.Info().Err(err).Msg("header reconciliation failed")
		return p.fail(ctx, job, err)
	}

	if err := p.runChunks(ctx, job, validator, dec, log); err != nil {
		return err
	}

	// Covers empty files and the race where the final AddProgress saw the
	// totals complete but lost the conditional update.
	if done, err := p.jobs.TryComplete(ctx, job.ID); err != nil {
		return p.failTransient(ctx, job, fmt.Errorf("complete job: %w", err))
	} else if done {
		metrics.JobsCompleted.Inc()
		log.Info().Msg("import completed")
	}
	return nil
}

// chunkState carries the first system-level error across chunk workers.
// Once set, no new chunks are dispatched; in-flight chunks drain normally.
type chunkState struct {
	mu  sync.Mutex
	err error
}

func (s *chunkState) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *chunkState) failed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (p *Processor) runChunks(ctx context.Context, job *domain.ImportJob, validator *importer.Validator, dec decode.Decoder, log zerolog.Logger) error {
	state := &chunkState{}
	chunks := make(chan []decode.Row)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.ChunkWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rows := range chunks {
				p.processChunk(ctx, job, validator, rows, state, log)
			}
		}()
	}

	for {
		if state.failed() != nil {
			break
		}
		rows, err := dec.Next(p.cfg.ChunkSize)
		if len(rows) > 0 {
			chunks <- rows
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			state.record(err)
			break
		}
	}
	close(chunks)
	wg.Wait()

	if err := state.failed(); err != nil {
		if isTransient(err) {
			return p.failTransient(ctx, job, err)
		}
		return p.fail(ctx, job, err)
	}
	return nil
}

func (p *Processor) processChunk(ctx context.Context, job *domain.ImportJob, validator *importer.Validator, rows []decode.Row, state *chunkState, log zerolog.Logger) {
	start := time.Now()

	valid := make([]domain.ValidatedRow, 0, len(rows))
	rowErrs := make([]domain.RowError, 0)
	for _, row := range rows {
		values, err := validator.ValidateRow(row.Cells)
		if err != nil {
			rowErrs = append(rowErrs, domain.RowError{Row: row.Number, Message: err.Error()})
			continue
		}
		valid = append(valid, domain.ValidatedRow{Row: row.Number, Values: values})
	}

	imported := int64(len(valid))
	skipped := int64(len(rowErrs))

	if len(valid) > 0 {
		chunkCtx, cancel := context.WithTimeout(ctx, p.cfg.ChunkTimeout)
		err := p.writer.WriteChunk(chunkCtx, job.ID, job.TemplateID, job.RequestedBy, valid)
		cancel()
		if err != nil {
			// Chunk-level failure: the transaction rolled back, so the
			// whole chunk counts as skipped under one aggregate error.
			// Sibling chunks keep going.
			log.Error().Err(err).Int("rows", len(rows)).Msg("chunk write failed")
			rowErrs = append(rowErrs, domain.RowError{
				Row:     rows[0].Number,
				Message: truncateReason(fmt.Sprintf("rows %d-%d not imported: %v", rows[0].Number, rows[len(rows)-1].Number, err)),
			})
			skipped += imported
			imported = 0
		}
	}

	if len(rowErrs) > p.cfg.MaxStoredErrors {
		rowErrs = rowErrs[:p.cfg.MaxStoredErrors]
	}

	counts, err := p.jobs.AddProgress(ctx, job.ID, imported, skipped, rowErrs)
	if err != nil {
		state.record(fmt.Errorf("update progress: %w: %v", errProgress, err))
		return
	}

	metrics.RowsImported.Add(float64(imported))
	metrics.RowsSkipped.Add(float64(skipped))
	metrics.ChunkDuration.Observe(time.Since(start).Seconds())

	if counts.Done() {
		done, err := p.jobs.TryComplete(ctx, job.ID)
		if err != nil {
			state.record(fmt.Errorf("complete job: %w: %v", errProgress, err))
			return
		}
		if done {
			metrics.JobsCompleted.Inc()
			log.Info().Int64("imported", counts.Imported).Int64("skipped", counts.Skipped).Msg("import completed")
		}
	}
}

// errProgress tags state-store failures so runChunks can tell a transient
// infrastructure problem from a deterministic one.
var errProgress = errors.New("import state store unavailable")

func isTransient(err error) bool {
	return errors.Is(err, errProgress)
}

// fail terminally marks the job failed with the reason appended to its
// error list.
func (p *Processor) fail(ctx context.Context, job *domain.ImportJob, cause error) error {
	if err := p.jobs.MarkFailed(ctx, job.ID, truncateReason(cause.Error())); err != nil {
		return fmt.Errorf("%v; fail update failed: %w", cause, err)
	}
	metrics.JobsFailed.Inc()
	return cause
}

// failTransient hands the job back to pending when attempts remain so the
// queue consumer can enqueue it again; otherwise it fails for good.
func (p *Processor) failTransient(ctx context.Context, job *domain.ImportJob, cause error) error {
	requeued, err := p.jobs.Requeue(ctx, job.ID, truncateReason(cause.Error()))
	if err != nil {
		return fmt.Errorf("%v; requeue failed: %w", cause, err)
	}
	if requeued {
		return fmt.Errorf("%w: %v", ErrTransient, cause)
	}
	return p.fail(ctx, job, cause)
}

func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxReasonLen {
		return reason
	}
	return reason[:maxReasonLen]
}
