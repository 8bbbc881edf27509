package importing_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	app "github.com/hrpanel/bulk-import/internal/application/importing"
	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

var testFields = []domain.FieldSchema{
	{ID: "f-name", Label: "Full Name", Type: domain.FieldText, Required: true},
	{ID: "f-email", Label: "Email", Type: domain.FieldEmail, Required: true},
}

func seedJob(repo *fakeJobRepo, files *fakeFiles, csv string, totalRows int64) *domain.ImportJob {
	files.put("stored/roster.csv", []byte(csv))
	job := &domain.ImportJob{
		ID:             "job-1",
		TemplateID:     "tpl-1",
		RequestedBy:    "user-1",
		SourceFilename: "roster.csv",
		StoredPath:     "stored/roster.csv",
		Status:         domain.StatusPending,
		TotalRows:      totalRows,
		MaxAttempts:    3,
	}
	repo.put(job)
	return job
}

func newTestProcessor(repo *fakeJobRepo, files *fakeFiles, schemas *fakeSchemas, writer *fakeWriter, cfg app.ProcessorConfig) *app.Processor {
	return app.NewProcessor(repo, files, schemas, writer, cfg, zerolog.Nop())
}

func TestProcessorImportsValidRowsSkipsBad(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{}
	seedJob(repo, files, "full_name,email\nJane,jane@example.com\nBob,not-an-email\nAmy,amy@example.com\n", 3)

	p := newTestProcessor(repo, files, &fakeSchemas{fields: testFields}, writer, app.ProcessorConfig{})
	if err := p.Process(context.Background(), "job-1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	job := repo.snapshot("job-1")
	if job.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.ImportedCount != 2 || job.SkippedCount != 1 {
		t.Fatalf("expected 2 imported / 1 skipped, got %d / %d", job.ImportedCount, job.SkippedCount)
	}
	if len(job.Errors) != 1 {
		t.Fatalf("expected 1 row error, got %d", len(job.Errors))
	}
	if job.Errors[0].Row != 2 {
		t.Fatalf("expected error on data row 2, got row %d", job.Errors[0].Row)
	}
	if job.Errors[0].Message != "Invalid email format in 'Email'" {
		t.Fatalf("unexpected error message: %q", job.Errors[0].Message)
	}
	if writer.rowsWritten() != 2 {
		t.Fatalf("expected 2 rows written, got %d", writer.rowsWritten())
	}
	if job.CompletedAt == nil {
		t.Fatal("completed job should have completed_at set")
	}
}

func TestProcessorChunkedCompletion(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("full_name,email\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("Jane,jane@example.com\n")
	}

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{}
	seedJob(repo, files, sb.String(), 25)

	// Small chunks and several workers so completion races are exercised.
	p := newTestProcessor(repo, files, &fakeSchemas{fields: testFields}, writer, app.ProcessorConfig{
		ChunkSize:    4,
		ChunkWorkers: 3,
	})
	if err := p.Process(context.Background(), "job-1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	job := repo.snapshot("job-1")
	if job.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.ImportedCount != 25 || job.SkippedCount != 0 {
		t.Fatalf("expected 25/0, got %d/%d", job.ImportedCount, job.SkippedCount)
	}
	if writer.rowsWritten() != 25 {
		t.Fatalf("expected 25 rows written, got %d", writer.rowsWritten())
	}
}

func TestProcessorNotClaimable(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{}
	job := seedJob(repo, files, "full_name,email\nJane,jane@example.com\n", 1)
	job.Status = domain.StatusCompleted
	repo.put(job)

	p := newTestProcessor(repo, files, &fakeSchemas{fields: testFields}, writer, app.ProcessorConfig{})
	if err := p.Process(context.Background(), "job-1"); err != nil {
		t.Fatalf("duplicate delivery should be a no-op, got %v", err)
	}
	if writer.rowsWritten() != 0 {
		t.Fatal("terminal job must not be reprocessed")
	}
}

func TestProcessorHeaderMismatchFailsBeforeAnyWrite(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{}
	seedJob(repo, files, "full_name,emial\nJane,jane@example.com\n", 1)

	p := newTestProcessor(repo, files, &fakeSchemas{fields: testFields}, writer, app.ProcessorConfig{})
	err := p.Process(context.Background(), "job-1")
	if err == nil {
		t.Fatal("expected header mismatch to fail the job")
	}
	if errors.Is(err, app.ErrTransient) {
		t.Fatal("header mismatch is deterministic, not transient")
	}

	job := repo.snapshot("job-1")
	if job.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if writer.rowsWritten() != 0 {
		t.Fatal("no rows may be written when the header is rejected")
	}
	if len(job.Errors) != 1 || !strings.Contains(job.Errors[0].Message, "Email") {
		t.Fatalf("failure reason should name the missing column: %v", job.Errors)
	}
}

func TestProcessorChunkWriteFailureSkipsChunkOnly(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{err: errors.New("insert failed: deadlock detected")}
	seedJob(repo, files, "full_name,email\nJane,jane@example.com\nBob,bob@example.com\n", 2)

	p := newTestProcessor(repo, files, &fakeSchemas{fields: testFields}, writer, app.ProcessorConfig{})
	if err := p.Process(context.Background(), "job-1"); err != nil {
		t.Fatalf("chunk write failure must not fail the job: %v", err)
	}

	job := repo.snapshot("job-1")
	if job.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.ImportedCount != 0 || job.SkippedCount != 2 {
		t.Fatalf("expected the whole chunk skipped, got %d/%d", job.ImportedCount, job.SkippedCount)
	}
	if len(job.Errors) != 1 {
		t.Fatalf("expected one aggregate error, got %d", len(job.Errors))
	}
	if !strings.Contains(job.Errors[0].Message, "rows 1-2 not imported") {
		t.Fatalf("aggregate error should name the row range: %q", job.Errors[0].Message)
	}
}

func TestProcessorTransientFailureRequeues(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{}
	seedJob(repo, files, "full_name,email\nJane,jane@example.com\n", 1)

	schemas := &fakeSchemas{err: errors.New("template store timeout")}
	p := newTestProcessor(repo, files, schemas, writer, app.ProcessorConfig{})

	err := p.Process(context.Background(), "job-1")
	if !errors.Is(err, app.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}

	job := repo.snapshot("job-1")
	if job.Status != domain.StatusPending {
		t.Fatalf("expected job back to pending, got %s", job.Status)
	}
	if job.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", job.Attempts)
	}
}

func TestProcessorTransientFailureExhaustsAttempts(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{}
	job := seedJob(repo, files, "full_name,email\nJane,jane@example.com\n", 1)
	job.Attempts = 2 // max_attempts is 3; this run is the last one
	repo.put(job)

	schemas := &fakeSchemas{err: errors.New("template store timeout")}
	p := newTestProcessor(repo, files, schemas, writer, app.ProcessorConfig{})

	err := p.Process(context.Background(), "job-1")
	if err == nil || errors.Is(err, app.ErrTransient) {
		t.Fatalf("exhausted job must fail terminally, got %v", err)
	}

	got := repo.snapshot("job-1")
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestProcessorMissingFileFailsTerminally(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{}
	job := seedJob(repo, files, "full_name,email\nJane,jane@example.com\n", 1)
	files.Delete(context.Background(), job.StoredPath)

	p := newTestProcessor(repo, files, &fakeSchemas{fields: testFields}, writer, app.ProcessorConfig{})
	err := p.Process(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrFileGone) {
		t.Fatalf("expected ErrFileGone, got %v", err)
	}
	if got := repo.snapshot("job-1"); got.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestProcessorEmptyFileCompletes(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	files := newFakeFiles()
	writer := &fakeWriter{}
	seedJob(repo, files, "full_name,email\n", 0)

	p := newTestProcessor(repo, files, &fakeSchemas{fields: testFields}, writer, app.ProcessorConfig{})
	if err := p.Process(context.Background(), "job-1"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := repo.snapshot("job-1"); got.Status != domain.StatusCompleted {
		t.Fatalf("header-only file should complete with zero rows, got %s", got.Status)
	}
}

func TestProcessorProgressStoreOutageIsTransient(t *testing.T) {
	t.Parallel()

	repo := newFakeJobRepo()
	repo.progressErr = errors.New("connection refused")
	files := newFakeFiles()
	writer := &fakeWriter{}
	seedJob(repo, files, "full_name,email\nJane,jane@example.com\n", 1)

	p := newTestProcessor(repo, files, &fakeSchemas{fields: testFields}, writer, app.ProcessorConfig{})
	err := p.Process(context.Background(), "job-1")
	if !errors.Is(err, app.ErrTransient) {
		t.Fatalf("state store outage should be transient, got %v", err)
	}
	if got := repo.snapshot("job-1"); got.Status != domain.StatusPending {
		t.Fatalf("expected pending for requeue, got %s", got.Status)
	}
}
