package importing_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

// fakeJobRepo mirrors the conditional-update semantics of the real store:
// transitions only happen from the expected source status and progress is a
// single atomic mutation.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.ImportJob

	progressErr error
	completeErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.ImportJob)}
}

func (r *fakeJobRepo) put(job *domain.ImportJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.ID] = &clone
}

func (r *fakeJobRepo) snapshot(id string) domain.ImportJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.jobs[id]
}

func (r *fakeJobRepo) Create(_ context.Context, job *domain.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return errors.New("duplicate job id")
	}
	clone := *job
	clone.CreatedAt = time.Now()
	r.jobs[job.ID] = &clone
	return nil
}

func (r *fakeJobRepo) Get(_ context.Context, id string) (*domain.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *fakeJobRepo) List(_ context.Context, requestedBy string, status *domain.Status) ([]domain.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ImportJob
	for _, job := range r.jobs {
		if job.RequestedBy != requestedBy {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		out = append(out, *job)
	}
	return out, nil
}

func (r *fakeJobRepo) MarkProcessing(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status != domain.StatusPending {
		return false, nil
	}
	now := time.Now()
	job.Status = domain.StatusProcessing
	job.StartedAt = &now
	return true, nil
}

func (r *fakeJobRepo) AddProgress(_ context.Context, id string, imported, skipped int64, errs []domain.RowError) (domain.Counts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progressErr != nil {
		return domain.Counts{}, r.progressErr
	}
	job, ok := r.jobs[id]
	if !ok {
		return domain.Counts{}, domain.ErrNotFound
	}
	job.ImportedCount += imported
	job.SkippedCount += skipped
	job.Errors = append(job.Errors, errs...)
	return domain.Counts{Imported: job.ImportedCount, Skipped: job.SkippedCount, Total: job.TotalRows}, nil
}

func (r *fakeJobRepo) TryComplete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completeErr != nil {
		return false, r.completeErr
	}
	job, ok := r.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status != domain.StatusProcessing || job.ImportedCount+job.SkippedCount < job.TotalRows {
		return false, nil
	}
	now := time.Now()
	job.Status = domain.StatusCompleted
	job.CompletedAt = &now
	return true, nil
}

func (r *fakeJobRepo) MarkFailed(_ context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	now := time.Now()
	job.Status = domain.StatusFailed
	job.CompletedAt = &now
	job.Errors = append(job.Errors, domain.RowError{Row: 0, Message: reason})
	return nil
}

func (r *fakeJobRepo) Requeue(_ context.Context, id string, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status != domain.StatusProcessing || job.Attempts+1 >= job.MaxAttempts {
		return false, nil
	}
	job.Status = domain.StatusPending
	job.Attempts++
	job.ImportedCount = 0
	job.SkippedCount = 0
	job.Errors = []domain.RowError{{Row: 0, Message: reason}}
	return true, nil
}

func (r *fakeJobRepo) ResetForRetry(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status != domain.StatusFailed {
		return false, nil
	}
	job.Status = domain.StatusPending
	job.Attempts = 0
	job.ImportedCount = 0
	job.SkippedCount = 0
	job.Errors = nil
	job.CompletedAt = nil
	return true, nil
}

type fakeFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int

	openErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{objects: make(map[string][]byte)}
}

func (f *fakeFiles) put(path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = content
}

func (f *fakeFiles) Store(_ context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	path := fmt.Sprintf("stored/%d-%s", f.seq, filename)
	f.objects[path] = data
	return path, nil
}

func (f *fakeFiles) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	data, ok := f.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s not found", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFiles) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok, nil
}

func (f *fakeFiles) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	return nil
}

type fakeSchemas struct {
	fields []domain.FieldSchema
	err    error
}

func (s *fakeSchemas) GetFields(_ context.Context, _ string) ([]domain.FieldSchema, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.fields, nil
}

type writtenChunk struct {
	jobID string
	rows  []domain.ValidatedRow
}

type fakeWriter struct {
	mu     sync.Mutex
	chunks []writtenChunk
	err    error
}

func (w *fakeWriter) WriteChunk(_ context.Context, jobID, _, _ string, rows []domain.ValidatedRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.chunks = append(w.chunks, writtenChunk{jobID: jobID, rows: rows})
	return nil
}

func (w *fakeWriter) rowsWritten() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.chunks {
		n += len(c.rows)
	}
	return n
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []string
	err      error
}

func (q *fakeQueue) EnqueueImport(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, jobID)
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.enqueued)
}
