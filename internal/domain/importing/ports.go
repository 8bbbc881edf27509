package importing

import (
	"context"
	"io"
)

// SchemaProvider is the read-only view of a form template's ordered fields,
// owned by the external template store.
type SchemaProvider interface {
	GetFields(ctx context.Context, templateID string) ([]FieldSchema, error)
}

// FileStore is the durable home of uploaded spreadsheets. Files are written
// once and immutable afterwards; retries re-read the same stored object.
type FileStore interface {
	Store(ctx context.Context, filename string, r io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// TaskQueue hands an import job id to the background consumer.
type TaskQueue interface {
	EnqueueImport(ctx context.Context, jobID string) error
}
