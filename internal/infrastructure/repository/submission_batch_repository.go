package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

// responseSubBatch bounds one multi-VALUES insert so the statement stays
// under the backend's parameter limit. Implementation detail, not a
// correctness requirement.
const responseSubBatch = 500

// SubmissionBatchRepository is the batch writer: one transaction per chunk,
// parent submissions inserted with RETURNING id, child responses bulk
// loaded with COPY. Any failure rolls the whole chunk back.
type SubmissionBatchRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionBatchRepository(pool *pgxpool.Pool) *SubmissionBatchRepository {
	return &SubmissionBatchRepository{pool: pool}
}

func (r *SubmissionBatchRepository) WriteChunk(ctx context.Context, jobID, templateID, userID string, rows []domain.ValidatedRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	responseRows := make([][]any, 0, len(rows)*4)

	for start := 0; start < len(rows); start += responseSubBatch {
		end := start + responseSubBatch
		if end > len(rows) {
			end = len(rows)
		}

		ids, err := insertSubmissions(ctx, tx, jobID, templateID, userID, len(rows[start:end]))
		if err != nil {
			return err
		}

		for i, row := range rows[start:end] {
			for fieldID, value := range row.Values {
				responseRows = append(responseRows, []any{ids[i], fieldID, value})
			}
		}
	}

	if len(responseRows) > 0 {
		if _, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"submission_responses"},
			[]string{"submission_id", "field_id", "value"},
			pgx.CopyFromRows(responseRows),
		); err != nil {
			return fmt.Errorf("copy submission responses: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunk: %w", err)
	}
	return nil
}

func insertSubmissions(ctx context.Context, tx pgx.Tx, jobID, templateID, userID string, count int) ([]string, error) {
	values := make([]string, 0, count)
	args := make([]any, 0, count*4)
	for i := 0; i < count; i++ {
		base := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, NOW())", base+1, base+2, base+3, base+4))
		args = append(args, uuid.NewString(), templateID, userID, jobID)
	}

	query := `
INSERT INTO submissions (id, template_id, submitted_by, import_job_id, created_at)
VALUES ` + strings.Join(values, ", ") + `
RETURNING id`

	sqlRows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert submissions: %w", err)
	}
	defer sqlRows.Close()

	ids := make([]string, 0, count)
	for sqlRows.Next() {
		var id string
		if err := sqlRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan submission id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("insert submissions: %w", err)
	}
	if len(ids) != count {
		return nil, fmt.Errorf("insert submissions: expected %d ids, got %d", count, len(ids))
	}
	return ids, nil
}
