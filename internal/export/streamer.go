// Package export streams submissions back out as a spreadsheet. It is the
// simple mirror of the import pipeline: no chunk jobs, no state record,
// just a batched cursor feeding a row writer.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
	"github.com/hrpanel/bulk-import/internal/infrastructure/db/models"
	"gorm.io/gorm"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

type Filter struct {
	SubmittedBy string
	From        *time.Time
	To          *time.Time
}

type Streamer struct {
	db      *gorm.DB
	schemas domain.SchemaProvider
	// xlsxRowCeiling is the estimated row count above which the export
	// falls back to CSV; spreadsheet apps stop being useful well before
	// xlsx stops being valid.
	xlsxRowCeiling int64
	batchSize      int
}

func NewStreamer(db *gorm.DB, schemas domain.SchemaProvider, xlsxRowCeiling int64, batchSize int) *Streamer {
	if xlsxRowCeiling <= 0 {
		xlsxRowCeiling = 50000
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Streamer{db: db, schemas: schemas, xlsxRowCeiling: xlsxRowCeiling, batchSize: batchSize}
}

// EstimateFormat picks the output format from the estimated row count, so
// the HTTP layer can set headers before any row is written.
func (s *Streamer) EstimateFormat(ctx context.Context, templateID string, filter Filter) (Format, error) {
	count, err := s.count(ctx, templateID, filter)
	if err != nil {
		return "", err
	}
	if count <= s.xlsxRowCeiling {
		return FormatXLSX, nil
	}
	return FormatCSV, nil
}

func (s *Streamer) Stream(ctx context.Context, w io.Writer, format Format, templateID string, filter Filter) error {
	fields, err := s.schemas.GetFields(ctx, templateID)
	if err != nil {
		return fmt.Errorf("load template fields: %w", err)
	}

	var rw rowWriter
	switch format {
	case FormatCSV:
		rw = newCSVRowWriter(w)
	case FormatXLSX:
		rw, err = newXLSXRowWriter(w)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}

	header := make([]string, 0, len(fields)+1)
	header = append(header, "submitted_at")
	for _, f := range fields {
		header = append(header, f.Label)
	}
	if err := rw.WriteRow(header); err != nil {
		return err
	}

	query := s.query(templateID, filter).Order("created_at ASC")

	var batch []models.Submission
	result := query.WithContext(ctx).FindInBatches(&batch, s.batchSize, func(_ *gorm.DB, _ int) error {
		values, err := s.responsesFor(ctx, batch)
		if err != nil {
			return err
		}
		for _, sub := range batch {
			row := make([]string, 0, len(fields)+1)
			row = append(row, sub.CreatedAt.Format(time.RFC3339))
			for _, f := range fields {
				row = append(row, values[sub.ID][f.ID])
			}
			if err := rw.WriteRow(row); err != nil {
				return err
			}
		}
		return nil
	})
	if result.Error != nil {
		return fmt.Errorf("stream submissions: %w", result.Error)
	}

	return rw.Flush()
}

func (s *Streamer) count(ctx context.Context, templateID string, filter Filter) (int64, error) {
	var count int64
	if err := s.query(templateID, filter).WithContext(ctx).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

func (s *Streamer) query(templateID string, filter Filter) *gorm.DB {
	query := s.db.Model(&models.Submission{}).Where("template_id = ?", templateID)
	if filter.SubmittedBy != "" {
		query = query.Where("submitted_by = ?", filter.SubmittedBy)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}

func (s *Streamer) responsesFor(ctx context.Context, batch []models.Submission) (map[string]map[string]string, error) {
	ids := make([]string, 0, len(batch))
	for _, sub := range batch {
		ids = append(ids, sub.ID)
	}

	var responses []models.SubmissionResponse
	if err := s.db.WithContext(ctx).Where("submission_id IN ?", ids).Find(&responses).Error; err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	values := make(map[string]map[string]string, len(batch))
	for _, resp := range responses {
		if values[resp.SubmissionID] == nil {
			values[resp.SubmissionID] = make(map[string]string)
		}
		values[resp.SubmissionID][resp.FieldID] = resp.Value
	}
	return values, nil
}
