package repository

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
	"github.com/hrpanel/bulk-import/internal/infrastructure/db/models"
	"gorm.io/gorm"
)

// TemplateRepository is the read-only schema provider backed by the form
// template store. Fields come back in template order.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) GetFields(ctx context.Context, templateID string) ([]domain.FieldSchema, error) {
	var rows []models.FormField
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load form fields: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("template %s has no fields", templateID)
	}

	fields := make([]domain.FieldSchema, 0, len(rows))
	for _, row := range rows {
		field := domain.FieldSchema{
			ID:       row.ID,
			Label:    row.Label,
			Type:     domain.FieldType(row.FieldType),
			Required: row.IsRequired,
		}
		if len(row.Options) > 0 {
			if err := json.Unmarshal(row.Options, &field.Options); err != nil {
				return nil, fmt.Errorf("field %s options: %w", row.ID, err)
			}
		}
		if len(row.Rules) > 0 {
			if err := json.Unmarshal(row.Rules, &field.Rules); err != nil {
				return nil, fmt.Errorf("field %s rules: %w", row.ID, err)
			}
		}
		fields = append(fields, field)
	}
	return fields, nil
}
