package models

import "time"

type FormTemplate struct {
	ID        string      `gorm:"type:uuid;primaryKey"`
	Name      string      `gorm:"size:255;not null"`
	CreatedBy string      `gorm:"type:uuid;not null"`
	Fields    []FormField `gorm:"foreignKey:TemplateID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FormTemplate) TableName() string {
	return "form_templates"
}

type FormField struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	TemplateID string `gorm:"type:uuid;index;not null"`
	Label      string `gorm:"size:255;not null"`
	FieldType  string `gorm:"type:text;not null"`
	IsRequired bool   `gorm:"not null;default:false"`
	Options    []byte `gorm:"type:jsonb"`
	Rules      []byte `gorm:"type:jsonb"`
	Position   int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (FormField) TableName() string {
	return "form_fields"
}
