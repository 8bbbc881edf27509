package models

import "time"

type ImportJob struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	TemplateID     string `gorm:"type:uuid;not null;index"`
	RequestedBy    string `gorm:"type:uuid;not null;index"`
	SourceFilename string `gorm:"type:text;not null"`
	StoredPath     string `gorm:"type:text;not null"`
	Status         string `gorm:"type:text;not null"`
	TotalRows      int64  `gorm:"not null;default:0"`
	ImportedCount  int64  `gorm:"not null;default:0"`
	SkippedCount   int64  `gorm:"not null;default:0"`
	Errors         []byte `gorm:"type:jsonb;not null;default:'[]'"`
	Attempts       int    `gorm:"not null;default:0"`
	MaxAttempts    int    `gorm:"not null;default:3"`
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ImportJob) TableName() string {
	return "import_jobs"
}
