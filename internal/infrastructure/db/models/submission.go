package models

import "time"

type Submission struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	TemplateID  string  `gorm:"type:uuid;not null;index"`
	SubmittedBy string  `gorm:"type:uuid;not null;index"`
	ImportJobID *string `gorm:"type:uuid;index"`
	CreatedAt   time.Time
}

func (Submission) TableName() string {
	return "submissions"
}

type SubmissionResponse struct {
	ID           int64  `gorm:"primaryKey"`
	SubmissionID string `gorm:"type:uuid;index;not null"`
	FieldID      string `gorm:"type:uuid;not null"`
	Value        string `gorm:"type:text;not null"`
}

func (SubmissionResponse) TableName() string {
	return "submission_responses"
}
