package model

import (
	"time"

	"gorm.io/datatypes"
)

// Collection names used by the grading bridge.
const (
	CollectionSubmissions     = "submissions"
	CollectionGradeIdentifier = "edx-grade-identifiers"
	CollectionUsers           = "users"
)

// Document is one row of the SQL-backed document store. Data holds the whole
// document as JSON so that equality queries can reach nested fields.
type Document struct {
	Collection string            `gorm:"primaryKey;size:64" json:"collection"`
	ID         string            `gorm:"primaryKey;size:191" json:"id"`
	Data       datatypes.JSONMap `gorm:"not null" json:"data"`
	Version    int64             `gorm:"not null;default:0" json:"version"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}
