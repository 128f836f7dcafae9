// Package models contains the storage models of the blob backend,
// configured to work using GORM as the ORM.
package models

import (
	"time"
)

// Blob is one independently keyed snapshot, the server-side equivalent of a
// browser local-storage entry.
type Blob struct {
	Key       string `gorm:"column:blob_key;primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName pins the table name regardless of naming strategy.
func (Blob) TableName() string {
	return "storage_blobs"
}
