package models

import "time"

// CacheBlob is the key-value persistence row backing the translation cache.
// The whole cache aggregate is serialized as one JSON blob under a single
// versioned key; writes are full overwrites, never incremental.
type CacheBlob struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;not null;size:100" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CacheBlob) TableName() string {
	return "cache_blobs"
}
