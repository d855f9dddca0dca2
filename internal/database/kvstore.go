package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emifrog/speechtotalk/internal/models"
)

// KVStore persists opaque string blobs under string keys, backed by the
// cache_blobs table. The translation cache stores its whole aggregate as a
// single JSON blob here; writes are full overwrites via upsert.
type KVStore struct {
	db *gorm.DB
}

// NewKVStore returns a blob store over db.
func NewKVStore(db *gorm.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the blob stored under key, or ("", false) when absent.
func (s *KVStore) Get(key string) (string, bool, error) {
	if s.db == nil {
		return "", false, nil
	}

	var blob models.CacheBlob
	err := s.db.Where("key = ?", key).First(&blob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return blob.Value, true, nil
}

// Set overwrites the blob under key.
func (s *KVStore) Set(key, value string) error {
	if s.db == nil {
		return nil
	}

	blob := models.CacheBlob{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
}

// Remove deletes the blob under key. Removing a missing key is not an error.
func (s *KVStore) Remove(key string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Where("key = ?", key).Delete(&models.CacheBlob{}).Error
}
