package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emifrog/speechtotalk/internal/models"
)

// Open connects to the sqlite database and migrates the schema.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connected successfully")

	if err := db.AutoMigrate(&models.CacheBlob{}, &models.ConversationBlob{}); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}
