// Package db opens the relational store and keeps the schema current
package db

import (
	"creatorhub/media-api/model"
	"fmt"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the database selected by db.driver and migrates the media
// tables. The (media_id, chunk_index) unique index created here is load
// bearing: it is what makes concurrent duplicate chunk uploads collapse
// into a single row.
func New() (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch viper.GetString("db.driver") {
	case "postgres":
		dialector = postgres.Open(viper.GetString("db.dsn"))
	default:
		dialector = sqlite.Open(viper.GetString("db.dsn"))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	if err := db.AutoMigrate(&model.MediaAsset{}, &model.MediaChunk{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations, %w", err)
	}

	return db, nil
}
