package service

import (
	"creatorhub/media-api/internal/storage"
	"creatorhub/media-api/model"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.MediaAsset{}, &model.MediaChunk{}))

	return db
}

func newTestLayout(t *testing.T) *storage.Layout {
	t.Helper()

	root := t.TempDir()

	return &storage.Layout{
		ChunkDir:     root,
		UploadDir:    root,
		ProcessedDir: root,
	}
}

func createAsset(t *testing.T, db *gorm.DB, id, filename string, typ model.MediaType, fileSize int64) *model.MediaAsset {
	t.Helper()

	asset := &model.MediaAsset{
		ID:       id,
		Filename: filename,
		Type:     typ,
		FileSize: fileSize,
		Status:   model.StatusPending,
	}
	require.NoError(t, db.Create(asset).Error)

	return asset
}
