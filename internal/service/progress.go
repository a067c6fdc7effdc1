package service

import (
	"creatorhub/media-api/model"
	"errors"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Progress is the upload completion view the frontend polls. Percentage
// is derived from chunk counts only, no byte inspection.
type Progress struct {
	UploadedChunks int64 `json:"uploaded_chunks"`
	TotalChunks    int64 `json:"total_chunks"`
	Percentage     int   `json:"percentage"`
}

// ProgressTracker derives completion from the declared file size, the
// fixed chunk size and the number of persisted chunk rows.
type ProgressTracker struct {
	DB        *gorm.DB
	ChunkSize int64
}

func NewProgressTracker(db *gorm.DB, chunkSize int64) *ProgressTracker {
	return &ProgressTracker{DB: db, ChunkSize: chunkSize}
}

// GetProgress never fails: a missing asset or an unset file size is an
// unknown-yet state and reads as zero progress.
func (p *ProgressTracker) GetProgress(mediaID string) Progress {
	var asset model.MediaAsset

	err := p.DB.Select("id", "file_size").First(&asset, "id = ?", mediaID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Error("Failed to look up media asset for progress",
				zap.String("media_id", mediaID),
				zap.Error(err))
		}

		return Progress{}
	}

	total := totalChunks(asset.FileSize, p.ChunkSize)
	if total == 0 {
		return Progress{}
	}

	var uploaded int64
	if err := p.DB.Model(&model.MediaChunk{}).Where("media_id = ?", mediaID).Count(&uploaded).Error; err != nil {
		zap.L().Error("Failed to count chunks for progress",
			zap.String("media_id", mediaID),
			zap.Error(err))
		return Progress{}
	}

	return Progress{
		UploadedChunks: uploaded,
		TotalChunks:    total,
		Percentage:     int(math.Round(float64(uploaded) / float64(total) * 100)),
	}
}
