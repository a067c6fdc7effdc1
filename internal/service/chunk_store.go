package service

import (
	"creatorhub/media-api/internal/storage"
	"creatorhub/media-api/model"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkStore persists one uploaded byte range per (mediaID, chunkIndex).
// Retried uploads of the same index are no-ops that return the original
// record, so clients can re-send after a timeout without corrupting
// anything.
type ChunkStore struct {
	DB        *gorm.DB
	Layout    *storage.Layout
	ChunkSize int64
}

func NewChunkStore(db *gorm.DB, l *storage.Layout, chunkSize int64) *ChunkStore {
	return &ChunkStore{DB: db, Layout: l, ChunkSize: chunkSize}
}

// UploadChunk durably stores data for (mediaID, index) and records it.
// The file hits disk before the row is created so a crash in between
// never leaves a recorded-but-unreadable chunk. Concurrent uploads of
// the same index race on the unique index, and the loser returns the
// winner's row.
func (s *ChunkStore) UploadChunk(mediaID string, index int, data []byte) (*model.MediaChunk, error) {
	var asset model.MediaAsset

	err := s.DB.Select("id", "file_size").First(&asset, "id = ?", mediaID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID)
		}

		return nil, fmt.Errorf("failed to look up media asset, %w", err)
	}

	// The declared file size bounds the index space. Without this an
	// index past the end would count toward completeness while leaving
	// a hole in 0..n-1, and assembly would emit a corrupt file.
	if expected := totalChunks(asset.FileSize, s.ChunkSize); int64(index) >= expected {
		return nil, fmt.Errorf("%w: index %d, asset expects %d chunks", ErrChunkIndexOutOfRange, index, expected)
	}

	var existing model.MediaChunk

	err = s.DB.First(&existing, "media_id = ? AND chunk_index = ?", mediaID, index).Error
	if err == nil {
		zap.L().Debug("Duplicate chunk upload ignored",
			zap.String("media_id", mediaID),
			zap.Int("chunk_index", index))
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up chunk, %w", err)
	}

	p := s.Layout.ChunkPath(mediaID, index)

	if err := os.WriteFile(p, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChunkWriteFailure, err)
	}

	chunk := &model.MediaChunk{
		MediaID:    mediaID,
		ChunkIndex: index,
		Size:       int64(len(data)),
	}

	// Two identical uploads can pass the existence check at the same
	// time. The unique index decides the winner, DoNothing keeps the
	// loser from failing, and we hand back whichever row made it in.
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(chunk)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record chunk, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		err = s.DB.First(&existing, "media_id = ? AND chunk_index = ?", mediaID, index).Error
		if err != nil {
			return nil, fmt.Errorf("failed to look up chunk after conflict, %w", err)
		}

		return &existing, nil
	}

	zap.L().Debug("Chunk stored",
		zap.String("media_id", mediaID),
		zap.Int("chunk_index", index),
		zap.Int("size", len(data)))

	return chunk, nil
}
