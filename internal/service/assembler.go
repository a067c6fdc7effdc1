package service

import (
	"creatorhub/media-api/internal/storage"
	"creatorhub/media-api/model"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Assembler concatenates every chunk of an asset, in index order, into
// the canonical upload file and then retires the chunk state.
type Assembler struct {
	DB        *gorm.DB
	Layout    *storage.Layout
	ChunkSize int64
}

func NewAssembler(db *gorm.DB, l *storage.Layout, chunkSize int64) *Assembler {
	return &Assembler{DB: db, Layout: l, ChunkSize: chunkSize}
}

// Assemble writes the single output file for mediaID and returns its
// path. It refuses to run on a sparse chunk set (ErrIncompleteUpload)
// and on an asset that is not PENDING (ErrAlreadyProcessed), so two
// concurrent calls can't interleave writes: the PENDING -> PROCESSING
// transition is a compare-and-swap and only one caller wins it.
func (a *Assembler) Assemble(mediaID string) (string, error) {
	var asset model.MediaAsset

	err := a.DB.First(&asset, "id = ?", mediaID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID)
		}

		return "", fmt.Errorf("failed to look up media asset, %w", err)
	}

	// Checked before chunk math: a finished or in-flight asset has no
	// chunk rows left, which would masquerade as an incomplete upload.
	if asset.Status != model.StatusPending {
		return "", fmt.Errorf("%w: %s is %s", ErrAlreadyProcessed, mediaID, asset.Status)
	}

	var chunks []model.MediaChunk

	err = a.DB.Where("media_id = ?", mediaID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return "", fmt.Errorf("failed to load chunks, %w", err)
	}

	// Every index 0..n-1 must be present exactly once. A bare count
	// would accept a set with a hole in it.
	expected := totalChunks(asset.FileSize, a.ChunkSize)
	if int64(len(chunks)) != expected {
		return "", fmt.Errorf("%w: have %d of %d chunks", ErrIncompleteUpload, len(chunks), expected)
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			return "", fmt.Errorf("%w: chunk %d is missing", ErrIncompleteUpload, i)
		}
	}

	res := a.DB.Model(&model.MediaAsset{}).
		Where("id = ? AND status = ?", mediaID, model.StatusPending).
		Update("status", model.StatusProcessing)
	if res.Error != nil {
		return "", fmt.Errorf("failed to transition status, %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", fmt.Errorf("%w: %s is %s", ErrAlreadyProcessed, mediaID, asset.Status)
	}

	out, err := a.writeOutput(&asset, chunks)
	if err != nil {
		// Put the asset back so the client can retry once the cause is
		// fixed. Chunk files and rows are untouched at this point.
		a.DB.Model(&model.MediaAsset{}).
			Where("id = ? AND status = ?", mediaID, model.StatusProcessing).
			Update("status", model.StatusPending)
		return "", err
	}

	a.cleanupChunks(&asset, int(expected))

	zap.L().Info("Assembly finished",
		zap.String("media_id", mediaID),
		zap.Int64("chunks", expected),
		zap.String("output", out))

	return out, nil
}

func (a *Assembler) writeOutput(asset *model.MediaAsset, chunks []model.MediaChunk) (string, error) {
	outPath := a.Layout.AssembledPath(asset.ID, asset.Filename)

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file, %w", err)
	}

	for _, c := range chunks {
		if err := a.appendChunk(out, asset.ID, c.ChunkIndex); err != nil {
			out.Close()
			os.Remove(outPath)
			return "", err
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("failed to finalize output file, %w", err)
	}

	return outPath, nil
}

func (a *Assembler) appendChunk(out *os.File, mediaID string, index int) error {
	f, err := os.Open(a.Layout.ChunkPath(mediaID, index))
	if err != nil {
		return fmt.Errorf("%w: chunk %d, %v", ErrChunkReadFailure, index, err)
	}
	defer f.Close()

	if _, err := io.Copy(out, f); err != nil {
		return fmt.Errorf("%w: chunk %d, %v", ErrChunkReadFailure, index, err)
	}

	return nil
}

// cleanupChunks removes chunk files and rows after a successful write.
// File removal is best effort, the rows are authoritative.
func (a *Assembler) cleanupChunks(asset *model.MediaAsset, count int) {
	for i := range count {
		p := a.Layout.ChunkPath(asset.ID, i)
		if err := os.Remove(p); err != nil {
			zap.L().Warn("Failed to remove chunk file",
				zap.String("path", p),
				zap.Error(err))
		}
	}

	if err := a.DB.Where("media_id = ?", asset.ID).Delete(&model.MediaChunk{}).Error; err != nil {
		zap.L().Error("Failed to delete chunk records",
			zap.String("media_id", asset.ID),
			zap.Error(err))
	}
}

// totalChunks is ceil(fileSize / chunkSize).
func totalChunks(fileSize, chunkSize int64) int64 {
	if fileSize <= 0 || chunkSize <= 0 {
		return 0
	}

	return (fileSize + chunkSize - 1) / chunkSize
}
