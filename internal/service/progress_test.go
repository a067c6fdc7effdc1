package service

import (
	"creatorhub/media-api/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = int64(1 << 20)

func TestProgressPartialUpload(t *testing.T) {
	db := newTestDB(t)
	p := NewProgressTracker(db, mib)

	// 2.5 MiB file with 1 MiB chunks expects 3 chunks
	createAsset(t, db, "m1", "clip.mp4", model.MediaVideo, 2*mib+mib/2)

	for i := range 2 {
		require.NoError(t, db.Create(&model.MediaChunk{MediaID: "m1", ChunkIndex: i, Size: mib}).Error)
	}

	got := p.GetProgress("m1")
	assert.Equal(t, int64(2), got.UploadedChunks)
	assert.Equal(t, int64(3), got.TotalChunks)
	assert.Equal(t, 67, got.Percentage)
}

func TestProgressMissingAssetIsZero(t *testing.T) {
	p := NewProgressTracker(newTestDB(t), mib)

	assert.Equal(t, Progress{}, p.GetProgress("missing"))
}

func TestProgressUnsetFileSizeIsZero(t *testing.T) {
	db := newTestDB(t)
	p := NewProgressTracker(db, mib)

	require.NoError(t, db.Create(&model.MediaAsset{
		ID:       "m1",
		Filename: "clip.mp4",
		Type:     model.MediaVideo,
		Status:   model.StatusPending,
	}).Error)

	assert.Equal(t, Progress{}, p.GetProgress("m1"))
}

func TestProgressNeverExceedsHundred(t *testing.T) {
	db := newTestDB(t)
	l := newTestLayout(t)
	chunks := NewChunkStore(db, l, mib)
	p := NewProgressTracker(db, mib)

	// 2.5 MiB file expects chunks 0..2; anything past that is rejected
	// at upload time, so the ratio cannot run away
	createAsset(t, db, "m1", "clip.mp4", model.MediaVideo, 2*mib+mib/2)

	for i := range 3 {
		_, err := chunks.UploadChunk("m1", i, make([]byte, mib))
		require.NoError(t, err)
	}

	_, err := chunks.UploadChunk("m1", 7, make([]byte, mib))
	require.ErrorIs(t, err, ErrChunkIndexOutOfRange)

	got := p.GetProgress("m1")
	assert.Equal(t, int64(3), got.UploadedChunks)
	assert.Equal(t, int64(3), got.TotalChunks)
	assert.Equal(t, 100, got.Percentage)
}

func TestProgressMonotonicUntilComplete(t *testing.T) {
	db := newTestDB(t)
	p := NewProgressTracker(db, mib)

	createAsset(t, db, "m1", "clip.mp4", model.MediaVideo, 4*mib)

	last := -1
	for i := range 4 {
		require.NoError(t, db.Create(&model.MediaChunk{MediaID: "m1", ChunkIndex: i, Size: mib}).Error)

		got := p.GetProgress("m1")
		assert.GreaterOrEqual(t, got.Percentage, last)
		last = got.Percentage

		if i < 3 {
			assert.Less(t, got.Percentage, 100)
		}
	}

	assert.Equal(t, 100, last)
}
