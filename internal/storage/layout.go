// Package storage handles where bytes live: the on-disk layout for
// chunks and outputs, and the optional S3 mirror for finished files.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Layout derives every on-disk location from an asset id. The naming
// convention is stable across restarts so that a retried assemble or a
// progress query always finds the same files.
type Layout struct {
	ChunkDir     string
	UploadDir    string
	ProcessedDir string
}

// NewLayout reads the configured directory roots.
func NewLayout() *Layout {
	return &Layout{
		ChunkDir:     viper.GetString("upload.chunk_dir"),
		UploadDir:    viper.GetString("upload.dir"),
		ProcessedDir: viper.GetString("upload.processed_dir"),
	}
}

// ChunkPath is where a single uploaded byte range is stored.
func (l *Layout) ChunkPath(mediaID string, index int) string {
	return filepath.Join(l.ChunkDir, fmt.Sprintf("%s_%d", mediaID, index))
}

// AssembledPath is the canonical location of the reassembled file.
func (l *Layout) AssembledPath(mediaID, filename string) string {
	return filepath.Join(l.UploadDir, fmt.Sprintf("%s_%s", mediaID, filename))
}

// ProcessedPath is where the re-encoded image output is written.
func (l *Layout) ProcessedPath(mediaID string) string {
	return filepath.Join(l.ProcessedDir, mediaID+"_processed.jpg")
}

// ThumbPath is where the fixed-size thumbnail is written.
func (l *Layout) ThumbPath(mediaID string) string {
	return filepath.Join(l.ProcessedDir, mediaID+"_thumb.jpg")
}
