// Package model defines database models
package model

// MediaType is the kind of content an asset holds. It decides which
// transformation path the processing worker takes.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	switch t {
	case MediaImage, MediaVideo, MediaAudio:
		return true
	}
	return false
}

// MediaStatus tracks an asset through its lifecycle. Transitions only
// move forward: PENDING -> PROCESSING -> READY or FAILED. READY and
// FAILED are terminal.
type MediaStatus string

const (
	StatusPending    MediaStatus = "PENDING"
	StatusProcessing MediaStatus = "PROCESSING"
	StatusReady      MediaStatus = "READY"
	StatusFailed     MediaStatus = "FAILED"
)

// Terminal reports whether no further automatic transition may happen.
func (s MediaStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

type MediaAsset struct {
	ID       string    `gorm:"primaryKey" json:"id"`
	Filename string    `gorm:"not null" json:"filename"`
	Type     MediaType `gorm:"type:varchar(16);not null" json:"type"`

	// Declared total size in bytes, provided at creation. Used together
	// with the configured chunk size to work out how many chunks are
	// expected before assembly may run.
	FileSize int64 `gorm:"not null" json:"file_size"`

	Status MediaStatus `gorm:"type:varchar(16);not null;default:PENDING;index" json:"status"`

	// Set when processing is enqueued, correlates async work to the asset
	TaskID string `json:"task_id,omitempty"`

	Width    int            `json:"width,omitempty"`
	Height   int            `json:"height,omitempty"`
	Metadata map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
	URL      string         `json:"url,omitempty"`

	// Unix millisecond timestamps
	ProcessedAt      *int64 `json:"processed_at,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	CreatedAt        int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

// MediaChunk records one uploaded byte range. The composite unique index
// on (media_id, chunk_index) is what makes duplicate uploads idempotent
// even when they race: the second insert is rejected by the database, not
// by an application-level check.
type MediaChunk struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	MediaID    string `gorm:"not null;uniqueIndex:idx_media_chunk" json:"media_id"`
	ChunkIndex int    `gorm:"not null;uniqueIndex:idx_media_chunk" json:"chunk_index"`
	Size       int64  `gorm:"not null" json:"size"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli" json:"-"`
}
