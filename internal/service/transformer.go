package service

import (
	"context"
	"creatorhub/media-api/internal/storage"
	"creatorhub/media-api/model"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	jpegQuality   = 85
	thumbSize     = 200
	uploadTimeout = time.Minute
)

// Metadata is what a transformation produces: where the outputs ended up
// and what they look like.
type Metadata struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Format       string `json:"format,omitempty"`
	Size         int64  `json:"size"`
}

// Transformer turns an assembled file into its processed outputs. The
// orchestrator only knows this interface so tests can drop in a fake.
type Transformer interface {
	Transform(asset *model.MediaAsset, inputPath string) (*Metadata, error)
}

// MediaTransformer dispatches on the asset type. Images are resized and
// thumbnailed, video and audio pass through untouched until real codec
// work lands here.
type MediaTransformer struct {
	Layout        *storage.Layout
	S3            *storage.S3Client
	MaxImageWidth int
}

func NewMediaTransformer(l *storage.Layout, s3 *storage.S3Client, maxImageWidth int) *MediaTransformer {
	return &MediaTransformer{
		Layout:        l,
		S3:            s3,
		MaxImageWidth: maxImageWidth,
	}
}

func (t *MediaTransformer) Transform(asset *model.MediaAsset, inputPath string) (*Metadata, error) {
	switch asset.Type {
	case model.MediaImage:
		return t.processImage(asset, inputPath)
	case model.MediaVideo, model.MediaAudio:
		return t.passThrough(asset, inputPath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, asset.Type)
	}
}

// processImage re-encodes the source as a quality-bounded JPEG, shrinking
// it proportionally when it is wider than MaxImageWidth (never upscaling),
// and cuts a square thumbnail from the center.
func (t *MediaTransformer) processImage(asset *model.MediaAsset, inputPath string) (*Metadata, error) {
	src, err := imaging.Open(inputPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image, %v", ErrProcessingFailure, err)
	}

	if src.Bounds().Dx() > t.MaxImageWidth {
		src = imaging.Resize(src, t.MaxImageWidth, 0, imaging.Lanczos)
	}

	outPath := t.Layout.ProcessedPath(asset.ID)
	if err := imaging.Save(src, outPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%w: failed to encode image, %v", ErrProcessingFailure, err)
	}

	thumb := imaging.Fill(src, thumbSize, thumbSize, imaging.Center, imaging.Lanczos)

	thumbPath := t.Layout.ThumbPath(asset.ID)
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%w: failed to encode thumbnail, %v", ErrProcessingFailure, err)
	}

	stat, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailure, err)
	}

	meta := &Metadata{
		URL:          outPath,
		ThumbnailURL: thumbPath,
		Width:        src.Bounds().Dx(),
		Height:       src.Bounds().Dy(),
		Format:       "image/jpeg",
		Size:         stat.Size(),
	}

	if t.S3 != nil {
		if err := t.mirror(meta, outPath, thumbPath); err != nil {
			return nil, err
		}
	}

	zap.L().Debug("Image processed",
		zap.String("media_id", asset.ID),
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
		zap.Int64("size", meta.Size))

	return meta, nil
}

// passThrough records the assembled file as the processed output. Codec
// work for video and audio plugs in here later.
func (t *MediaTransformer) passThrough(asset *model.MediaAsset, inputPath string) (*Metadata, error) {
	stat, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailure, err)
	}

	format := ""
	if mtype, err := mimetype.DetectFile(inputPath); err == nil {
		format = mtype.String()
	}

	meta := &Metadata{
		URL:    inputPath,
		Format: format,
		Size:   stat.Size(),
	}

	if t.S3 != nil {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()

		key := filepath.Base(inputPath)
		if err := t.S3.UploadFile(ctx, key, inputPath, format); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailure, err)
		}

		meta.URL = t.S3.ObjectURL(key)
	}

	return meta, nil
}

// mirror pushes both image outputs to the bucket and rewrites the URLs
// to point at it.
func (t *MediaTransformer) mirror(meta *Metadata, outPath, thumbPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	outKey := filepath.Base(outPath)
	thumbKey := filepath.Base(thumbPath)

	if err := t.S3.UploadFile(ctx, outKey, outPath, "image/jpeg"); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessingFailure, err)
	}

	if err := t.S3.UploadFile(ctx, thumbKey, thumbPath, "image/jpeg"); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessingFailure, err)
	}

	meta.URL = t.S3.ObjectURL(outKey)
	meta.ThumbnailURL = t.S3.ObjectURL(thumbKey)
	return nil
}
