package service

import (
	"creatorhub/media-api/internal/storage"
	"creatorhub/media-api/model"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProcessResult is handed to anyone awaiting a task. The same outcome is
// always written to the asset row first, so the result survives even if
// nobody is listening on the channel.
type ProcessResult struct {
	Success          bool      `json:"success"`
	MediaID          string    `json:"media_id"`
	TaskID           string    `json:"task_id"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Metadata         *Metadata `json:"metadata,omitempty"`
	Error            string    `json:"error,omitempty"`
}

type processTask struct {
	MediaID string
	TaskID  string
	Done    chan *ProcessResult
}

// Orchestrator owns the asset status state machine and runs transform
// work on a fixed-size worker pool, off the caller's path. Enqueue fails
// fast when the queue is full instead of blocking an upload request.
type Orchestrator struct {
	DB          *gorm.DB
	Transformer Transformer
	Layout      *storage.Layout

	tasks   chan *processTask
	running atomic.Int32
	workers int
}

func NewOrchestrator(db *gorm.DB, tr Transformer, l *storage.Layout, workers, queueSize int) *Orchestrator {
	zap.L().Debug("Initializing processing queue",
		zap.Int("workers", workers),
		zap.Int("queue_size", queueSize))

	return &Orchestrator{
		DB:          db,
		Transformer: tr,
		Layout:      l,
		tasks:       make(chan *processTask, queueSize),
		workers:     workers,
	}
}

func (o *Orchestrator) StartWorkerPool() {
	for range o.workers {
		go o.worker()
	}
}

func (o *Orchestrator) worker() {
	for task := range o.tasks {
		res := o.process(task)

		task.Done <- res
		close(task.Done)

		o.running.Add(-1)

		if res.Success {
			zap.L().Info("Processing task finished",
				zap.String("media_id", res.MediaID),
				zap.String("task_id", res.TaskID),
				zap.Int64("took_ms", res.ProcessingTimeMs))
		} else {
			zap.L().Error("Processing task failed",
				zap.String("media_id", res.MediaID),
				zap.String("task_id", res.TaskID),
				zap.String("error", res.Error))
		}
	}
}

// Enqueue stamps a fresh task id onto the asset, marks it PROCESSING and
// schedules the transform. The returned channel delivers the result of
// this attempt; callers that only poll the status row may ignore it.
func (o *Orchestrator) Enqueue(mediaID string) (string, <-chan *ProcessResult, error) {
	var asset model.MediaAsset

	err := o.DB.First(&asset, "id = ?", mediaID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID)
		}

		return "", nil, fmt.Errorf("failed to look up media asset, %w", err)
	}

	if asset.Status.Terminal() {
		return "", nil, fmt.Errorf("%w: %s is %s", ErrAlreadyProcessed, mediaID, asset.Status)
	}

	taskID := uuid.NewString()

	task := &processTask{
		MediaID: mediaID,
		TaskID:  taskID,
		Done:    make(chan *ProcessResult, 1),
	}

	// The queue slot is reserved before the row is stamped. A full
	// queue then leaves the asset exactly as it was, so the caller can
	// simply retry the enqueue later.
	select {
	case o.tasks <- task:
		o.running.Add(1)
	default:
		return "", nil, ErrQueueFull
	}

	// A worker may race this stamp and even finish first, so the write
	// is conditional on the asset not having reached a terminal state.
	err = o.DB.Model(&model.MediaAsset{}).
		Where("id = ? AND status IN ?", mediaID, []model.MediaStatus{model.StatusPending, model.StatusProcessing}).
		Updates(map[string]any{
			"task_id": taskID,
			"status":  model.StatusProcessing,
		}).Error
	if err != nil {
		zap.L().Error("Failed to stamp task onto asset",
			zap.String("media_id", mediaID),
			zap.String("task_id", taskID),
			zap.Error(err))
	}

	zap.L().Debug("Processing task enqueued",
		zap.String("media_id", mediaID),
		zap.String("task_id", taskID),
		zap.Int32("in_flight", o.running.Load()))

	return taskID, task.Done, nil
}

// process runs one task to completion and records the outcome. Failures
// end up in the status row, never in a panic or a lost error: by the
// time a worker runs, no caller is guaranteed to be around.
func (o *Orchestrator) process(task *processTask) *ProcessResult {
	start := time.Now()

	res := &ProcessResult{
		MediaID: task.MediaID,
		TaskID:  task.TaskID,
	}

	var asset model.MediaAsset

	err := o.DB.First(&asset, "id = ?", task.MediaID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: %s", ErrMediaNotFound, task.MediaID)
		}

		return o.recordFailure(res, start, err)
	}

	if asset.Status.Terminal() {
		res.Error = fmt.Sprintf("%v: %s is %s", ErrAlreadyProcessed, asset.ID, asset.Status)
		res.ProcessingTimeMs = time.Since(start).Milliseconds()
		return res
	}

	input := o.Layout.AssembledPath(asset.ID, asset.Filename)

	meta, err := o.Transformer.Transform(&asset, input)
	if err != nil {
		return o.recordFailure(res, start, err)
	}

	elapsed := time.Since(start).Milliseconds()
	now := time.Now().UnixMilli()

	update := &model.MediaAsset{
		Status:           model.StatusReady,
		ProcessedAt:      &now,
		ProcessingTimeMs: elapsed,
		Width:            meta.Width,
		Height:           meta.Height,
		URL:              meta.URL,
		Metadata: map[string]any{
			"thumbnail_url": meta.ThumbnailURL,
			"format":        meta.Format,
			"size":          meta.Size,
		},
	}

	out := o.DB.Model(&model.MediaAsset{}).
		Where("id = ? AND status = ?", asset.ID, model.StatusProcessing).
		Select("status", "processed_at", "processing_time_ms", "width", "height", "url", "metadata").
		Updates(update)
	if out.Error != nil {
		return o.recordFailure(res, start, fmt.Errorf("failed to record result, %w", out.Error))
	}

	// Zero rows means another actor finished the asset while this task
	// ran. Nothing was recorded, so the attempt must not claim success.
	if out.RowsAffected == 0 {
		res.Error = fmt.Sprintf("%v: %s reached a terminal state first, result discarded", ErrAlreadyProcessed, asset.ID)
		res.ProcessingTimeMs = elapsed
		return res
	}

	res.Success = true
	res.ProcessingTimeMs = elapsed
	res.Metadata = meta
	return res
}

// recordFailure moves the asset to FAILED with timing attached. The
// transition is conditional on PROCESSING so a terminal row is never
// overwritten.
func (o *Orchestrator) recordFailure(res *ProcessResult, start time.Time, cause error) *ProcessResult {
	elapsed := time.Since(start).Milliseconds()

	err := o.DB.Model(&model.MediaAsset{}).
		Where("id = ? AND status = ?", res.MediaID, model.StatusProcessing).
		Select("status", "processing_time_ms").
		Updates(&model.MediaAsset{
			Status:           model.StatusFailed,
			ProcessingTimeMs: elapsed,
		}).Error
	if err != nil {
		zap.L().Error("Failed to record processing failure",
			zap.String("media_id", res.MediaID),
			zap.Error(err))
	}

	res.Error = cause.Error()
	res.ProcessingTimeMs = elapsed
	return res
}
