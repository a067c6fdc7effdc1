package api

import (
	"creatorhub/media-api/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MediaComplete is the client's "all chunks sent" signal. It assembles
// the canonical file synchronously, then hands the asset to the
// processing pool and returns the task id for status polling.
func (a *API) MediaComplete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	mediaID := c.Param("mediaID")

	if _, err := a.Assembler.Assemble(mediaID); err != nil {
		// An already-assembled asset (e.g. an earlier complete call
		// that hit a full processing queue) falls through to enqueue.
		// Terminal assets are rejected there.
		if !errors.Is(err, service.ErrAlreadyProcessed) {
			switch {
			case errors.Is(err, service.ErrMediaNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"error":     "Media asset not found",
					"requestID": requestID,
				})
			case errors.Is(err, service.ErrIncompleteUpload):
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error":     err.Error(),
					"requestID": requestID,
				})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":     "Internal server error",
					"requestID": requestID,
				})

				zap.L().Error("Assembly failed",
					zap.String("media_id", mediaID),
					zap.Error(err))
			}
			return
		}
	}

	taskID, _, err := a.Orchestrator.Enqueue(mediaID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQueueFull):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":     "Processing queue is full, try again later",
				"requestID": requestID,
			})
			return
		case errors.Is(err, service.ErrAlreadyProcessed):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error":     "Media is already processed",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to enqueue processing",
			zap.String("media_id", mediaID),
			zap.Error(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"media_id": mediaID,
		"task_id":  taskID,
	})
}
