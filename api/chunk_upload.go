package api

import (
	"creatorhub/media-api/internal/service"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChunkUpload stores one raw byte range of an upload. Chunks may arrive
// in any order and may be retried; a repeat of an index is acknowledged
// with the original record.
func (a *API) ChunkUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	mediaID := c.Param("mediaID")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid chunk index",
			"requestID": requestID,
		})
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Failed to read request body",
			"requestID": requestID,
		})
		return
	}

	if len(data) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Empty chunk",
			"requestID": requestID,
		})
		return
	}

	chunk, err := a.Chunks.UploadChunk(mediaID, index, data)
	if err != nil {
		if errors.Is(err, service.ErrMediaNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Media asset not found",
				"requestID": requestID,
			})
			return
		}

		if errors.Is(err, service.ErrChunkIndexOutOfRange) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to store chunk",
			zap.String("media_id", mediaID),
			zap.Int("chunk_index", index),
			zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, chunk)
}
