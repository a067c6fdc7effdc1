package api

import (
	"creatorhub/media-api/model"
	"creatorhub/media-api/validators"
	"net/http"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

type createMediaRequest struct {
	Filename string          `json:"filename"`
	Type     model.MediaType `json:"type"`
	FileSize int64           `json:"file_size"`
}

// MediaCreate registers a new asset in PENDING state. The declared file
// size is what the chunk math is based on, so it is validated up front.
func (a *API) MediaCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var req createMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	code, err := validators.Media(req.Filename, req.Type, req.FileSize)
	if err != nil {
		c.AbortWithStatusJSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate media id", zap.Error(err))
		return
	}

	asset := &model.MediaAsset{
		ID:       id,
		Filename: req.Filename,
		Type:     req.Type,
		FileSize: req.FileSize,
		Status:   model.StatusPending,
	}

	if err := a.DB.Create(asset).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create media asset", zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, asset)
}
