package api

import (
	"creatorhub/media-api/model"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MediaFetch returns the asset record. Processing outcomes are only
// visible through the status field here, async failures are never pushed
// to the client.
func (a *API) MediaFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	mediaID := c.Param("mediaID")

	var asset model.MediaAsset

	err := a.DB.First(&asset, "id = ?", mediaID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Media asset not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch media asset",
			zap.String("media_id", mediaID),
			zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, asset)
}
