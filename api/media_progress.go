package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MediaProgress reports upload completion. A missing asset reads as zero
// progress rather than an error so the frontend can poll before the
// first chunk lands.
func (a *API) MediaProgress(c *gin.Context) {
	c.JSON(http.StatusOK, a.Progress.GetProgress(c.Param("mediaID")))
}
