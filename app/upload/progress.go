package upload

import (
	"net/http"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProgressFetch returns the live progress record for one of the
// caller's files, or a not-found payload when none exists.
func ProgressFetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	username := c.MustGet("username").(string)

	fileName := c.Param("fileName")
	if fileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "File name is required.",
			"requestID": requestID,
		})
		return
	}

	p, err := d.Meta.Progress(c.Request.Context(), username, fileName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to fetch progress.",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch progress", zap.String("user", username), zap.Error(err))
		return
	}

	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "No progress found.",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, p)
}
