// Package admin contains the scan-backed aggregate endpoints. These
// walk the whole table, so they're admin-gated and response-cached.
package admin

import (
	"net/http"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Files lists every file record across all users.
func Files(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	files, err := d.Meta.AllFiles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list all files", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
	})
}

// Users lists every registered user.
func Users(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	users, err := d.Meta.AllUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list all users", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
	})
}
