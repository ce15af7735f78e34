// Package upload contains the endpoints driving the upload and
// transcoding flow
package upload

import (
	"errors"
	"net/http"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/EllieBekrian/cab432/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	FileName string `json:"fileName"`
}

// UploadRegister records a newly uploaded file and kicks off its
// transcoding job. The response doesn't wait for the job, the caller
// tracks it through the progress endpoint or the live channel.
func UploadRegister(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	username := c.MustGet("username").(string)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "File name is required.",
			"requestID": requestID,
		})
		return
	}

	trackingID, err := d.Pipeline.Submit(c.Request.Context(), username, req.FileName)
	if err != nil {
		if errors.Is(err, service.ErrNoFileName) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "File name is required.",
				"requestID": requestID,
			})
			return
		}

		if errors.Is(err, service.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":     "Too many jobs running, try again later.",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to handle upload.",
			"requestID": requestID,
		})

		zap.L().Error("Failed to handle upload", zap.String("user", username), zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "File metadata saved. Transcoding has started.",
		"fileName":   req.FileName,
		"progressId": trackingID,
	})
}
