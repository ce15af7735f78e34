package upload

import (
	"errors"
	"net/http"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/EllieBekrian/cab432/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// PresignUpload validates the request and hands back a time-limited
// upload URL, so file bytes go straight to object storage instead of
// through this server.
func PresignUpload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	username := c.MustGet("username").(string)

	if d.Transfers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Object storage is not configured.",
			"requestID": requestID,
		})
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body.",
			"requestID": requestID,
		})
		return
	}

	transfer, uploadURL, err := d.Transfers.CreateUpload(c.Request.Context(), username, req.Filename, req.ContentType, req.Size)
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Filename and a positive size are required.",
				"requestID": requestID,
			})
			return
		}

		if errors.Is(err, service.ErrTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "File exceeds the maximum allowed size.",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to create upload URL.",
			"requestID": requestID,
		})

		zap.L().Error("Failed to presign upload", zap.String("user", username), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadUrl": uploadURL,
		"fileKey":   transfer.FileKey,
		"id":        transfer.ID,
	})
}

// PresignDownload hands back a time-limited download URL for a stored
// object key.
func PresignDownload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if d.Transfers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Object storage is not configured.",
			"requestID": requestID,
		})
		return
	}

	fileKey := c.Query("key")
	if fileKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Object key is required.",
			"requestID": requestID,
		})
		return
	}

	url, err := d.Transfers.DownloadURL(c.Request.Context(), fileKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to create download URL.",
			"requestID": requestID,
		})

		zap.L().Error("Failed to presign download", zap.String("key", fileKey), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"downloadUrl": url,
	})
}
