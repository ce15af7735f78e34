package upload

import (
	"net/http"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileList returns the metadata of every file the caller owns. No
// files is an empty listing, not an error.
func FileList(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	username := c.MustGet("username").(string)

	files, err := d.Meta.FileMetadata(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "An internal error occurred while fetching files.",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch files", zap.String("user", username), zap.Error(err))
		return
	}

	if len(files) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message": "No files uploaded yet.",
			"files":   files,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Files fetched successfully.",
		"files":   files,
	})
}

// FileDelete removes one of the caller's files by name.
func FileDelete(c *gin.Context, d *internal.Deps) {
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

	if err := d.Meta.DeleteFile(c.Request.Context(), username, fileName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to delete file.",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete file", zap.String("user", username), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File deleted.",
	})
}
