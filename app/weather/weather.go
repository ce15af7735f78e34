// Package weather contains the cached weather lookup endpoint
package weather

import (
	"net/http"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Fetch proxies a current-conditions lookup for a city, served from
// the cache when a recent answer exists.
func Fetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	city := c.DefaultQuery("city", "Brisbane")

	raw, err := d.Weather.Current(c.Request.Context(), city)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to fetch weather data.",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch weather", zap.String("city", city), zap.Error(err))
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}
