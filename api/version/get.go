package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
)

// Get handles version requests
// @Summary      Build information
// @Tags         health
// @Produce      json
// @Success      200 {object} object{name=string,version=string,commit=string,build_date=string}
// @Router       /version [get]
func Get(info types.VersionInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":       "recorder-api",
			"version":    info.Version,
			"commit":     info.Commit,
			"build_date": info.BuildDate,
		})
	}
}
