package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Build information, overridden at link time with -ldflags "-X ..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info describes the running build
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	Status    string `json:"status"`
}

// Current returns the build information
func Current() Info {
	return Info{
		Name:      "Route Planner API",
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		Status:    "running",
	}
}

// Get handles version requests
// @Summary      Version
// @Description  Returns build information
// @Tags         health
// @Produce      json
// @Success      200 {object} version.Info
// @Router       /version [get]
func Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, Current())
	}
}
