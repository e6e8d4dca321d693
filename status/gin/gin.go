// Package gin exposes the current usage snapshot as a Gin handler.
package gin

import (
	"github.com/gin-gonic/gin"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
	statushttp "github.com/usagewatch/usagewatch/status/http"
)

// Config holds status handler configuration.
type Config struct {
	// Renderer produces the snapshot on each request (required).
	Renderer usagewatch.Renderer
}

// Handler returns a Gin handler serving the current usage status as JSON.
func Handler(config Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, snapshot := config.Renderer.Refresh(c.Request.Context())
		c.JSON(statushttp.StatusCode(state), statushttp.NewResponse(state, snapshot))
	}
}
