package response

import (
	"github.com/gin-gonic/gin"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/service"
)

// Envelope is the wire shape of every trigger-surface response.
type Envelope struct {
	Success bool                     `json:"success"`
	Health  *service.HealthReport    `json:"health,omitempty"`
	Summary *service.DispatchSummary `json:"summary,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

func RespondHealth(c *gin.Context, report service.HealthReport) {
	c.JSON(200, Envelope{Success: true, Health: &report})
}

func RespondSummary(c *gin.Context, summary service.DispatchSummary) {
	c.JSON(200, Envelope{Success: true, Summary: &summary})
}

func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Error: message})
}
