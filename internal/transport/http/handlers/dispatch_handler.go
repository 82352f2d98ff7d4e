package handlers

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/service"
	"github.com/manisense/constellation-push-dispatcher/internal/transport/http/response"
)

type Handler struct {
	dispatcher service.DispatchService
	health     service.HealthService
}

func NewHandler(dispatcher service.DispatchService, health service.HealthService) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		health:     health,
	}
}

type dispatchRequest struct {
	BatchSize *int `json:"batch_size"`
}

func (h *Handler) dispatch(c *gin.Context) {
	// A missing or malformed body falls back to the default batch size.
	var req dispatchRequest
	_ = c.ShouldBindJSON(&req)

	size := 0
	if req.BatchSize != nil {
		size = *req.BatchSize
	}

	summary, err := h.dispatcher.Run(c.Request.Context(), size)
	if err != nil {
		response.RespondError(c, nethttp.StatusInternalServerError, err.Error())
		return
	}
	response.RespondSummary(c, summary)
}

// healthcheck always answers 200 when the store is reachable; degraded is a
// verdict in the body, not a transport failure.
func (h *Handler) healthcheck(c *gin.Context) {
	report, err := h.health.Report(c.Request.Context())
	if err != nil {
		response.RespondError(c, nethttp.StatusInternalServerError, err.Error())
		return
	}
	response.RespondHealth(c, report)
}
