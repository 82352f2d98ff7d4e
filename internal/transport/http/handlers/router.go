package handlers

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"
)

type Router struct {
	handler *Handler
}

func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// RegisterRoutes wires the trigger surface: GET / reports health, POST /
// runs one dispatch batch, every other method is rejected with 405.
func (r *Router) RegisterRoutes(engine *gin.Engine) {
	engine.HandleMethodNotAllowed = true

	engine.GET("/", r.handler.healthcheck)
	engine.POST("/", r.handler.dispatch)

	engine.NoMethod(func(c *gin.Context) {
		c.JSON(nethttp.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(nethttp.StatusNotFound, gin.H{"error": "Not found"})
	})
}
