package handler

import (
	"github.com/gin-gonic/gin"

	"coinflip/internal/stream"
)

type StreamHandler struct {
	Hub *stream.Hub
}

// @Summary Live feed of settled rounds (websocket)
// @Tags stream
// @Router /api/v1/stream [get]
func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/stream", func(c *gin.Context) {
		h.Hub.ServeHTTP(c.Writer, c.Request)
	})
}
