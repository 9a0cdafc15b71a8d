package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spirolink-backend/internal/api"
	"spirolink-backend/internal/usecase"
)

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: api.HealthStatus})
}

func (h *handlers) chat(c *gin.Context) {
	var req api.ChatRequest
	// An absent body is treated like {} so it fails as an empty message.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.MsgInvalidBody})
		return
	}

	start := time.Now()
	out, err := h.deps.Relay.Relay(c.Request.Context(), usecase.RelayInput{
		Message: req.Message,
		Context: req.Context,
	})
	if m := h.deps.Metrics; m != nil {
		code := "OK"
		if err != nil {
			code = string(api.Code(err))
		}
		m.RecordRelay(code, time.Since(start))
	}
	if err != nil {
		h.respondError(c, "relay", err)
		return
	}

	c.JSON(http.StatusOK, api.ChatReply{Success: true, Reply: out.Reply, Model: out.Model})
}
