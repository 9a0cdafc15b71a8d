package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spirolink-backend/internal/api"
	"spirolink-backend/internal/contact"
)

func (h *handlers) contact(c *gin.Context) {
	var form contact.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.MsgInvalidBody})
		return
	}
	if err := h.deps.Contact.Send(c.Request.Context(), form); err != nil {
		h.respondError(c, "contact", err)
		return
	}
	c.JSON(http.StatusOK, api.SuccessResponse{Success: true})
}
