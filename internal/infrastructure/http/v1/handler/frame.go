package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Frame serves the current viewport composited from every rendered layer.
func (h *Handler) Frame(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.frameUseCase.WritePNG(c.Request.Context(), &buf); err != nil {
		h.RespondWithInternalServerError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
