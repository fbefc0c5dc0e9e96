package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
)

// TileLayer serves one stored layer of a tile as PNG.
func (h *Handler) TileLayer(c *gin.Context) {
	l := requestLogger(c)

	strX := c.Param("x")
	strY := c.Param("y")
	strZ := c.Param("z")

	x, err := strconv.Atoi(strX)
	if err != nil {
		l.Warn("invalid x parameter", "x", strX, "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, "x should be integer", nil)
		return
	}

	y, err := strconv.Atoi(strY)
	if err != nil {
		l.Warn("invalid y parameter", "y", strY, "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, "y should be integer", nil)
		return
	}

	z, err := strconv.Atoi(strZ)
	if err != nil {
		l.Warn("invalid z parameter", "z", strZ, "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, "z should be integer", nil)
		return
	}

	layer, err := cache.ParseLayer(c.Param("layer"))
	if err != nil {
		l.Warn("invalid layer parameter", "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	k := cache.Key{Z: z, X: x, Y: y}
	var buf bytes.Buffer
	found, err := h.tileUseCase.WriteLayerPNG(k, layer, &buf)
	if err != nil {
		h.RespondWithInternalServerError(c, err)
		return
	}
	if !found {
		h.RespondWithJSON(c, http.StatusNotFound, "layer not rendered", nil)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) Stats(c *gin.Context) {
	resp := dto.StatsResponse{
		Levels:      h.tileUseCase.Stats(),
		Subscribers: h.notifier.Subscribers(),
	}
	h.RespondWithJSON(c, http.StatusOK, "got stats", resp)
}
