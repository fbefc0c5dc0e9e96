package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/usecase"
)

func toViewResponse(st usecase.ViewState) dto.ViewResponse {
	return dto.ViewResponse{
		CenterX: st.CenterX,
		CenterY: st.CenterY,
		Lon:     st.Lon,
		Lat:     st.Lat,
		Zoom:    st.Zoom,
		Width:   st.Width,
		Height:  st.Height,
		BBox: dto.BBoxResponse{
			MinX: st.BBox.MinX,
			MinY: st.BBox.MinY,
			MaxX: st.BBox.MaxX,
			MaxY: st.BBox.MaxY,
		},
	}
}

// bind decodes and validates a JSON body, answering 400 itself on failure.
func (h *Handler) bind(c *gin.Context, req any) bool {
	l := requestLogger(c)

	if err := c.ShouldBindJSON(req); err != nil {
		l.Warn("failed to decode request body", "path", c.Request.URL.Path, "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, "failed to decode request body", nil)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		l.Warn("invalid request", "path", c.Request.URL.Path, "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	return true
}

func (h *Handler) GetView(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusOK, "got view", toViewResponse(h.viewUseCase.Get()))
}

func (h *Handler) SetView(c *gin.Context) {
	var req dto.ViewRequest
	if !h.bind(c, &req) {
		return
	}
	if (req.Lon == nil) != (req.Lat == nil) {
		h.RespondWithJSON(c, http.StatusBadRequest, "lon and lat must be given together", nil)
		return
	}

	st := h.viewUseCase.Set(usecase.ViewUpdate{
		CenterX: req.CenterX,
		CenterY: req.CenterY,
		Lon:     req.Lon,
		Lat:     req.Lat,
		Zoom:    req.Zoom,
		Width:   req.Width,
		Height:  req.Height,
	})

	h.RespondWithJSON(c, http.StatusOK, "view updated", toViewResponse(st))
}

func (h *Handler) Pan(c *gin.Context) {
	var req dto.PanRequest
	if !h.bind(c, &req) {
		return
	}

	st := h.viewUseCase.Pan(req.DX, req.DY)
	h.RespondWithJSON(c, http.StatusOK, "view panned", toViewResponse(st))
}

func (h *Handler) Zoom(c *gin.Context) {
	var req dto.ZoomRequest
	if !h.bind(c, &req) {
		return
	}

	st := h.viewUseCase.Zoom(req.Delta)
	h.RespondWithJSON(c, http.StatusOK, "view zoomed", toViewResponse(st))
}
