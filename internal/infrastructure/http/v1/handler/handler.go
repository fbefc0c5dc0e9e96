package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/usecase"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
)

const (
	internalServerErrorText = "the server encountered an error and could not process your request"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type Handler struct {
	validate     *validator.Validate
	viewUseCase  *usecase.ViewUseCase
	frameUseCase *usecase.FrameUseCase
	tileUseCase  *usecase.TileUseCase
	notifier     *usecase.Notifier
}

func NewHandler(v *validator.Validate, view *usecase.ViewUseCase, frame *usecase.FrameUseCase, tile *usecase.TileUseCase, notifier *usecase.Notifier) *Handler {
	return &Handler{
		validate:     v,
		viewUseCase:  view,
		frameUseCase: frame,
		tileUseCase:  tile,
		notifier:     notifier,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context, err error) {
	requestLogger(c).Error("internal http_server error",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err,
	)
	_ = c.Error(err)
	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}

// requestLogger returns the logger the router attached to the request.
func requestLogger(c *gin.Context) logger.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}
