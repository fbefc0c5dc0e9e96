package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(handler *handler.Handler, l logger.Logger, telemetryEnabled bool, serviceName string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	// Add OpenTelemetry middleware if enabled
	if telemetryEnabled {
		r.Use(telemetry.GinMiddleware(serviceName))
	}

	r.Use(ginZapLogger(l))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", handler.Healthz)

	v1.GET("/view", handler.GetView)
	v1.PUT("/view", handler.SetView)
	v1.POST("/view/pan", handler.Pan)
	v1.POST("/view/zoom", handler.Zoom)

	v1.GET("/frame.png", handler.Frame)
	v1.GET("/tile/:z/:x/:y/:layer", handler.TileLayer)
	v1.GET("/cache/stats", handler.Stats)
	v1.GET("/events", handler.Events)

	// Prometheus metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("logger", l)
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), l))

		start := time.Now()

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}
