package http_server

import (
	"net/http"

	"github.com/jaennil/guide_helper/backend/tilerender/pkg/config"
)

// NewServer builds the HTTP server. onShutdown hooks run as soon as Shutdown
// starts; long-lived handlers use them to finish so Shutdown does not wait
// out its deadline.
func NewServer(cfg config.Server, handler http.Handler, onShutdown ...func()) *http.Server {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	for _, f := range onShutdown {
		srv.RegisterOnShutdown(f)
	}
	return srv
}
