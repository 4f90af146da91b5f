package httpapi

import (
	"net/http"
	"time"

	"hawaii-climate/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(recoverer(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
