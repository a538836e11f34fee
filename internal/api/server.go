package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sysfeed/wdt-agent/pkg/types"
)

// StatusSource is the slice of the supervisor the server reads from. The
// server is strictly read-only; it never takes part in feeding decisions.
type StatusSource interface {
	Snapshot() types.Status
}

func NewServer(port int, runID string, src StatusSource) *http.Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	handlers := NewHandlers(runID, src)

	r.Get("/ping", handlers.HandlePing)
	r.Get("/status", handlers.HandleStatus)
	r.Get("/healthz", handlers.HandleHealthz)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}
