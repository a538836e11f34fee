package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sysfeed/wdt-agent/pkg/types"
)

type Handlers struct {
	runID string
	src   StatusSource
}

func NewHandlers(runID string, src StatusSource) *Handlers {
	return &Handlers{runID: runID, src: src}
}

func (h *Handlers) HandlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.src.Snapshot()

	resp := types.StatusResponse{
		RunID:        h.runID,
		Phase:        st.Phase,
		Healthy:      st.Healthy,
		UnhealthyFor: st.UnhealthyFor.Seconds(),
		FailTimeout:  st.FailTimeout.Seconds(),
		Feeds:        st.Feeds,
		Withheld:     st.Withheld,
	}
	if !st.StartedAt.IsZero() {
		resp.UptimeSeconds = time.Since(st.StartedAt).Seconds()
	}
	if !st.LastFeed.IsZero() {
		resp.LastFeed = &st.LastFeed
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("ERROR: Failed to encode status response: %v", err)
	}
}

// HandleHealthz mirrors the supervisor's last verdict: 200 while healthy
// (including the startup grace period), 503 during a fail window.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.src.Snapshot().Healthy {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("unhealthy"))
}
