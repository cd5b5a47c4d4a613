// Package http exposes the health and caption endpoints.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/obiente/translate/streamrt/internal/session"
	"github.com/obiente/translate/streamrt/internal/ws"
)

// Status reports live session details for /healthz.
type Status interface {
	ID() string
	State() session.State
}

// NewRouter serves /healthz and, when hub is non-nil, /ws/captions.
func NewRouter(status Status, hub *ws.Hub) http.Handler {
	started := time.Now()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"ok": true, "uptime_sec": int(time.Since(started).Seconds())}
		if status != nil {
			body["session_id"] = status.ID()
			body["state"] = status.State().String()
		}
		if hub != nil {
			body["subscribers"] = hub.Clients()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	})
	if hub != nil {
		mux.HandleFunc("/ws/captions", hub.Handle)
	}
	return mux
}
