package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Pinger is implemented by optional backends checked for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	dirs     []string
	backends map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler. dirs must exist for the
// service to be ready; nil backends are skipped.
func NewHealthHandler(dirs []string, backends map[string]Pinger) *HealthHandler {
	active := make(map[string]Pinger, len(backends))
	for name, b := range backends {
		if b != nil {
			active[name] = b
		}
	}

	return &HealthHandler{
		dirs:     dirs,
		backends: active,
	}
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness returns 200 if the folders exist and backends answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{"status": "ready"}

	for _, dir := range h.dirs {
		info, err := os.Stat(dir)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "folder unavailable", err.Error())
			return
		}
		if !info.IsDir() {
			writeError(w, http.StatusServiceUnavailable, "folder unavailable", fmt.Sprintf("%s is not a directory", dir))
			return
		}
	}

	for name, backend := range h.backends {
		if err := backend.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, name+" unhealthy", err.Error())
			return
		}
		status[name] = "ok"
	}

	writeJSON(w, http.StatusOK, status)
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
