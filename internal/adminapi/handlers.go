// Package adminapi exposes a read-only HTTP introspection surface over
// one or more running Groups: health probes, cursor state, and the
// Prometheus exposition. It never accepts writes — sending/receiving
// stays the Group API's job, not the HTTP surface's.
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ledgerchat/channelengine/internal/group"
	"github.com/ledgerchat/channelengine/internal/metrics"
)

// GroupLookup resolves a channel label to its running Group.
type GroupLookup func(label string) (*group.Group, bool)

// Handler serves the admin introspection routes.
type Handler struct {
	lookup  GroupLookup
	logger  *logrus.Logger
	metrics *metrics.Metrics

	readinessCheck func(r *http.Request) error
}

// NewHandler builds an admin API handler. readinessCheck, if non-nil, is
// consulted by /readyz (typically the configured KeyManager's HealthCheck).
func NewHandler(lookup GroupLookup, logger *logrus.Logger, m *metrics.Metrics, readinessCheck func(r *http.Request) error) *Handler {
	return &Handler{lookup: lookup, logger: logger, metrics: m, readinessCheck: readinessCheck}
}

// RegisterRoutes registers all admin API routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.handleHealthz).Methods("GET")
	r.HandleFunc("/readyz", h.handleReadyz).Methods("GET")
	r.HandleFunc("/livez", h.handleLivez).Methods("GET")
	r.HandleFunc("/channels/{label}/cursors", h.handleCursors).Methods("GET")
	r.HandleFunc("/metrics", h.handleMetrics).Methods("GET")
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.metrics.Handler().ServeHTTP(w, r)
	h.metrics.RecordHTTPRequest(r.Context(), "GET", "/metrics", http.StatusOK, time.Since(start), 0)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metrics.HealthHandler()(w, r)
	h.metrics.RecordHTTPRequest(r.Context(), "GET", "/healthz", http.StatusOK, time.Since(start), 0)
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	handler := metrics.ReadinessHandler(func(ctx context.Context) error {
		if h.readinessCheck == nil {
			return nil
		}
		return h.readinessCheck(r)
	})
	handler(w, r)
	h.metrics.RecordHTTPRequest(r.Context(), "GET", "/readyz", http.StatusOK, time.Since(start), 0)
}

func (h *Handler) handleLivez(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metrics.LivenessHandler()(w, r)
	h.metrics.RecordHTTPRequest(r.Context(), "GET", "/livez", http.StatusOK, time.Since(start), 0)
}

// cursorSnapshotResponse is the JSON body for /channels/{label}/cursors.
type cursorSnapshotResponse struct {
	Label          string   `json:"label"`
	SelfIndex      int      `json:"self_index"`
	NextReadIndex  []uint32 `json:"next_read_index"`
	NextWriteIndex []uint32 `json:"next_write_index"`
}

func (h *Handler) handleCursors(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	label := mux.Vars(r)["label"]

	g, ok := h.lookup(label)
	if !ok {
		http.Error(w, "unknown channel", http.StatusNotFound)
		h.metrics.RecordHTTPRequest(r.Context(), "GET", r.URL.Path, http.StatusNotFound, time.Since(start), 0)
		return
	}

	read, write := g.CursorSnapshot()
	resp := cursorSnapshotResponse{
		Label:          label,
		SelfIndex:      g.SelfIndex(),
		NextReadIndex:  read,
		NextWriteIndex: write,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.WithError(err).WithField("channel", label).Error("failed to encode cursor snapshot")
	}

	h.metrics.RecordHTTPRequest(r.Context(), "GET", "/channels/*/cursors", http.StatusOK, time.Since(start), 0)
}
