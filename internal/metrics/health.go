package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus is the JSON body served by the admin API's health
// endpoints.
type HealthStatus struct {
	Status        string    `json:"status"`
	Service       string    `json:"service"`
	Timestamp     time.Time `json:"timestamp"`
	Version       string    `json:"version"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

var (
	startTime = time.Now()
	version   = "dev"
)

// SetVersion sets the version reported by the health endpoints.
func SetVersion(v string) {
	version = v
}

func status(s string) HealthStatus {
	return HealthStatus{
		Status:        s,
		Service:       "channelengine",
		Timestamp:     time.Now(),
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}
}

// HealthHandler returns the /healthz handler.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status("healthy"))
	}
}

// ReadinessHandler returns the /readyz handler. readyCheck, if non-nil,
// gates readiness — in the channel engine it is the configured
// KeyManager's HealthCheck, since a process that cannot unwrap its
// channel secrets cannot usefully serve anything.
func ReadinessHandler(readyCheck func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if readyCheck != nil {
			if err := readyCheck(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(status("not_ready"))
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status("ready"))
	}
}

// LivenessHandler returns the /livez handler.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status("alive"))
	}
}
