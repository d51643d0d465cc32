package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// It only reports that the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes.
// It runs every registered check; open circuits make the service not ready.
func ReadinessHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := reg.CheckAll(ctx)
		status := reg.OverallStatus(results)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status.HTTPStatus())

		switch status {
		case StatusHealthy:
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// HealthResponse is the JSON response for the detailed health endpoint.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON response for a single health check.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// DetailedHandler returns an HTTP handler serving per-dependency health
// as JSON, including circuit state details from breaker checkers.
func DetailedHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		results := reg.CheckAll(ctx)
		status := reg.OverallStatus(results)

		response := HealthResponse{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(results)),
		}

		for name, result := range results {
			check := CheckResponse{
				Status:   result.Status.String(),
				Message:  result.Message,
				Duration: result.Duration.String(),
				Details:  result.Details,
			}
			if result.Error != nil {
				check.Error = result.Error.Error()
			}
			response.Checks[name] = check
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status.HTTPStatus())

		_ = json.NewEncoder(w).Encode(response)
	}
}

// SingleCheckHandler returns an HTTP handler for checking one dependency.
func SingleCheckHandler(reg *Registry, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := reg.Check(ctx, name)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": err.Error(),
			})
			return
		}

		response := CheckResponse{
			Status:   result.Status.String(),
			Message:  result.Message,
			Duration: result.Duration.String(),
			Details:  result.Details,
		}
		if result.Error != nil {
			response.Error = result.Error.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(result.Status.HTTPStatus())

		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterHandlers registers the health check handlers on the given mux.
func RegisterHandlers(mux *http.ServeMux, reg *Registry) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(reg))
	mux.HandleFunc("/health", DetailedHandler(reg))
}
