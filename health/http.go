package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Report is the JSON body served by the detail endpoints.
type Report struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckReport `json:"checks,omitempty"`
}

// CheckReport is one checker's entry in a Report.
type CheckReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func reportOf(r Result) CheckReport {
	cr := CheckReport{
		Status:   r.Status.String(),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Err != nil {
		cr.Error = r.Err.Error()
	}
	return cr
}

func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// RegisterHandlers mounts the health endpoints on mux:
//
//	GET /healthz        liveness, always 200
//	GET /readyz         200 unless a checker is unhealthy
//	GET /health         full JSON report
//	GET /health/{name}  one checker
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		status := Overall(agg.CheckAll(r.Context()))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(httpStatus(status))
		_, _ = w.Write([]byte(status.String()))
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		status := Overall(results)

		report := Report{
			Status:    status.String(),
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]CheckReport, len(results)),
		}
		for name, res := range results {
			report.Checks[name] = reportOf(res)
		}
		writeJSON(w, httpStatus(status), report)
	})

	mux.HandleFunc("GET /health/{name}", func(w http.ResponseWriter, r *http.Request) {
		res, err := agg.Check(r.Context(), r.PathValue("name"))
		if errors.Is(err, ErrCheckerNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, httpStatus(res.Status), reportOf(res))
	})
}
