package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/subnetconsole/agentops/credential"
)

// View is the JSON form of a Snapshot. Keys are masked.
type View struct {
	Status     Status     `json:"status"`
	Error      *string    `json:"error"`
	APIKey     string     `json:"api_key,omitempty"`
	PendingKey string     `json:"pending_key,omitempty"`
	CheckedAt  *time.Time `json:"checked_at,omitempty"`
	Valid      *bool      `json:"valid,omitempty"`
}

// ViewOf converts s for display.
func ViewOf(s Snapshot) View {
	v := View{
		Status:     s.Status,
		APIKey:     credential.Mask(s.APIKey),
		PendingKey: credential.Mask(s.PendingKey),
	}
	if s.Error != "" {
		msg := s.Error
		v.Error = &msg
	}
	if !s.CheckedAt.IsZero() {
		t := s.CheckedAt.UTC()
		v.CheckedAt = &t
	}
	return v
}

type keyRequest struct {
	Key string `json:"key"`
}

const maxRequestBody = 4 << 10

// RegisterHandlers mounts the session API on mux:
//
//	GET  /session           current state
//	PUT  /session/pending   stage {"key": ...}
//	POST /session/key       save {"key": ...}, or the staged key when omitted
//	POST /session/check     run a full check
//	POST /session/validate  re-validate the active key
func RegisterHandlers(mux *http.ServeMux, m *Monitor) {
	mux.HandleFunc("GET /session", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, ViewOf(m.Snapshot()))
	})

	mux.HandleFunc("PUT /session/pending", func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeKey(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		m.SetPendingKey(req.Key)
		writeJSON(w, http.StatusOK, ViewOf(m.Snapshot()))
	})

	mux.HandleFunc("POST /session/key", func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeKey(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		key := req.Key
		if key == "" {
			key = m.Snapshot().PendingKey
		}

		err = m.SaveKey(r.Context(), key)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, ViewOf(m.Snapshot()))
		case errors.Is(err, ErrEmptyKey):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, ErrKeyRejected):
			writeJSON(w, http.StatusUnprocessableEntity, ViewOf(m.Snapshot()))
		case errors.Is(err, ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			writeJSON(w, http.StatusBadGateway, ViewOf(m.Snapshot()))
		}
	})

	mux.HandleFunc("POST /session/check", func(w http.ResponseWriter, r *http.Request) {
		err := m.RunCheck(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, ViewOf(m.Snapshot()))
		case errors.Is(err, ErrCheckInFlight):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			writeError(w, http.StatusGatewayTimeout, err)
		}
	})

	mux.HandleFunc("POST /session/validate", func(w http.ResponseWriter, r *http.Request) {
		valid := m.CheckKeyValidity(r.Context())
		v := ViewOf(m.Snapshot())
		v.Valid = &valid
		writeJSON(w, http.StatusOK, v)
	})
}

func decodeKey(r *http.Request) (keyRequest, error) {
	var req keyRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)
	if errors.Is(err, io.EOF) {
		return req, nil
	}
	return req, err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
