package handlers

import (
	"context"
	"delivery-route-engine/internal/config"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/logger"
	"delivery-route-engine/internal/platform/obs"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

var log logger.Logger = logger.New("api")

// SetLogger replaces the handler logger.
func SetLogger(l logger.Logger) {
	log = l
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encode failed: req_id=%s method=%s path=%s err=%v", obs.RequestID(r.Context()), r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeRunError maps engine failures to a response. Input problems surface
// their message; anything else is logged and hidden.
func writeRunError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, domain.ErrUnassignable):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "request canceled")
	default:
		log.Errorf("%s failed: req_id=%s err=%v", op, obs.RequestID(r.Context()), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// clockParam resolves the HH:MM query parameter name on day, or fallback when absent.
func clockParam(r *http.Request, name string, day time.Time, fallback time.Time) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback, nil
	}
	return config.ClockOn(day, v)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
