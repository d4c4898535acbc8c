package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status     string  `json:"status"`
	ServiceDay string  `json:"service_day"`
	LatestRun  string  `json:"latest_run,omitempty"`
	Packages   int     `json:"packages,omitempty"`
	TotalMiles float64 `json:"total_miles,omitempty"`
}

// HealthHandler reports liveness and the run that status queries replay.
type HealthHandler struct {
	Store *RunStore
	Day   time.Time
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	res := healthResponse{Status: "ok", ServiceDay: h.Day.Format(time.DateOnly)}
	if last, ok := h.Store.Latest(); ok {
		res.LatestRun = last.RunID
		res.Packages = len(last.Packages)
		res.TotalMiles = last.TotalMiles
	}
	writeJSON(w, r, http.StatusOK, res)
}
