package handlers

import (
	"delivery-route-engine/internal/api/dto"
	"delivery-route-engine/internal/config"
	"delivery-route-engine/internal/directory"
	"delivery-route-engine/internal/ports"
	"delivery-route-engine/internal/services"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type PlanHandler struct {
	Repo          ports.PackageRepository
	Oracle        ports.DistanceOracle
	Base          services.PlanDeliveriesRequest
	Day           time.Time
	MileageTarget float64
	Store         *RunStore
}

// Plan runs assignment, routing and simulation for the whole fleet on a fresh
// copy of the package records, stores the result and returns its report.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.PlanRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	svcReq := h.Base
	if len(req.Fleet) > 0 {
		fleet, err := h.fleet(req.Fleet)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		svcReq.Fleet = fleet
	}

	at := h.Base.Model.EndOfDay
	if s := strings.TrimSpace(req.At); s != "" {
		var err error
		if at, err = config.ClockOn(h.Day, s); err != nil {
			writeError(w, r, http.StatusBadRequest, "at must be HH:MM")
			return
		}
	}

	pkgs, err := h.Repo.ListPackages(r.Context())
	if err != nil {
		writeRunError(w, r, "list packages", err)
		return
	}
	dir, err := directory.CloneOf(pkgs)
	if err != nil {
		writeRunError(w, r, "plan deliveries", err)
		return
	}

	res, err := services.PlanDeliveries(r.Context(), svcReq, dir, h.Oracle)
	if err != nil {
		writeRunError(w, r, "plan deliveries", err)
		return
	}
	h.Store.Put(res)

	writeJSON(w, r, http.StatusOK, services.BuildReport(res, at, h.MileageTarget))
}

// Latest replays the stored run at ?at=HH:MM (end of service by default).
func (h *PlanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	at, err := clockParam(r, "at", h.Day, h.Base.Model.EndOfDay)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "at must be HH:MM")
		return
	}

	res, ok := h.Store.Latest()
	if !ok {
		writeError(w, r, http.StatusNotFound, "no plan has been run")
		return
	}

	writeJSON(w, r, http.StatusOK, services.BuildReport(res, at, h.MileageTarget))
}

func (h *PlanHandler) fleet(trucks []dto.TruckRequest) ([]services.TruckSpec, error) {
	if len(trucks) > 10 {
		return nil, errors.New("fleet must have at most 10 trucks")
	}

	out := make([]services.TruckSpec, 0, len(trucks))
	seen := map[int]bool{}
	for i, t := range trucks {
		if t.TruckID <= 0 {
			return nil, fmt.Errorf("fleet[%d]: truck_id must be positive", i)
		}
		if seen[t.TruckID] {
			return nil, fmt.Errorf("fleet[%d]: duplicate truck_id %d", i, t.TruckID)
		}
		seen[t.TruckID] = true
		capacity := t.Capacity
		if capacity == 0 {
			capacity = 16
		}
		if capacity < 1 || capacity > 100 {
			return nil, fmt.Errorf("fleet[%d]: capacity must be between 1 and 100", i)
		}
		trips := t.Trips
		if trips == 0 {
			trips = 1
		}
		if trips < 1 {
			return nil, fmt.Errorf("fleet[%d]: trips must be positive", i)
		}
		departAt := t.DepartAt
		if departAt == "" {
			departAt = "08:00"
		}
		depart, err := config.ClockOn(h.Day, departAt)
		if err != nil {
			return nil, fmt.Errorf("fleet[%d]: depart_at must be HH:MM", i)
		}

		out = append(out, services.TruckSpec{TruckID: t.TruckID, Capacity: capacity, Trips: trips, DepartAt: depart})
	}
	return out, nil
}
