package handlers

import (
	"delivery-route-engine/internal/api/dto"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/ports"
	"net/http"
	"slices"
	"strconv"
	"time"
)

// PackageHandler answers status queries. Packages come from the latest run
// when one exists, otherwise straight from the repository (all at the hub).
type PackageHandler struct {
	Repo     ports.PackageRepository
	Store    *RunStore
	Day      time.Time
	EndOfDay time.Time
}

func (h *PackageHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	at, err := clockParam(r, "at", h.Day, h.EndOfDay)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "at must be HH:MM")
		return
	}

	pkgs, runID, err := h.packages(r)
	if err != nil {
		writeRunError(w, r, "list packages", err)
		return
	}

	res := dto.ListPackagesResponse{
		At:       at,
		RunID:    runID,
		Packages: make([]dto.PackageResponse, 0, len(pkgs)),
	}
	for _, p := range pkgs {
		res.Packages = append(res.Packages, toPackageResponse(p, at))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "package id must be a positive integer")
		return
	}
	at, err := clockParam(r, "at", h.Day, h.EndOfDay)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "at must be HH:MM")
		return
	}

	pkgs, _, err := h.packages(r)
	if err != nil {
		writeRunError(w, r, "get package", err)
		return
	}

	i, found := slices.BinarySearchFunc(pkgs, id, func(p *domain.Package, id int) int { return p.PackageID - id })
	if !found {
		writeError(w, r, http.StatusNotFound, "package not found")
		return
	}

	writeJSON(w, r, http.StatusOK, toPackageResponse(pkgs[i], at))
}

// packages returns records ordered by id.
func (h *PackageHandler) packages(r *http.Request) ([]*domain.Package, string, error) {
	if res, ok := h.Store.Latest(); ok {
		return res.Packages, res.RunID, nil
	}

	pkgs, err := h.Repo.ListPackages(r.Context())
	if err != nil {
		return nil, "", err
	}
	slices.SortFunc(pkgs, func(a, b *domain.Package) int { return a.PackageID - b.PackageID })
	return pkgs, "", nil
}

func toPackageResponse(p *domain.Package, at time.Time) dto.PackageResponse {
	status := p.StatusAt(at)
	res := dto.PackageResponse{
		PackageID:     p.PackageID,
		Address:       p.AddressAt(at),
		City:          p.City,
		Zip:           p.Zip,
		Weight:        p.Weight,
		Deadline:      p.Deadline,
		Note:          p.Note,
		Status:        status.String(),
		TruckAffinity: p.TruckAffinity,
		GroupID:       p.GroupID,
	}
	if status != domain.AtHub {
		res.TruckID = p.TruckID
		res.LoadedAt = p.LoadedAt
	}
	if status == domain.Delivered {
		res.DeliveredAt = p.DeliveredAt
		res.Late = p.Late
	}
	return res
}
