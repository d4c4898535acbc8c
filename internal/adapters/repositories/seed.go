package repositories

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/domain"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const clockLayout = "15:04"

// SeedData is the JSON seed document: the distance table and the package manifest.
type SeedData struct {
	Locations []string      `json:"locations"`
	Distances [][]float64   `json:"distances"`
	Packages  []PackageSeed `json:"packages"`
}

type PackageSeed struct {
	PackageID     int             `json:"package_id"`
	Address       string          `json:"address"`
	City          string          `json:"city,omitempty"`
	Zip           string          `json:"zip,omitempty"`
	Location      int             `json:"location"`
	Deadline      string          `json:"deadline,omitempty"`
	Weight        int             `json:"weight,omitempty"`
	Note          string          `json:"note,omitempty"`
	TruckAffinity int             `json:"truck_affinity,omitempty"`
	AvailableAt   string          `json:"available_at,omitempty"`
	DeliverWith   []int           `json:"deliver_with,omitempty"`
	Correction    *CorrectionSeed `json:"correction,omitempty"`
}

type CorrectionSeed struct {
	At       string `json:"at"`
	Address  string `json:"address"`
	Location int    `json:"location"`
}

// NewSeedData captures loaded packages and distances as a seed document.
// Group membership is written as links to the group's lowest id.
func NewSeedData(labels []string, rows [][]float64, pkgs []*domain.Package) *SeedData {
	data := &SeedData{Locations: labels, Distances: rows}
	for _, p := range pkgs {
		s := PackageSeed{
			PackageID:     p.PackageID,
			Address:       p.Address,
			City:          p.City,
			Zip:           p.Zip,
			Location:      p.Location,
			Weight:        p.Weight,
			Note:          p.Note,
			TruckAffinity: p.TruckAffinity,
		}
		if p.Deadline != nil {
			s.Deadline = p.Deadline.Format(clockLayout)
		}
		if !p.AvailableAt.IsZero() {
			s.AvailableAt = p.AvailableAt.Format(clockLayout)
		}
		if p.GroupID != 0 && p.GroupID != p.PackageID {
			s.DeliverWith = []int{p.GroupID}
		}
		if c := p.Correction; c != nil {
			s.Correction = &CorrectionSeed{At: c.At.Format(clockLayout), Address: c.Address, Location: c.Location}
		}
		data.Packages = append(data.Packages, s)
	}
	return data
}

func (d *SeedData) validate() error {
	if len(d.Distances) == 0 {
		return errors.New("no distance rows")
	}
	if len(d.Locations) != len(d.Distances) {
		return fmt.Errorf("%d locations for %d distance rows", len(d.Locations), len(d.Distances))
	}

	n := len(d.Distances)
	seen := make(map[int]bool, len(d.Packages))
	for i := range d.Packages {
		p := &d.Packages[i]
		if p.PackageID <= 0 {
			return fmt.Errorf("invalid package_id at index %d: %d", i+1, p.PackageID)
		}
		if seen[p.PackageID] {
			return fmt.Errorf("duplicate package_id=%d", p.PackageID)
		}
		seen[p.PackageID] = true

		p.Address = strings.TrimSpace(p.Address)
		if p.Address == "" {
			return fmt.Errorf("package_id=%d: address cannot be empty", p.PackageID)
		}
		if p.Location < 0 || p.Location >= n {
			return fmt.Errorf("package_id=%d: location %d outside table of %d", p.PackageID, p.Location, n)
		}
		for _, clock := range []string{p.Deadline, p.AvailableAt} {
			if clock == "" {
				continue
			}
			if _, err := time.Parse(clockLayout, clock); err != nil {
				return fmt.Errorf("package_id=%d: clock %q: want HH:MM", p.PackageID, clock)
			}
		}
		if c := p.Correction; c != nil {
			if _, err := time.Parse(clockLayout, c.At); err != nil {
				return fmt.Errorf("package_id=%d: correction at %q: want HH:MM", p.PackageID, c.At)
			}
			if c.Location < 0 || c.Location >= n {
				return fmt.Errorf("package_id=%d: correction location %d outside table of %d", p.PackageID, c.Location, n)
			}
		}
	}
	return nil
}

// Populate the database from a JSON seed file.
func SeedFromJSON(ctx context.Context, db *sql.DB, dialect Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data SeedData
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return Seed(ctx, db, dialect, &data)
}

// WriteSeedJSON stores a seed document at path.
func WriteSeedJSON(path string, data *SeedData) error {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("write seed: encode json: %w", err)
	}
	if err := os.WriteFile(path, append(bytes, '\n'), 0o644); err != nil {
		return fmt.Errorf("write seed: %w", err)
	}
	return nil
}

// Seed replaces the stored distance table and package manifest in one transaction.
func Seed(ctx context.Context, db *sql.DB, dialect Dialect, data *SeedData) error {
	if db == nil {
		return errors.New("seed: DB is nil")
	}
	if err := data.validate(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"package_links", "packages", "distances", "locations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("seed: clear %s: %w", table, err)
		}
	}

	locStmt, err := tx.PrepareContext(ctx, dialect.rebind(`INSERT INTO locations (location_id, label) VALUES (?, ?);`))
	if err != nil {
		return fmt.Errorf("seed: prepare location insert: %w", err)
	}
	defer locStmt.Close()

	distStmt, err := tx.PrepareContext(ctx, dialect.rebind(`
	INSERT INTO distances (from_location, to_location, miles)
	VALUES (?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare distance insert: %w", err)
	}
	defer distStmt.Close()

	for i, label := range data.Locations {
		if _, err := locStmt.ExecContext(ctx, i, label); err != nil {
			return fmt.Errorf("seed: insert location_id=%d: %w", i, err)
		}
		for j, miles := range data.Distances[i] {
			if j > i {
				break
			}
			if _, err := distStmt.ExecContext(ctx, i, j, miles); err != nil {
				return fmt.Errorf("seed: insert distance %d-%d: %w", i, j, err)
			}
		}
	}

	pkgStmt, err := tx.PrepareContext(ctx, dialect.rebind(`
	INSERT INTO packages (
		package_id,
		address,
		city,
		zip,
		location,
		deadline,
		weight,
		note,
		truck_affinity,
		available_at,
		correction_at,
		correction_address,
		correction_location
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare package insert: %w", err)
	}
	defer pkgStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, dialect.rebind(`
	INSERT INTO package_links (package_id, with_package_id)
	VALUES (?, ?)
	ON CONFLICT (package_id, with_package_id) DO NOTHING;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for _, p := range data.Packages {
		var corrAt, corrAddress sql.NullString
		var corrLocation sql.NullInt64
		if c := p.Correction; c != nil {
			corrAt = sql.NullString{String: c.At, Valid: true}
			corrAddress = sql.NullString{String: c.Address, Valid: true}
			corrLocation = sql.NullInt64{Int64: int64(c.Location), Valid: true}
		}

		if _, err := pkgStmt.ExecContext(ctx,
			p.PackageID, p.Address, p.City, p.Zip, p.Location,
			nullClock(p.Deadline), p.Weight, p.Note, p.TruckAffinity, nullClock(p.AvailableAt),
			corrAt, corrAddress, corrLocation,
		); err != nil {
			return fmt.Errorf("seed: insert package_id=%d: %w", p.PackageID, err)
		}

		for _, with := range p.DeliverWith {
			if _, err := linkStmt.ExecContext(ctx, p.PackageID, with); err != nil {
				return fmt.Errorf("seed: link package_id=%d with %d: %w", p.PackageID, with, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

func nullClock(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
