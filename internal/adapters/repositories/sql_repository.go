package repositories

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"errors"
	"fmt"
	"time"
)

// SQL-backed implementation of the PackageRepository and DistanceRepository
// ports. Stored clock times are resolved on Day.
type SQLRepository struct {
	DB      *sql.DB
	Dialect Dialect
	Day     time.Time
}

func NewSQLRepository(db *sql.DB, dialect Dialect, day time.Time) *SQLRepository {
	return &SQLRepository{DB: db, Dialect: dialect, Day: day}
}

// Return all packages stored in the database with their groups resolved.
func (s *SQLRepository) ListPackages(ctx context.Context) (_ []*domain.Package, err error) {
	defer obs.Time(ctx, "repository.ListPackages")(&err)

	if s.DB == nil {
		return nil, errors.New("sql repository: DB is nil")
	}

	query := `
	SELECT
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
	FROM packages
	ORDER BY package_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list packages: query packages table: %w", err)
	}
	defer rows.Close()

	packages := make([]*domain.Package, 0, 64)
	for rows.Next() {
		var p domain.Package
		var deadline, availableAt, corrAt, corrAddress sql.NullString
		var corrLocation sql.NullInt64

		err := rows.Scan(
			&p.PackageID, &p.Address, &p.City, &p.Zip, &p.Location,
			&deadline, &p.Weight, &p.Note, &p.TruckAffinity, &availableAt,
			&corrAt, &corrAddress, &corrLocation,
		)
		if err != nil {
			return nil, fmt.Errorf("list packages: scan row: %w", err)
		}

		if deadline.Valid {
			at, err := s.clock(deadline.String)
			if err != nil {
				return nil, fmt.Errorf("list packages: package_id=%d deadline: %w", p.PackageID, err)
			}
			p.Deadline = &at
		}
		if availableAt.Valid {
			if p.AvailableAt, err = s.clock(availableAt.String); err != nil {
				return nil, fmt.Errorf("list packages: package_id=%d available_at: %w", p.PackageID, err)
			}
		}
		if corrAt.Valid {
			at, err := s.clock(corrAt.String)
			if err != nil {
				return nil, fmt.Errorf("list packages: package_id=%d correction_at: %w", p.PackageID, err)
			}
			p.Correction = &domain.Correction{At: at, Address: corrAddress.String, Location: int(corrLocation.Int64)}
		}

		packages = append(packages, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list packages: row iteration: %w", err)
	}

	links, err := s.links(ctx)
	if err != nil {
		return nil, err
	}
	if err := domain.ResolveGroups(packages, links); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	return packages, nil
}

func (s *SQLRepository) links(ctx context.Context) (map[int][]int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT package_id, with_package_id FROM package_links ORDER BY package_id, with_package_id;`)
	if err != nil {
		return nil, fmt.Errorf("list packages: query package_links table: %w", err)
	}
	defer rows.Close()

	links := map[int][]int{}
	for rows.Next() {
		var from, to int
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("list packages: scan link: %w", err)
		}
		links[from] = append(links[from], to)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list packages: link iteration: %w", err)
	}
	return links, nil
}

// Return location labels and lower-triangular distance rows.
func (s *SQLRepository) LoadDistances(ctx context.Context) (_ []string, _ [][]float64, err error) {
	defer obs.Time(ctx, "repository.LoadDistances")(&err)

	if s.DB == nil {
		return nil, nil, errors.New("sql repository: DB is nil")
	}

	labelRows, err := s.DB.QueryContext(ctx, `SELECT location_id, label FROM locations ORDER BY location_id;`)
	if err != nil {
		return nil, nil, fmt.Errorf("load distances: query locations table: %w", err)
	}
	defer labelRows.Close()

	var labels []string
	for labelRows.Next() {
		var id int
		var label string
		if err := labelRows.Scan(&id, &label); err != nil {
			return nil, nil, fmt.Errorf("load distances: scan location: %w", err)
		}
		if id != len(labels) {
			return nil, nil, fmt.Errorf("load distances: location ids not contiguous at %d", id)
		}
		labels = append(labels, label)
	}
	if err := labelRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load distances: location iteration: %w", err)
	}
	if len(labels) == 0 {
		return nil, nil, errors.New("load distances: no locations stored")
	}

	out := make([][]float64, len(labels))
	for i := range out {
		out[i] = make([]float64, i+1)
	}
	filled := make([][]bool, len(labels))
	for i := range filled {
		filled[i] = make([]bool, i+1)
	}

	query := s.Dialect.rebind(`
	SELECT from_location, to_location, miles
	FROM distances
	WHERE from_location < ? AND to_location < ?;
	`)
	rows, err := s.DB.QueryContext(ctx, query, len(labels), len(labels))
	if err != nil {
		return nil, nil, fmt.Errorf("load distances: query distances table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var from, to int
		var miles float64
		if err := rows.Scan(&from, &to, &miles); err != nil {
			return nil, nil, fmt.Errorf("load distances: scan distance: %w", err)
		}
		if to > from {
			from, to = to, from
		}
		out[from][to] = miles
		filled[from][to] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load distances: distance iteration: %w", err)
	}

	for i := range filled {
		for j, ok := range filled[i] {
			if !ok && i != j {
				return nil, nil, fmt.Errorf("load distances: missing distance between %d and %d", i, j)
			}
		}
	}

	return labels, out, nil
}

func (s *SQLRepository) clock(hhmm string) (time.Time, error) {
	t, err := time.Parse(clockLayout, hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(s.Day.Year(), s.Day.Month(), s.Day.Day(), t.Hour(), t.Minute(), 0, 0, s.Day.Location()), nil
}
