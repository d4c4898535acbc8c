package csvload

import (
	"delivery-route-engine/internal/domain"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	clockRe    = regexp.MustCompile(`(?i)(\d{1,2}:\d{2})\s*(am|pm)?`)
	truckRe    = regexp.MustCompile(`(?i)\btruck\s+(\d+)\b`)
	idRe       = regexp.MustCompile(`\d+`)
	delayedRe  = regexp.MustCompile(`(?i)\bdelayed\b`)
	withRe     = regexp.MustCompile(`(?i)must be delivered with`)
	wrongAddRe = regexp.MustCompile(`(?i)wrong address`)
)

// Correction is an address change known ahead of the service day.
// Location < 0 resolves the address against the distance table.
type Correction struct {
	PackageID int
	At        time.Time
	Address   string
	Location  int
}

// Options anchors parsed clock times and attaches configured corrections.
type Options struct {
	Day         time.Time
	Corrections []Correction
}

// Column order of the package manifest.
const (
	colID = iota
	colAddress
	colCity
	colState
	colZip
	colDeadline
	colWeight
	colNotes
)

// ReadPackages parses the package manifest and resolves every address in dist.
//
// Notes drive constraints: "Delayed ... until 9:05 am" sets the release time,
// "Can only be on truck 2" the truck restriction, "Must be delivered with 13,
// 15" a delivery group, and "Wrong address listed" requires a configured
// correction. Rows whose first cell is not an id are skipped as headers.
func ReadPackages(r io.Reader, dist *Distances, opts Options) ([]*domain.Package, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var pkgs []*domain.Package
	links := map[int][]int{}
	wrong := map[int]bool{}
	seen := map[int]bool{}

	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read packages: %w", err)
		}
		line++

		if len(rec) == 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[colID]))
		if err != nil {
			continue
		}
		if len(rec) <= colWeight {
			return nil, fmt.Errorf("read packages: line %d: want at least %d columns, got %d", line, colWeight+1, len(rec))
		}
		if seen[id] {
			return nil, domain.NewConfigError("read packages", "duplicate package_id=%d on line %d", id, line)
		}
		seen[id] = true

		p, err := parsePackage(id, rec, dist, opts.Day)
		if err != nil {
			return nil, fmt.Errorf("read packages: line %d: %w", line, err)
		}

		note := p.Note
		if delayedRe.MatchString(note) {
			at, ok, err := clockIn(note, opts.Day)
			if err != nil || !ok {
				return nil, domain.NewConfigError("read packages", "package_id=%d: delayed note without a time: %q", id, note)
			}
			p.AvailableAt = at
		}
		if m := truckRe.FindStringSubmatch(note); m != nil {
			p.TruckAffinity, _ = strconv.Atoi(m[1])
		}
		if withRe.MatchString(note) {
			for _, s := range idRe.FindAllString(note, -1) {
				other, _ := strconv.Atoi(s)
				links[id] = append(links[id], other)
			}
		}
		if wrongAddRe.MatchString(note) {
			wrong[id] = true
		}

		pkgs = append(pkgs, p)
	}

	slices.SortFunc(pkgs, func(a, b *domain.Package) int { return a.PackageID - b.PackageID })

	if err := ApplyCorrections(pkgs, dist, opts.Corrections); err != nil {
		return nil, fmt.Errorf("read packages: %w", err)
	}
	for _, p := range pkgs {
		if wrong[p.PackageID] && p.Correction == nil {
			return nil, domain.NewConfigError("read packages", "package_id=%d has a wrong address and no configured correction", p.PackageID)
		}
	}

	if err := domain.ResolveGroups(pkgs, links); err != nil {
		return nil, fmt.Errorf("read packages: %w", err)
	}
	return pkgs, nil
}

func parsePackage(id int, rec []string, dist *Distances, day time.Time) (*domain.Package, error) {
	field := func(i int) string {
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	address := field(colAddress)
	loc, ok := dist.Lookup(address)
	if !ok {
		return nil, domain.NewConfigError("parse package", "package_id=%d: address %q is not in the distance table", id, address)
	}

	deadline, err := ParseDeadline(field(colDeadline), day)
	if err != nil {
		return nil, fmt.Errorf("package_id=%d: %w", id, err)
	}

	weight, err := strconv.Atoi(field(colWeight))
	if err != nil {
		return nil, fmt.Errorf("package_id=%d: weight %q: %w", id, field(colWeight), err)
	}

	return &domain.Package{
		PackageID: id,
		Address:   address,
		City:      field(colCity),
		Zip:       field(colZip),
		Location:  loc,
		Deadline:  deadline,
		Weight:    weight,
		Note:      field(colNotes),
	}, nil
}

// ParseDeadline reads "EOD" (no deadline), "10:30 AM" or "10:30" on day.
func ParseDeadline(s string, day time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "EOD") {
		return nil, nil
	}
	at, ok, err := clockIn(s, day)
	if err != nil {
		return nil, fmt.Errorf("deadline %q: %w", s, err)
	}
	if !ok {
		return nil, fmt.Errorf("deadline %q: want EOD or HH:MM [AM|PM]", s)
	}
	return &at, nil
}

// clockIn finds the first clock time in s and places it on day.
func clockIn(s string, day time.Time) (time.Time, bool, error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false, nil
	}

	layout, value := "15:04", m[1]
	if m[2] != "" {
		layout, value = "3:04 PM", m[1]+" "+strings.ToUpper(m[2])
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), true, nil
}

// ApplyCorrections attaches pending address corrections to their packages.
func ApplyCorrections(pkgs []*domain.Package, dist *Distances, corrections []Correction) error {
	byID := make(map[int]*domain.Package, len(pkgs))
	for _, p := range pkgs {
		byID[p.PackageID] = p
	}

	for _, c := range corrections {
		p, ok := byID[c.PackageID]
		if !ok {
			return domain.NewConfigError("apply corrections", "unknown package_id=%d", c.PackageID)
		}

		loc := c.Location
		if loc < 0 {
			if loc, ok = dist.Lookup(c.Address); !ok {
				return domain.NewConfigError("apply corrections", "package_id=%d: address %q is not in the distance table", c.PackageID, c.Address)
			}
		}
		if loc >= dist.Size() {
			return domain.NewConfigError("apply corrections", "package_id=%d: location %d outside table of %d", c.PackageID, loc, dist.Size())
		}

		p.Correction = &domain.Correction{At: c.At, Address: c.Address, Location: loc}
	}
	return nil
}
