// Package csvload reads the package manifest and the distance table from CSV
// files and resolves addresses to distance matrix indices.
package csvload

import (
	"delivery-route-engine/internal/adapters/distance"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// HubAlias always resolves to the hub row.
const HubAlias = "hub"

// Distances is a lower-triangular distance table keyed by address.
// Row i holds the distances from location i to locations 0..i.
type Distances struct {
	Labels []string
	Rows   [][]float64
	keys   map[string]int
}

// ReadDistances parses rows of the form `address, d0, d1, ..., di`.
// Blank rows are skipped, trailing blank cells end a row. A label may carry a
// place name on its first line; both the full label and its last line resolve.
func ReadDistances(r io.Reader, hub int) (*Distances, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	d := &Distances{}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read distances: %w", err)
		}
		line++

		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}

		row, err := parseRow(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("read distances: line %d: %w", line, err)
		}
		if len(row) == 0 {
			// Header rows carry no distances.
			continue
		}

		d.Labels = append(d.Labels, strings.TrimSpace(rec[0]))
		d.Rows = append(d.Rows, row)
	}

	if len(d.Rows) == 0 {
		return nil, errors.New("read distances: no distance rows")
	}
	if err := d.index(hub); err != nil {
		return nil, fmt.Errorf("read distances: %w", err)
	}
	return d, nil
}

// NewDistances indexes a table loaded elsewhere, e.g. from a database.
func NewDistances(labels []string, rows [][]float64, hub int) (*Distances, error) {
	if len(rows) == 0 {
		return nil, errors.New("new distances: no distance rows")
	}
	if len(labels) != len(rows) {
		return nil, fmt.Errorf("new distances: %d labels for %d rows", len(labels), len(rows))
	}
	d := &Distances{Labels: labels, Rows: rows}
	if err := d.index(hub); err != nil {
		return nil, fmt.Errorf("new distances: %w", err)
	}
	return d, nil
}

func (d *Distances) index(hub int) error {
	if hub < 0 || hub >= len(d.Rows) {
		return fmt.Errorf("hub row %d outside table of %d", hub, len(d.Rows))
	}

	d.keys = make(map[string]int, 2*len(d.Labels)+1)
	for i, label := range d.Labels {
		d.register(NormalizeAddress(label), i)
		if lines := strings.Split(label, "\n"); len(lines) > 1 {
			d.register(NormalizeAddress(lines[len(lines)-1]), i)
		}
	}
	d.keys[HubAlias] = hub
	return nil
}

func parseRow(cells []string) ([]float64, error) {
	var row []float64
	for j, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			break
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			if j == 0 {
				return nil, nil
			}
			return nil, fmt.Errorf("cell %d: %w", j+1, err)
		}
		row = append(row, v)
	}
	return row, nil
}

// The first row wins when two labels normalize to the same key.
func (d *Distances) register(key string, i int) {
	if key == "" {
		return
	}
	if _, dup := d.keys[key]; !dup {
		d.keys[key] = i
	}
}

// Lookup resolves an address to its row index.
func (d *Distances) Lookup(address string) (int, bool) {
	i, ok := d.keys[NormalizeAddress(address)]
	return i, ok
}

func (d *Distances) Size() int { return len(d.Rows) }

// Matrix validates the table and builds the distance oracle.
func (d *Distances) Matrix() (*distance.Matrix, error) {
	m, err := distance.NewMatrix(d.Labels, d.Rows)
	if err != nil {
		return nil, fmt.Errorf("distances: %w", err)
	}
	return m, nil
}
