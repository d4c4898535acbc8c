package distance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a symmetric distance table indexed by location.
// It implements the DistanceOracle port on top of a gonum SymDense so only
// the lower triangle is stored.
type Matrix struct {
	labels []string
	m      *mat.SymDense
}

// Build a matrix from location labels and distance rows.
// Rows may be full or lower-triangular; a cell missing on one side is taken
// from its mirror. Asymmetric, negative or non-zero diagonal values are rejected.
func NewMatrix(labels []string, rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, errors.New("new matrix: no rows")
	}
	if labels != nil && len(labels) != n {
		return nil, fmt.Errorf("new matrix: %d labels for %d rows", len(labels), n)
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v, ok := cell(rows, i, j)
			w, mirrored := cell(rows, j, i)
			switch {
			case !ok && !mirrored:
				return nil, fmt.Errorf("new matrix: missing distance between %d and %d", i, j)
			case !ok:
				v = w
			case mirrored && v != w:
				return nil, fmt.Errorf("new matrix: asymmetric distance between %d and %d (%v != %v)", i, j, v, w)
			}

			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("new matrix: invalid distance %v between %d and %d", v, i, j)
			}
			if i == j && v != 0 {
				return nil, fmt.Errorf("new matrix: non-zero distance %v from %d to itself", v, i)
			}
			sym.SetSym(i, j, v)
		}
	}

	if labels == nil {
		labels = make([]string, n)
		for i := range labels {
			labels[i] = fmt.Sprintf("location-%d", i)
		}
	}

	return &Matrix{labels: labels, m: sym}, nil
}

func cell(rows [][]float64, i, j int) (float64, bool) {
	if i >= len(rows) || j >= len(rows[i]) {
		return 0, false
	}
	return rows[i][j], true
}

func (m *Matrix) Distance(a int, b int) float64 {
	n := m.Size()
	if a < 0 || b < 0 || a >= n || b >= n {
		panic(fmt.Sprintf("distance: location out of range (%d, %d) for %d locations", a, b, n))
	}
	return m.m.At(a, b)
}

func (m *Matrix) Size() int {
	n, _ := m.m.Dims()
	return n
}

// Label of a location index.
func (m *Matrix) Label(i int) string {
	if i < 0 || i >= len(m.labels) {
		return ""
	}
	return m.labels[i]
}

func (m *Matrix) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// Rows returns the table in lower-triangular form: row i holds locations 0..i.
func (m *Matrix) Rows() [][]float64 {
	n := m.Size()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, i+1)
		for j := 0; j <= i; j++ {
			out[i][j] = m.m.At(i, j)
		}
	}
	return out
}
