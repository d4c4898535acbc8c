package distance

import "fmt"

// Pair is one undirected edge of a hand-built matrix.
type Pair struct {
	From, To int
	Miles    float64
}

// Build a matrix of n locations from explicit pairs. Unlisted pairs are an error
// so fixtures stay complete.
func NewMatrixFromPairs(n int, pairs []Pair) (*Matrix, error) {
	rows := make([][]float64, n)
	seen := make(map[[2]int]bool, len(pairs))
	for i := range rows {
		rows[i] = make([]float64, i+1)
	}

	for _, p := range pairs {
		i, j := p.From, p.To
		if i < j {
			i, j = j, i
		}
		if j < 0 || i >= n {
			return nil, fmt.Errorf("matrix from pairs: pair %d-%d out of range", p.From, p.To)
		}
		rows[i][j] = p.Miles
		seen[[2]int{i, j}] = true
	}

	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			if !seen[[2]int{i, j}] {
				return nil, fmt.Errorf("matrix from pairs: missing pair %d-%d", j, i)
			}
		}
	}

	return NewMatrix(nil, rows)
}

// MustMatrixFromPairs is NewMatrixFromPairs for fixtures known to be valid.
func MustMatrixFromPairs(n int, pairs []Pair) *Matrix {
	m, err := NewMatrixFromPairs(n, pairs)
	if err != nil {
		panic(err)
	}
	return m
}
