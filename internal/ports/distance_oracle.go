package ports

// Read-only symmetric distance lookup between location indices.
// Distance(x, x) is 0 and Distance(a, b) == Distance(b, a).
type DistanceOracle interface {
	Distance(a int, b int) float64
	// Number of locations the oracle knows about.
	Size() int
}
