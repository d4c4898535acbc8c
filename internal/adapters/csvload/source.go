package csvload

import (
	"context"
	"delivery-route-engine/internal/domain"
	"fmt"
	"os"
	"sync"
)

// FileSource serves packages and distances from the two CSV files of a
// service day. It implements the PackageRepository and DistanceRepository ports.
type FileSource struct {
	PackagesPath  string
	DistancesPath string
	Hub           int
	Options       Options

	once sync.Once
	dist *Distances
	err  error
}

func NewFileSource(packagesPath, distancesPath string, hub int, opts Options) *FileSource {
	return &FileSource{
		PackagesPath:  packagesPath,
		DistancesPath: distancesPath,
		Hub:           hub,
		Options:       opts,
	}
}

func (s *FileSource) distances() (*Distances, error) {
	s.once.Do(func() {
		f, err := os.Open(s.DistancesPath)
		if err != nil {
			s.err = fmt.Errorf("open distances: %w", err)
			return
		}
		defer f.Close()
		s.dist, s.err = ReadDistances(f, s.Hub)
	})
	return s.dist, s.err
}

func (s *FileSource) LoadDistances(ctx context.Context) ([]string, [][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	d, err := s.distances()
	if err != nil {
		return nil, nil, err
	}
	return d.Labels, d.Rows, nil
}

func (s *FileSource) ListPackages(ctx context.Context) ([]*domain.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := s.distances()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(s.PackagesPath)
	if err != nil {
		return nil, fmt.Errorf("open packages: %w", err)
	}
	defer f.Close()

	return ReadPackages(f, d, s.Options)
}
