// Package app assembles the engine from configuration: the package and
// distance source, the distance oracle, metrics and the base run request.
package app

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/adapters/csvload"
	"delivery-route-engine/internal/adapters/distance"
	"delivery-route-engine/internal/adapters/repositories"
	"delivery-route-engine/internal/config"
	"delivery-route-engine/internal/directory"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/db"
	"delivery-route-engine/internal/platform/logger"
	"delivery-route-engine/internal/platform/metrics"
	"delivery-route-engine/internal/ports"
	"delivery-route-engine/internal/services"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSQLitePath is used when the sqlite driver has no DSN configured.
const DefaultSQLitePath = "data/router.db"

// Engine is a ready-to-run planner bound to one service day.
type Engine struct {
	Config   *config.Config
	Day      time.Time
	Repo     ports.PackageRepository
	Oracle   *distance.Matrix
	Base     services.PlanDeliveriesRequest
	Registry *prometheus.Registry

	db  *sql.DB
	log logger.Logger
}

// New opens the configured source, loads the distance table and prepares
// the fleet. now anchors the service day when none is configured.
func New(ctx context.Context, cfg *config.Config, now time.Time, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.NopLogger{}
	}

	day := cfg.Day(now)
	e := &Engine{Config: cfg, Day: day, log: log, Registry: prometheus.NewRegistry()}

	base, err := BaseRequest(cfg, day)
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	rec, err := metrics.NewRecorder(e.Registry)
	if err != nil {
		return nil, fmt.Errorf("new engine: metrics: %w", err)
	}
	base.Metrics = rec
	base.Logger = log
	e.Base = base

	corrections, err := Corrections(cfg, day)
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	var distRepo ports.DistanceRepository
	switch cfg.Source.Driver {
	case "csv":
		src := csvload.NewFileSource(cfg.Source.PackagesPath, cfg.Source.DistancesPath, cfg.HubLocation,
			csvload.Options{Day: day, Corrections: corrections})
		e.Repo, distRepo = src, src
	default:
		conn, dialect, err := OpenDB(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("new engine: %w", err)
		}
		e.db = conn
		repo := repositories.NewSQLRepository(conn, dialect, day)
		distRepo = repo
		e.Repo = &correctedRepo{next: repo, corrections: corrections, hub: cfg.HubLocation, dist: distRepo}
	}

	labels, rows, err := distRepo.LoadDistances(ctx)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if e.Oracle, err = distance.NewMatrix(labels, rows); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("new engine: %w", err)
	}

	log.Infof("engine ready: driver=%s day=%s locations=%d trucks=%d",
		cfg.Source.Driver, day.Format(time.DateOnly), e.Oracle.Size(), len(base.Fleet))
	return e, nil
}

// Run plans and simulates the day on a fresh copy of the package records.
func (e *Engine) Run(ctx context.Context) (*domain.RunResult, error) {
	pkgs, err := e.Repo.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	dir, err := directory.CloneOf(pkgs)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return services.PlanDeliveries(ctx, e.Base, dir, e.Oracle)
}

// Report renders res at time of day at, end of service when at is zero.
func (e *Engine) Report(res *domain.RunResult, at time.Time) *services.Report {
	if at.IsZero() {
		at = e.Base.Model.EndOfDay
	}
	return services.BuildReport(res, at, e.Config.MileageTarget)
}

func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

// BaseRequest converts the fleet and timing configuration for day.
func BaseRequest(cfg *config.Config, day time.Time) (services.PlanDeliveriesRequest, error) {
	endOfDay, err := config.ClockOn(day, cfg.EndOfDay)
	if err != nil {
		return services.PlanDeliveriesRequest{}, fmt.Errorf("end of day: %w", err)
	}

	req := services.PlanDeliveriesRequest{
		HubLocation:    cfg.HubLocation,
		Model:          services.TimeModel{SpeedMPH: cfg.SpeedMPH, EndOfDay: endOfDay},
		CorrectionWait: cfg.CorrectionWait,
		Optimizer: services.OptimizerConfig{
			MaxTwoOptPasses:     cfg.Optimizer.MaxTwoOptPasses,
			MaxPermutationStops: cfg.Optimizer.MaxPermutationStops,
			MaxGroupSpan:        cfg.Optimizer.MaxGroupSpan,
		},
	}
	for _, t := range cfg.Fleet {
		depart, err := config.ClockOn(day, t.DepartAt)
		if err != nil {
			return services.PlanDeliveriesRequest{}, fmt.Errorf("truck %d: %w", t.ID, err)
		}
		req.Fleet = append(req.Fleet, services.TruckSpec{TruckID: t.ID, Capacity: t.Capacity, Trips: t.Trips, DepartAt: depart})
	}
	return req, nil
}

// Corrections resolves the configured correction times on day.
func Corrections(cfg *config.Config, day time.Time) ([]csvload.Correction, error) {
	out := make([]csvload.Correction, 0, len(cfg.Corrections))
	for _, c := range cfg.Corrections {
		at, err := config.ClockOn(day, c.At)
		if err != nil {
			return nil, fmt.Errorf("correction for package %d: %w", c.PackageID, err)
		}
		loc := -1
		if c.Location != nil {
			loc = *c.Location
		}
		out = append(out, csvload.Correction{PackageID: c.PackageID, At: at, Address: c.Address, Location: loc})
	}
	return out, nil
}

// OpenDB connects to the configured sqlite or postgres database.
func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, repositories.Dialect, error) {
	dialect, err := repositories.ParseDialect(cfg.Source.Driver)
	if err != nil {
		return nil, "", err
	}

	var conn *sql.DB
	switch dialect {
	case repositories.Postgres:
		conn, err = db.Open(cfg.Source.DSN)
	default:
		dsn := cfg.Source.DSN
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		conn, err = db.OpenSQLite(dsn)
	}
	if err != nil {
		return nil, "", err
	}

	if err := repositories.InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, "", err
	}
	return conn, dialect, nil
}

// correctedRepo applies configured corrections on top of stored packages.
type correctedRepo struct {
	next        ports.PackageRepository
	dist        ports.DistanceRepository
	hub         int
	corrections []csvload.Correction
}

func (r *correctedRepo) ListPackages(ctx context.Context) ([]*domain.Package, error) {
	pkgs, err := r.next.ListPackages(ctx)
	if err != nil || len(r.corrections) == 0 {
		return pkgs, err
	}

	labels, rows, err := r.dist.LoadDistances(ctx)
	if err != nil {
		return nil, err
	}
	dist, err := csvload.NewDistances(labels, rows, r.hub)
	if err != nil {
		return nil, err
	}
	if err := csvload.ApplyCorrections(pkgs, dist, r.corrections); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return pkgs, nil
}
