package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const clockLayout = "15:04"

// Config is the full runtime configuration of the router.
type Config struct {
	ServiceDay     string             `koanf:"service_day"`
	HubLocation    int                `koanf:"hub_location"`
	SpeedMPH       float64            `koanf:"speed_mph"`
	EndOfDay       string             `koanf:"end_of_day"`
	CorrectionWait time.Duration      `koanf:"correction_wait"`
	MileageTarget  float64            `koanf:"mileage_target"`
	Fleet          []TruckConfig      `koanf:"fleet"`
	Corrections    []CorrectionConfig `koanf:"corrections"`
	Optimizer      OptimizerConfig    `koanf:"optimizer"`
	Source         SourceConfig       `koanf:"source"`
	HTTP           HTTPConfig         `koanf:"http"`
	Logging        LoggingConfig      `koanf:"logging"`
}

// One entry of the vehicle registry.
type TruckConfig struct {
	ID       int    `koanf:"id"`
	Capacity int    `koanf:"capacity"`
	Trips    int    `koanf:"trips"`
	DepartAt string `koanf:"depart_at"`
}

// Address correction known ahead of the service day.
type CorrectionConfig struct {
	PackageID int    `koanf:"package_id"`
	At        string `koanf:"at"`
	Address   string `koanf:"address"`
	Location  *int   `koanf:"location"`
}

type OptimizerConfig struct {
	MaxTwoOptPasses     int `koanf:"max_two_opt_passes"`
	MaxPermutationStops int `koanf:"max_permutation_stops"`
	MaxGroupSpan        int `koanf:"max_group_span"`
}

// Where packages and distances are read from: csv, sqlite or postgres.
type SourceConfig struct {
	Driver        string `koanf:"driver"`
	PackagesPath  string `koanf:"packages_path"`
	DistancesPath string `koanf:"distances_path"`
	SeedPath      string `koanf:"seed_path"`
	DSN           string `koanf:"dsn"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Load reads a YAML file (optional when path is empty) and applies ROUTER_
// environment overrides, e.g. ROUTER_SOURCE__DRIVER=sqlite.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil, fmt.Errorf("load config: unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config: read %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("ROUTER_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "router_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load config: env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: unmarshal: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults fills the WGUPS day: two trucks, 18 mph, service until 17:00.
func (c *Config) SetDefaults() {
	if c.SpeedMPH == 0 {
		c.SpeedMPH = 18
	}
	if c.EndOfDay == "" {
		c.EndOfDay = "17:00"
	}
	if c.CorrectionWait == 0 {
		c.CorrectionWait = 30 * time.Minute
	}
	if c.MileageTarget == 0 {
		c.MileageTarget = 140
	}
	if len(c.Fleet) == 0 {
		c.Fleet = []TruckConfig{
			{ID: 1, Capacity: 16, Trips: 2, DepartAt: "08:00"},
			{ID: 2, Capacity: 16, Trips: 2, DepartAt: "09:05"},
		}
	}
	for i := range c.Fleet {
		if c.Fleet[i].Capacity == 0 {
			c.Fleet[i].Capacity = 16
		}
		if c.Fleet[i].Trips == 0 {
			c.Fleet[i].Trips = 1
		}
		if c.Fleet[i].DepartAt == "" {
			c.Fleet[i].DepartAt = "08:00"
		}
	}
	if c.Optimizer.MaxTwoOptPasses == 0 {
		c.Optimizer.MaxTwoOptPasses = 100
	}
	if c.Optimizer.MaxPermutationStops == 0 {
		c.Optimizer.MaxPermutationStops = 6
	}
	if c.Optimizer.MaxGroupSpan == 0 {
		c.Optimizer.MaxGroupSpan = 4
	}
	if c.Source.Driver == "" {
		c.Source.Driver = "csv"
	}
	if c.Source.PackagesPath == "" {
		c.Source.PackagesPath = "data/packages.csv"
	}
	if c.Source.DistancesPath == "" {
		c.Source.DistancesPath = "data/distances.csv"
	}
	if c.Source.SeedPath == "" {
		c.Source.SeedPath = "data/seeds/packages.json"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.SpeedMPH <= 0 {
		errs = append(errs, fmt.Errorf("speed_mph must be positive, got %v", c.SpeedMPH))
	}
	if c.HubLocation < 0 {
		errs = append(errs, fmt.Errorf("hub_location must not be negative, got %d", c.HubLocation))
	}
	if _, err := time.Parse(clockLayout, c.EndOfDay); err != nil {
		errs = append(errs, fmt.Errorf("end_of_day %q: want HH:MM", c.EndOfDay))
	}
	if c.ServiceDay != "" {
		if _, err := time.Parse(time.DateOnly, c.ServiceDay); err != nil {
			errs = append(errs, fmt.Errorf("service_day %q: want YYYY-MM-DD", c.ServiceDay))
		}
	}
	if c.Optimizer.MaxPermutationStops > 6 {
		errs = append(errs, fmt.Errorf("optimizer.max_permutation_stops must be at most 6, got %d", c.Optimizer.MaxPermutationStops))
	}

	seen := map[int]bool{}
	for _, t := range c.Fleet {
		if t.ID <= 0 {
			errs = append(errs, fmt.Errorf("fleet: truck id must be positive, got %d", t.ID))
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("fleet: duplicate truck id %d", t.ID))
		}
		seen[t.ID] = true
		if t.Capacity < 1 {
			errs = append(errs, fmt.Errorf("fleet: truck %d capacity must be positive", t.ID))
		}
		if t.Trips < 1 {
			errs = append(errs, fmt.Errorf("fleet: truck %d trips must be positive", t.ID))
		}
		if _, err := time.Parse(clockLayout, t.DepartAt); err != nil {
			errs = append(errs, fmt.Errorf("fleet: truck %d depart_at %q: want HH:MM", t.ID, t.DepartAt))
		}
	}

	for _, corr := range c.Corrections {
		if corr.PackageID <= 0 {
			errs = append(errs, fmt.Errorf("corrections: package_id must be positive, got %d", corr.PackageID))
		}
		if strings.TrimSpace(corr.Address) == "" {
			errs = append(errs, fmt.Errorf("corrections: package %d address is required", corr.PackageID))
		}
		if _, err := time.Parse(clockLayout, corr.At); err != nil {
			errs = append(errs, fmt.Errorf("corrections: package %d at %q: want HH:MM", corr.PackageID, corr.At))
		}
	}

	switch c.Source.Driver {
	case "csv", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("source.driver %q: want csv, sqlite or postgres", c.Source.Driver))
	}
	if c.Source.Driver == "postgres" && c.Source.DSN == "" {
		errs = append(errs, errors.New("source.dsn is required for the postgres driver"))
	}

	return errors.Join(errs...)
}

// Day returns the service date at midnight in the local zone.
func (c *Config) Day(now time.Time) time.Time {
	if c.ServiceDay != "" {
		if d, err := time.ParseInLocation(time.DateOnly, c.ServiceDay, time.Local); err == nil {
			return d
		}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// ClockOn resolves an HH:MM value on the given service day.
func ClockOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

// Get returns the environment value of key or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
