package main

import (
	"context"
	"delivery-route-engine/internal/adapters/csvload"
	"delivery-route-engine/internal/adapters/repositories"
	"delivery-route-engine/internal/app"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	seedFromCSV   bool
	seedWriteJSON string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Initialize the database schema and load packages and distances",
	Long: `Seed creates the schema in the configured sqlite or postgres database and
loads the seed JSON (source.seed_path). With --from-csv the CSV manifest and
distance table are loaded instead. --write-json converts the CSV files to a
seed JSON document without touching a database.`,
	RunE: seed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedFromCSV, "from-csv", false, "seed from the CSV source files")
	seedCmd.Flags().StringVar(&seedWriteJSON, "write-json", "", "write a seed JSON document from the CSV source files and exit")
	rootCmd.AddCommand(seedCmd)
}

func seed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if seedWriteJSON != "" {
		data, err := csvSeedData(ctx)
		if err != nil {
			return err
		}
		if err := repositories.WriteSeedJSON(seedWriteJSON, data); err != nil {
			return err
		}
		log.Infof("wrote %d packages and %d locations to %s", len(data.Packages), len(data.Locations), seedWriteJSON)
		return nil
	}

	if cfg.Source.Driver == "csv" {
		return errors.New("seed: source.driver must be sqlite or postgres")
	}

	conn, dialect, err := app.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infof("schema ready (%s)", dialect)

	if !seedFromCSV {
		if err := repositories.SeedFromJSON(ctx, conn, dialect, cfg.Source.SeedPath); err != nil {
			return err
		}
		log.Infof("seeded from %s", cfg.Source.SeedPath)
		return nil
	}

	data, err := csvSeedData(ctx)
	if err != nil {
		return err
	}
	if err := repositories.Seed(ctx, conn, dialect, data); err != nil {
		return err
	}
	log.Infof("seeded %d packages from %s", len(data.Packages), cfg.Source.PackagesPath)
	return nil
}

func csvSeedData(ctx context.Context) (*repositories.SeedData, error) {
	day := cfg.Day(time.Now())
	corrections, err := app.Corrections(cfg, day)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	src := csvload.NewFileSource(cfg.Source.PackagesPath, cfg.Source.DistancesPath, cfg.HubLocation,
		csvload.Options{Day: day, Corrections: corrections})
	labels, rows, err := src.LoadDistances(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	pkgs, err := src.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return repositories.NewSeedData(labels, rows, pkgs), nil
}
