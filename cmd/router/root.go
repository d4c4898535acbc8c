package main

import (
	"delivery-route-engine/internal/config"
	"delivery-route-engine/internal/platform/logger"
	"delivery-route-engine/internal/platform/obs"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

var (
	cfgPath string
	cfg     *config.Config
	log     logger.Logger = logger.NopLogger{}
)

var rootCmd = &cobra.Command{
	Use:           "router",
	Short:         "Constraint-aware package assignment and route simulation",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		path := cfgPath
		if !cmd.Flags().Changed("config") {
			path = config.Get("CONFIG_PATH", path)
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				path = ""
			}
		}

		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}

		log = logger.NewWithWriter("router", os.Stderr, cfg.Logging.Level)
		obs.SetLogger(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "configuration file (YAML)")
}
