package main

import (
	"context"
	"delivery-route-engine/internal/app"
	"delivery-route-engine/internal/config"
	"delivery-route-engine/internal/services"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	simulateAt     string
	simulateFormat string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Plan and simulate the service day, then print the report",
	RunE:  simulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateAt, "at", "", "report package status at HH:MM (default end of service)")
	simulateCmd.Flags().StringVarP(&simulateFormat, "format", "f", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, time.Now(), log)
	if err != nil {
		return err
	}
	defer engine.Close()

	var at time.Time
	if simulateAt != "" {
		if at, err = config.ClockOn(engine.Day, simulateAt); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}

	res, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), engine.Report(res, at), simulateFormat)
}

func writeReport(w io.Writer, r *services.Report, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		return writeText(w, r)
	default:
		return fmt.Errorf("unsupported format %q: want text, json or yaml", format)
	}
}

func writeText(w io.Writer, r *services.Report) error {
	fmt.Fprintf(w, "run %s at %s\n\n", r.RunID, r.At.Format("15:04"))

	for _, t := range r.Trucks {
		fmt.Fprintf(w, "truck %d: %.1f miles\n", t.TruckID, t.Odometer)
		for _, trip := range t.Trips {
			fmt.Fprintf(w, "  trip %d  %s-%s  %.1f miles  route %v\n",
				trip.Number, trip.DepartAt.Format("15:04"), trip.ReturnAt.Format("15:04"), trip.Miles, trip.Route)
		}
	}

	target := "within"
	if !r.WithinTarget {
		target = "over"
	}
	fmt.Fprintf(w, "\ntotal %.1f miles (%s target %.0f)\n", r.TotalMiles, target, r.MileageTarget)
	fmt.Fprintf(w, "deadlines: %d total, %d on time, %d late\n", r.Deadlines.Total, r.Deadlines.OnTime, r.Deadlines.Late)
	for _, warn := range r.Deadlines.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	fmt.Fprintf(w, "checks: delivered=%t groups=%t affinity=%t capacity=%t\n\n",
		r.Checks.AllDelivered, r.Checks.GroupsTogether, r.Checks.AffinityRespected, r.Checks.CapacityRespected)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tADDRESS\tDEADLINE\tSTATUS\tTRUCK\tDELIVERED")
	for _, p := range r.Packages {
		deadline := "EOD"
		if p.Deadline != nil {
			deadline = p.Deadline.Format("15:04")
		}
		truck := "-"
		if p.TruckID != 0 {
			truck = fmt.Sprint(p.TruckID)
		}
		delivered := "-"
		if p.DeliveredAt != nil {
			delivered = p.DeliveredAt.Format("15:04")
			if p.Late {
				delivered += " LATE"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.PackageID, p.Address, deadline, p.Status, truck, delivered)
	}
	return tw.Flush()
}
