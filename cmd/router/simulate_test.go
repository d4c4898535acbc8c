package main

import (
	"bytes"
	"delivery-route-engine/internal/services"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() *services.Report {
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	deadline := day.Add(10*time.Hour + 30*time.Minute)
	delivered := day.Add(10*time.Hour + 45*time.Minute)
	return &services.Report{
		RunID:         "run-1",
		At:            day.Add(17 * time.Hour),
		TotalMiles:    42.5,
		MileageTarget: 140,
		WithinTarget:  true,
		Trucks: []services.TruckSummary{{
			TruckID:  1,
			Odometer: 42.5,
			Trips:    []services.TripSummary{{Number: 1, DepartAt: day.Add(8 * time.Hour), ReturnAt: day.Add(11 * time.Hour), Miles: 42.5, Route: []int{2, 1}}},
		}},
		Deadlines: services.DeadlineSummary{Total: 1, Late: 1, Warnings: []string{"package 1 late"}},
		Packages: []services.PackageStatus{
			{PackageID: 1, Address: "100 Main St", Deadline: &deadline, Status: "delivered", TruckID: 1, DeliveredAt: &delivered, Late: true},
			{PackageID: 2, Address: "200 Main St", Status: "at_hub"},
		},
	}
}

func TestWriteReportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "text"))

	out := buf.String()
	assert.Contains(t, out, "run run-1 at 17:00")
	assert.Contains(t, out, "trip 1  08:00-11:00  42.5 miles  route [2 1]")
	assert.Contains(t, out, "total 42.5 miles (within target 140)")
	assert.Contains(t, out, "warning: package 1 late")
	assert.Contains(t, out, "10:45 LATE")
	assert.Contains(t, out, "EOD")
}

func TestWriteReportStructured(t *testing.T) {
	var js bytes.Buffer
	require.NoError(t, writeReport(&js, sampleReport(), "JSON"))
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	assert.Equal(t, "run-1", fromJSON["run_id"])

	var ym bytes.Buffer
	require.NoError(t, writeReport(&ym, sampleReport(), "yaml"))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, "run-1", fromYAML["run_id"])
	assert.Equal(t, 42.5, fromYAML["total_miles"])

	assert.Error(t, writeReport(&bytes.Buffer{}, sampleReport(), "xml"))
}
