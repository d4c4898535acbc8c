package api

import (
	"context"
	"delivery-route-engine/internal/adapters/distance"
	"delivery-route-engine/internal/api/dto"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/services"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceDay = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func clock(h, m int) time.Time {
	return serviceDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type fakeRepo struct {
	err error
}

func (f fakeRepo) ListPackages(context.Context) ([]*domain.Package, error) {
	if f.err != nil {
		return nil, f.err
	}
	deadline := clock(10, 30)
	return []*domain.Package{
		{PackageID: 1, Address: "100 Main St", Location: 1},
		{PackageID: 2, Address: "200 Main St", Location: 2, TruckAffinity: 2},
		{PackageID: 3, Address: "300 Main St", Location: 3, Deadline: &deadline},
	}, nil
}

func newTestServer(t *testing.T, repo fakeRepo) *httptest.Server {
	t.Helper()
	oracle, err := distance.NewMatrix(nil, [][]float64{{0}, {1, 0}, {2, 1, 0}, {3, 2, 1, 0}})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Repo:   repo,
		Oracle: oracle,
		Base: services.PlanDeliveriesRequest{
			Fleet: []services.TruckSpec{
				{TruckID: 1, Capacity: 16, Trips: 1, DepartAt: clock(8, 0)},
				{TruckID: 2, Capacity: 16, Trips: 1, DepartAt: clock(8, 0)},
			},
			Model:          services.TimeModel{SpeedMPH: 18, EndOfDay: clock(17, 0)},
			CorrectionWait: 30 * time.Minute,
			Optimizer:      services.OptimizerConfig{MaxTwoOptPasses: 100, MaxPermutationStops: 6, MaxGroupSpan: 4},
		},
		Day:           serviceDay,
		MileageTarget: 140,
		Gatherer:      prometheus.NewRegistry(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, fakeRepo{})

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
	assert.Equal(t, map[string]any{"status": "ok", "service_day": "2026-10-19"}, decode[map[string]any](t, res))

	res, err = http.Post(srv.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	assert.Equal(t, http.MethodGet, res.Header.Get("Allow"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, fakeRepo{})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, "abc-123", res.Header.Get("X-Request-ID"))
}

func TestPackagesBeforeAnyPlan(t *testing.T) {
	srv := newTestServer(t, fakeRepo{})

	res, err := http.Get(srv.URL + "/packages")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decode[dto.ListPackagesResponse](t, res)
	assert.Empty(t, body.RunID)
	assert.Equal(t, clock(17, 0), body.At.UTC())
	require.Len(t, body.Packages, 3)
	for _, p := range body.Packages {
		assert.Equal(t, domain.AtHub.String(), p.Status)
	}

	res, err = http.Get(srv.URL + "/plans/latest")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestPlanThenReplay(t *testing.T) {
	srv := newTestServer(t, fakeRepo{})

	res, err := http.Post(srv.URL+"/plans", "application/json", strings.NewReader(`{"at": "17:00"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	report := decode[services.Report](t, res)
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.Checks.AllDelivered)
	assert.True(t, report.Checks.AffinityRespected)
	assert.True(t, report.WithinTarget)
	assert.Len(t, report.Trucks, 2)
	assert.Len(t, report.Packages, 3)

	res, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health := decode[map[string]any](t, res)
	assert.Equal(t, report.RunID, health["latest_run"])
	assert.EqualValues(t, 3, health["packages"])
	assert.InDelta(t, report.TotalMiles, health["total_miles"], 1e-9)

	res, err = http.Get(srv.URL + "/packages?at=07:00")
	require.NoError(t, err)
	early := decode[dto.ListPackagesResponse](t, res)
	assert.Equal(t, report.RunID, early.RunID)
	for _, p := range early.Packages {
		assert.Equal(t, domain.AtHub.String(), p.Status)
		assert.Zero(t, p.TruckID)
	}

	res, err = http.Get(srv.URL + "/packages/2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	p2 := decode[dto.PackageResponse](t, res)
	assert.Equal(t, domain.Delivered.String(), p2.Status)
	assert.Equal(t, 2, p2.TruckID)
	assert.NotNil(t, p2.DeliveredAt)

	res, err = http.Get(srv.URL + "/plans/latest?at=12:00")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	latest := decode[services.Report](t, res)
	assert.Equal(t, report.RunID, latest.RunID)
	assert.Equal(t, clock(12, 0), latest.At.UTC())
}

func TestPackageLookupErrors(t *testing.T) {
	srv := newTestServer(t, fakeRepo{})

	tests := []struct {
		path string
		want int
	}{
		{"/packages/99", http.StatusNotFound},
		{"/packages/abc", http.StatusBadRequest},
		{"/packages/1?at=noon", http.StatusBadRequest},
		{"/packages?at=25:00", http.StatusBadRequest},
	}

	for _, tt := range tests {
		res, err := http.Get(srv.URL + tt.path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, tt.want, res.StatusCode, tt.path)
	}
}

func TestPlanRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, fakeRepo{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"fleet":`, http.StatusBadRequest},
		{"unknown field", `{"trucks": 2}`, http.StatusBadRequest},
		{"two objects", `{} {}`, http.StatusBadRequest},
		{"bad depart time", `{"fleet": [{"truck_id": 1, "depart_at": "8am"}]}`, http.StatusBadRequest},
		{"duplicate truck", `{"fleet": [{"truck_id": 1}, {"truck_id": 1}]}`, http.StatusBadRequest},
		{"capacity", `{"fleet": [{"truck_id": 1, "capacity": 500}]}`, http.StatusBadRequest},
		{"restricted truck missing", `{"fleet": [{"truck_id": 1}]}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := http.Post(srv.URL+"/plans", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			body := decode[map[string]string](t, res)
			assert.Equal(t, tt.want, res.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}

	res, err := http.Get(srv.URL + "/plans")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestPlanHidesInternalErrors(t *testing.T) {
	srv := newTestServer(t, fakeRepo{err: errors.New("db is down")})

	res, err := http.Post(srv.URL+"/plans", "application/json", nil)
	require.NoError(t, err)
	body := decode[map[string]string](t, res)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "internal server error", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, fakeRepo{})

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
