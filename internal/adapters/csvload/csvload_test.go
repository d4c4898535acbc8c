package csvload

import (
	"context"
	"delivery-route-engine/internal/domain"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceDay = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return serviceDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func readTestDistances(t *testing.T) *Distances {
	t.Helper()
	f, err := os.Open("testdata/distances.csv")
	require.NoError(t, err)
	defer f.Close()

	d, err := ReadDistances(f, 0)
	require.NoError(t, err)
	return d
}

func readTestPackages(t *testing.T, opts Options) ([]*domain.Package, error) {
	t.Helper()
	f, err := os.Open("testdata/packages.csv")
	require.NoError(t, err)
	defer f.Close()

	return ReadPackages(f, readTestDistances(t), opts)
}

func stateStreetCorrection() Correction {
	return Correction{PackageID: 6, At: at(10, 20), Address: "410 S State St", Location: -1}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4001 South 700 East", "4001 s 700 e"},
		{"  1060 Dalton Ave S. ", "1060 dalton ave s"},
		{"5383 South 900 East #104", "5383 s 900 e #104"},
		{"Western Governors University\n4001 South 700 East", "western governors university 4001 s 700 e"},
		{"3575 W Valley Central Station bus Loop (84119)", "3575 w valley central station bus loop"},
		{"300 State St, Salt Lake City", "300 state st salt lake city"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAddress(tt.in), "NormalizeAddress(%q)", tt.in)
	}
}

func TestReadDistances(t *testing.T) {
	d := readTestDistances(t)

	require.Equal(t, 7, d.Size())
	assert.Len(t, d.Labels, 7)

	cases := map[string]int{
		"4001 South 700 East":               0,
		"hub":                               0,
		"1060 DALTON AVE S (Peace Gardens)": 1,
		"Sugar House Park\n1330 2100 S":     2,
		"177 West Price Ave":                4,
		"300 State St":                      5,
		"410 S State St":                    6,
	}
	for address, want := range cases {
		got, ok := d.Lookup(address)
		require.True(t, ok, "lookup %q", address)
		assert.Equal(t, want, got, "lookup %q", address)
	}

	_, ok := d.Lookup("1 Nowhere Rd")
	assert.False(t, ok)

	m, err := d.Matrix()
	require.NoError(t, err)
	assert.Equal(t, 7.2, m.Distance(0, 1))
	assert.Equal(t, 7.2, m.Distance(1, 0))
	assert.Equal(t, 1.4, m.Distance(5, 6))
	assert.Zero(t, m.Distance(3, 3))
}

func TestReadDistancesErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		hub  int
		want string
	}{
		{"empty", "Distance Table,,\n", 0, "no distance rows"},
		{"bad cell", "A,0\nB,1.5,x\n", 0, "line 2"},
		{"hub outside table", "A,0\nB,2,0\n", 2, "hub row 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDistances(strings.NewReader(tt.csv), tt.hub)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDistancesMatrixRejectsShortRow(t *testing.T) {
	d, err := ReadDistances(strings.NewReader("A,0\nB,2,0\nC,4\n"), 0)
	require.NoError(t, err)

	_, err = d.Matrix()
	assert.Error(t, err)
}

func TestReadPackages(t *testing.T) {
	pkgs, err := readTestPackages(t, Options{Day: serviceDay, Corrections: []Correction{stateStreetCorrection()}})
	require.NoError(t, err)
	require.Len(t, pkgs, 6)

	for i, p := range pkgs {
		assert.Equal(t, i+1, p.PackageID)
		assert.Equal(t, domain.AtHub, p.Status)
	}

	p1 := pkgs[0]
	assert.Equal(t, "1060 Dalton Ave S", p1.Address)
	assert.Equal(t, "Salt Lake City", p1.City)
	assert.Equal(t, "84104", p1.Zip)
	assert.Equal(t, 1, p1.Location)
	assert.Equal(t, 5, p1.Weight)
	require.NotNil(t, p1.Deadline)
	assert.Equal(t, at(10, 30), *p1.Deadline)

	assert.Nil(t, pkgs[1].Deadline)
	assert.Equal(t, 44, pkgs[1].Weight)

	assert.Equal(t, 2, pkgs[2].TruckAffinity)

	assert.Equal(t, at(9, 5), pkgs[3].AvailableAt)
	assert.True(t, pkgs[0].AvailableAt.IsZero())

	for _, i := range []int{0, 1, 4} {
		assert.Equal(t, 1, pkgs[i].GroupID, "package %d", pkgs[i].PackageID)
	}
	assert.Zero(t, pkgs[2].GroupID)

	p6 := pkgs[5]
	require.NotNil(t, p6.Correction)
	assert.Equal(t, 5, p6.Location)
	assert.Equal(t, 6, p6.Correction.Location)
	assert.Equal(t, "410 S State St", p6.Correction.Address)
	assert.Equal(t, at(10, 20), p6.Correction.At)
	assert.False(t, p6.Correction.Applied)
	assert.Equal(t, 6, p6.PlannedLocation())
}

func TestReadPackagesCorrectionWithExplicitLocation(t *testing.T) {
	corr := stateStreetCorrection()
	corr.Address = "410 S. State Street"
	corr.Location = 6

	pkgs, err := readTestPackages(t, Options{Day: serviceDay, Corrections: []Correction{corr}})
	require.NoError(t, err)
	assert.Equal(t, 6, pkgs[5].Correction.Location)
	assert.Equal(t, "410 S. State Street", pkgs[5].Correction.Address)
}

func TestReadPackagesConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"wrong address without correction", Options{Day: serviceDay}, "package_id=6 has a wrong address"},
		{"correction for unknown package", Options{Day: serviceDay, Corrections: []Correction{
			stateStreetCorrection(),
			{PackageID: 40, At: at(10, 20), Address: "410 S State St", Location: -1},
		}}, "unknown package_id=40"},
		{"correction to unknown address", Options{Day: serviceDay, Corrections: []Correction{
			{PackageID: 6, At: at(10, 20), Address: "1 Nowhere Rd", Location: -1},
		}}, "not in the distance table"},
		{"correction outside table", Options{Day: serviceDay, Corrections: []Correction{
			{PackageID: 6, At: at(10, 20), Address: "410 S State St", Location: 9},
		}}, "outside table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readTestPackages(t, tt.opts)
			require.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadPackagesRejectsBadRows(t *testing.T) {
	d := readTestDistances(t)

	tests := []struct {
		name   string
		csv    string
		config bool
	}{
		{"unknown address", "1,1 Nowhere Rd,Salt Lake City,UT,84104,EOD,5,\n", true},
		{"duplicate id", "1,300 State St,SLC,UT,84103,EOD,5,\n1,300 State St,SLC,UT,84103,EOD,5,\n", true},
		{"unknown group member", "1,300 State St,SLC,UT,84103,EOD,5,Must be delivered with 7\n", true},
		{"delayed without time", "1,300 State St,SLC,UT,84103,EOD,5,Delayed on flight\n", true},
		{"bad deadline", "1,300 State St,SLC,UT,84103,noon,5,\n", false},
		{"bad weight", "1,300 State St,SLC,UT,84103,EOD,heavy,\n", false},
		{"short row", "1,300 State St,SLC\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPackages(strings.NewReader(tt.csv), d, Options{Day: serviceDay})
			require.Error(t, err)
			if tt.config {
				assert.ErrorIs(t, err, domain.ErrConfiguration)
			}
		})
	}
}

func TestParseDeadline(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"EOD", nil},
		{"eod", nil},
		{"", nil},
		{"10:30 AM", ptr(at(10, 30))},
		{"9:00 am", ptr(at(9, 0))},
		{"1:15 PM", ptr(at(13, 15))},
		{"12:00 PM", ptr(at(12, 0))},
		{"16:45", ptr(at(16, 45))},
	}

	for _, tt := range tests {
		got, err := ParseDeadline(tt.in, serviceDay)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDeadline("tomorrow", serviceDay)
	assert.Error(t, err)
	_, err = ParseDeadline("25:00", serviceDay)
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	src := NewFileSource("testdata/packages.csv", "testdata/distances.csv", 0,
		Options{Day: serviceDay, Corrections: []Correction{stateStreetCorrection()}})
	ctx := context.Background()

	labels, rows, err := src.LoadDistances(ctx)
	require.NoError(t, err)
	assert.Len(t, labels, 7)
	assert.Len(t, rows, 7)
	assert.Equal(t, []float64{7.2, 0}, rows[1])

	pkgs, err := src.ListPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, pkgs, 6)

	missing := NewFileSource("testdata/missing.csv", "testdata/distances.csv", 0, Options{Day: serviceDay})
	_, err = missing.ListPackages(ctx)
	assert.ErrorIs(t, err, os.ErrNotExist)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.ListPackages(canceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func ptr(t time.Time) *time.Time { return &t }

func TestNewDistances(t *testing.T) {
	d, err := NewDistances([]string{"Hub\n1 Depot Rd", "2 Elm St"}, [][]float64{{0}, {3, 0}}, 0)
	require.NoError(t, err)

	i, ok := d.Lookup("1 Depot Rd")
	assert.True(t, ok)
	assert.Zero(t, i)
	i, ok = d.Lookup("2 ELM ST.")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, err = NewDistances([]string{"Hub"}, [][]float64{{0}, {3, 0}}, 0)
	assert.ErrorContains(t, err, "1 labels for 2 rows")
	_, err = NewDistances([]string{"Hub", "A"}, [][]float64{{0}, {3, 0}}, 5)
	assert.ErrorContains(t, err, "hub row 5")
}

func TestApplyCorrections(t *testing.T) {
	d, err := NewDistances([]string{"Hub", "2 Elm St", "410 S State St"}, [][]float64{{0}, {3, 0}, {4, 1, 0}}, 0)
	require.NoError(t, err)

	pkgs := []*domain.Package{{PackageID: 9, Location: 1}, {PackageID: 3, Location: 1}}
	err = ApplyCorrections(pkgs, d, []Correction{{PackageID: 9, At: at(10, 20), Address: "410 South State St", Location: -1}})
	require.NoError(t, err)

	require.NotNil(t, pkgs[0].Correction)
	assert.Equal(t, 2, pkgs[0].Correction.Location)
	assert.Nil(t, pkgs[1].Correction)
}
