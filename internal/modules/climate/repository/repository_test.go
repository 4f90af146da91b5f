package repository

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"hawaii-climate/internal/db"
	"hawaii-climate/internal/modules/climate/types"
	"hawaii-climate/internal/testdb"
)

const waihee = "USC00519281"

func newRepo(t *testing.T, fixtures ...string) (ClimateRepository, *sql.DB) {
	t.Helper()
	conn := testdb.Open(t, fixtures...)
	return NewRepository(conn, db.SQLite), conn
}

func ptr(v float64) *float64 { return &v }

func assertFloat(t *testing.T, name string, got *float64, want *float64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s = %v; want %v", name, fmtPtr(got), fmtPtr(want))
	case *got != *want:
		t.Errorf("%s = %v; want %v", name, *got, *want)
	}
}

func fmtPtr(p *float64) any {
	if p == nil {
		return "null"
	}
	return *p
}

func TestNewRepository(t *testing.T) {
	repo, _ := newRepo(t)
	if repo == nil {
		t.Fatal("NewRepository returned nil")
	}
}

func TestGetPrecipitation_Empty(t *testing.T) {
	repo, _ := newRepo(t)

	got, err := repo.GetPrecipitation(context.Background())
	if err != nil {
		t.Fatalf("GetPrecipitation: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("GetPrecipitation = %#v; want empty non-nil slice", got)
	}
}

func TestGetPrecipitation_Scenario(t *testing.T) {
	repo, _ := newRepo(t, testdb.Scenario)

	got, err := repo.GetPrecipitation(context.Background())
	if err != nil {
		t.Fatalf("GetPrecipitation: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetPrecipitation: got %d rows, want 3", len(got))
	}

	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Date < got[j].Date }) {
		t.Errorf("rows not sorted by date: %+v", got)
	}
	if got[0].Date != "2017-08-01" || got[1].Date != "2017-08-01" {
		t.Errorf("first two dates = %q, %q; want both 2017-08-01", got[0].Date, got[1].Date)
	}

	// Same-date rows may come back in either order; compare as a set.
	prcps := map[float64]bool{}
	for _, p := range got[:2] {
		if p.Prcp == nil {
			t.Fatalf("unexpected null prcp on %s", p.Date)
		}
		prcps[*p.Prcp] = true
	}
	if !prcps[0.0] || !prcps[0.5] {
		t.Errorf("2017-08-01 prcp values = %v; want 0 and 0.5", prcps)
	}

	last := got[2]
	if last.Date != "2017-08-23" {
		t.Errorf("last date = %q; want 2017-08-23", last.Date)
	}
	if last.Prcp != nil {
		t.Errorf("last prcp = %v; want null preserved", *last.Prcp)
	}
}

func TestGetPrecipitation_OneEntryPerRow(t *testing.T) {
	repo, conn := newRepo(t, testdb.LastYear)

	got, err := repo.GetPrecipitation(context.Background())
	if err != nil {
		t.Fatalf("GetPrecipitation: %v", err)
	}
	var rows int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM measurement`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if len(got) != rows {
		t.Fatalf("GetPrecipitation: got %d entries, table has %d rows", len(got), rows)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Date > got[i].Date {
			t.Fatalf("entry %d (%s) after entry %d (%s)", i-1, got[i-1].Date, i, got[i].Date)
		}
	}
}

func TestGetStations_Empty(t *testing.T) {
	repo, _ := newRepo(t)

	stations, err := repo.GetStations(context.Background())
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	if stations == nil || len(stations) != 0 {
		t.Fatalf("GetStations = %#v; want empty non-nil slice", stations)
	}
}

func TestGetStations_SortedAndDistinct(t *testing.T) {
	repo, conn := newRepo(t, testdb.Stations)
	testdb.Exec(t, conn, `INSERT INTO station (station, name) VALUES ('USC00519281', 'WAIHEE duplicate')`)

	stations, err := repo.GetStations(context.Background())
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	want := []string{"USC00513117", "USC00516128", "USC00519281", "USC00519397"}
	if len(stations) != len(want) {
		t.Fatalf("GetStations = %v; want %v", stations, want)
	}
	for i := range want {
		if stations[i] != want[i] {
			t.Errorf("stations[%d] = %q; want %q", i, stations[i], want[i])
		}
	}
}

func TestGetLastYearTemperatures_Window(t *testing.T) {
	repo, _ := newRepo(t, testdb.LastYear)

	got, err := repo.GetLastYearTemperatures(context.Background(), waihee)
	if err != nil {
		t.Fatalf("GetLastYearTemperatures: %v", err)
	}

	want := []types.TemperatureObservation{
		{Date: "2016-08-23", Tobs: ptr(77)},
		{Date: "2016-08-24", Tobs: ptr(77)},
		{Date: "2017-02-28", Tobs: ptr(70)},
		{Date: "2017-08-18", Tobs: ptr(79)},
		{Date: "2017-08-19", Tobs: ptr(76)},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows %+v; want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i].Date != want[i].Date {
			t.Errorf("row %d date = %q; want %q", i, got[i].Date, want[i].Date)
		}
		assertFloat(t, "tobs "+want[i].Date, got[i].Tobs, want[i].Tobs)
	}
}

func TestGetLastYearTemperatures_OtherStationsExcluded(t *testing.T) {
	repo, _ := newRepo(t, testdb.LastYear)

	// Waikiki has rows on the newest date, but only the requested station counts.
	got, err := repo.GetLastYearTemperatures(context.Background(), "USC00519397")
	if err != nil {
		t.Fatalf("GetLastYearTemperatures: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %+v; want the two Waikiki rows", got)
	}
	for _, obs := range got {
		if obs.Date != "2016-08-24" && obs.Date != "2017-08-23" {
			t.Errorf("unexpected date %q", obs.Date)
		}
	}

	none, err := repo.GetLastYearTemperatures(context.Background(), "USC00000000")
	if err != nil {
		t.Fatalf("GetLastYearTemperatures: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unknown station returned %+v", none)
	}
}

func TestGetLastYearTemperatures_FixedSpanAcrossLeapDay(t *testing.T) {
	repo, conn := newRepo(t)
	testdb.Exec(t, conn, `
		INSERT INTO measurement (station, date, prcp, tobs) VALUES
		('USC00519281', '2015-08-23', 0.1, 70),
		('USC00519281', '2015-08-24', 0.2, 71),
		('USC00513117', '2016-08-23', 0.3, 72)
	`)

	got, err := repo.GetLastYearTemperatures(context.Background(), waihee)
	if err != nil {
		t.Fatalf("GetLastYearTemperatures: %v", err)
	}
	// 2016-08-23 minus 365 days is 2015-08-24 because 2016-02-29 lies in between.
	if len(got) != 1 || got[0].Date != "2015-08-24" {
		t.Fatalf("got %+v; want only 2015-08-24", got)
	}
}

func TestGetLastYearTemperatures_EmptyTable(t *testing.T) {
	repo, _ := newRepo(t)

	got, err := repo.GetLastYearTemperatures(context.Background(), waihee)
	if err != nil {
		t.Fatalf("GetLastYearTemperatures: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v; want empty non-nil slice", got)
	}
}

func TestGetLastYearTemperatures_NullTobsPreserved(t *testing.T) {
	repo, conn := newRepo(t)
	testdb.Exec(t, conn, `INSERT INTO measurement (station, date, prcp, tobs) VALUES ('USC00519281', '2017-08-23', 0.0, NULL)`)

	got, err := repo.GetLastYearTemperatures(context.Background(), waihee)
	if err != nil {
		t.Fatalf("GetLastYearTemperatures: %v", err)
	}
	if len(got) != 1 || got[0].Tobs != nil {
		t.Fatalf("got %+v; want one row with null tobs", got)
	}
}

func TestGetLastYearTemperatures_UnparseableLatestDate(t *testing.T) {
	repo, conn := newRepo(t)
	testdb.Exec(t, conn, `INSERT INTO measurement (station, date, prcp, tobs) VALUES ('USC00519281', 'yesterday', 0.0, 70)`)

	if _, err := repo.GetLastYearTemperatures(context.Background(), waihee); err == nil {
		t.Fatal("GetLastYearTemperatures error = nil; want parse error")
	}
}

func TestLastYearCutoff(t *testing.T) {
	tests := []struct {
		latest string
		want   string
	}{
		{latest: "2017-08-23", want: "2016-08-23"},
		{latest: "2016-08-23", want: "2015-08-24"},
		{latest: "2017-03-01", want: "2016-03-01"},
		{latest: "2016-03-01", want: "2015-03-02"},
	}
	for _, tt := range tests {
		t.Run(tt.latest, func(t *testing.T) {
			got, err := lastYearCutoff(tt.latest)
			if err != nil {
				t.Fatalf("lastYearCutoff(%q) err = %v", tt.latest, err)
			}
			if got != tt.want {
				t.Errorf("lastYearCutoff(%q) = %q; want %q", tt.latest, got, tt.want)
			}
		})
	}
}

func TestGetTemperatureStatsFrom(t *testing.T) {
	repo, _ := newRepo(t, testdb.Scenario)

	tests := []struct {
		name  string
		start string
		want  types.TemperatureStats
	}{
		{
			name:  "newest date only",
			start: "2017-08-23",
			want:  types.TemperatureStats{Min: ptr(81), Avg: ptr(81), Max: ptr(81)},
		},
		{
			name:  "all rows across stations",
			start: "2017-08-01",
			want:  types.TemperatureStats{Min: ptr(77), Avg: ptr(79), Max: ptr(81)},
		},
		{
			name:  "after every date",
			start: "2018-01-01",
			want:  types.TemperatureStats{},
		},
		{
			name:  "unparseable start matches nothing",
			start: "notadate",
			want:  types.TemperatureStats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetTemperatureStatsFrom(context.Background(), tt.start)
			if err != nil {
				t.Fatalf("GetTemperatureStatsFrom(%q): %v", tt.start, err)
			}
			if len(got) != 1 {
				t.Fatalf("got %d records; want exactly 1", len(got))
			}
			assertFloat(t, "TMIN", got[0].Min, tt.want.Min)
			assertFloat(t, "TAVG", got[0].Avg, tt.want.Avg)
			assertFloat(t, "TMAX", got[0].Max, tt.want.Max)
		})
	}
}

func TestGetTemperatureStatsRange(t *testing.T) {
	repo, _ := newRepo(t, testdb.Scenario)

	tests := []struct {
		name       string
		start, end string
		want       types.TemperatureStats
	}{
		{
			name:  "single day with duplicate stations",
			start: "2017-08-01", end: "2017-08-01",
			want: types.TemperatureStats{Min: ptr(77), Avg: ptr(78), Max: ptr(79)},
		},
		{
			name:  "bounds are inclusive",
			start: "2017-08-01", end: "2017-08-23",
			want: types.TemperatureStats{Min: ptr(77), Avg: ptr(79), Max: ptr(81)},
		},
		{
			name:  "gap between observations",
			start: "2017-08-02", end: "2017-08-22",
			want: types.TemperatureStats{},
		},
		{
			name:  "end before start",
			start: "2017-08-23", end: "2017-08-01",
			want: types.TemperatureStats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetTemperatureStatsRange(context.Background(), tt.start, tt.end)
			if err != nil {
				t.Fatalf("GetTemperatureStatsRange(%q, %q): %v", tt.start, tt.end, err)
			}
			if len(got) != 1 {
				t.Fatalf("got %d records; want exactly 1", len(got))
			}
			assertFloat(t, "TMIN", got[0].Min, tt.want.Min)
			assertFloat(t, "TAVG", got[0].Avg, tt.want.Avg)
			assertFloat(t, "TMAX", got[0].Max, tt.want.Max)
		})
	}
}

func TestSessionsReleased(t *testing.T) {
	repo, conn := newRepo(t, testdb.Stations, testdb.LastYear)

	// The pool holds a single connection; a leaked session would block the next call.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if _, err := repo.GetPrecipitation(ctx); err != nil {
			t.Fatalf("GetPrecipitation: %v", err)
		}
		if _, err := repo.GetStations(ctx); err != nil {
			t.Fatalf("GetStations: %v", err)
		}
		if _, err := repo.GetLastYearTemperatures(ctx, waihee); err != nil {
			t.Fatalf("GetLastYearTemperatures: %v", err)
		}
		if _, err := repo.GetTemperatureStatsFrom(ctx, "2017-01-01"); err != nil {
			t.Fatalf("GetTemperatureStatsFrom: %v", err)
		}
		if _, err := repo.GetTemperatureStatsRange(ctx, "2017-01-01", "2017-12-31"); err != nil {
			t.Fatalf("GetTemperatureStatsRange: %v", err)
		}
	}
	if inUse := conn.Stats().InUse; inUse != 0 {
		t.Errorf("connections in use after calls = %d; want 0", inUse)
	}
}

func TestSessionReleasedOnError(t *testing.T) {
	repo, conn := newRepo(t)
	testdb.Exec(t, conn, `DROP TABLE station`)

	if _, err := repo.GetStations(context.Background()); err == nil {
		t.Fatal("GetStations error = nil; want error for missing table")
	}
	if inUse := conn.Stats().InUse; inUse != 0 {
		t.Errorf("connections in use after failed call = %d; want 0", inUse)
	}
	if _, err := repo.GetPrecipitation(context.Background()); err != nil {
		t.Fatalf("GetPrecipitation after failure: %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	repo, _ := newRepo(t, testdb.Scenario)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.GetTemperatureStatsFrom(ctx, "2017-08-01"); err == nil {
		t.Fatal("GetTemperatureStatsFrom with canceled context error = nil; want error")
	}
}
