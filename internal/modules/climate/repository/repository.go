package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"hawaii-climate/internal/db"
	"hawaii-climate/internal/modules/climate/types"
)

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-latest-date.sql
var getLatestDateSQL string

//go:embed sql/get-temperatures-since.sql
var getTemperaturesSinceSQL string

//go:embed sql/get-temperature-stats-from.sql
var getTemperatureStatsFromSQL string

//go:embed sql/get-temperature-stats-range.sql
var getTemperatureStatsRangeSQL string

// lastYearSpan is a flat 365 days; leap days are not accounted for.
const lastYearSpan = 365 * 24 * time.Hour

type ClimateRepository interface {
	GetPrecipitation(ctx context.Context) ([]types.Precipitation, error)
	GetStations(ctx context.Context) ([]string, error)
	GetLastYearTemperatures(ctx context.Context, station string) ([]types.TemperatureObservation, error)
	GetTemperatureStatsFrom(ctx context.Context, start string) ([]types.TemperatureStats, error)
	GetTemperatureStatsRange(ctx context.Context, start string, end string) ([]types.TemperatureStats, error)
}

type repositoryImpl struct {
	pool    *sql.DB
	dialect db.Dialect
}

func NewRepository(pool *sql.DB, dialect db.Dialect) ClimateRepository {
	return &repositoryImpl{pool: pool, dialect: dialect}
}

// withSession reserves one pooled connection for fn and returns it to the pool
// on every exit path.
func (r *repositoryImpl) withSession(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := r.pool.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Error("release session", "error", err)
		}
	}()
	return fn(conn)
}

func (r *repositoryImpl) GetPrecipitation(ctx context.Context) ([]types.Precipitation, error) {
	out := make([]types.Precipitation, 0)
	err := r.withSession(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, r.dialect.Rebind(getPrecipitationSQL))
		if err != nil {
			return err
		}
		defer func() {
			if err := rows.Close(); err != nil {
				slog.Error("close precipitation rows", "error", err)
			}
		}()
		for rows.Next() {
			var (
				rec  types.Precipitation
				prcp sql.NullFloat64
			)
			if err := rows.Scan(&rec.Date, &prcp); err != nil {
				return err
			}
			rec.Prcp = nullableFloat(prcp)
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get precipitation: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]string, error) {
	out := make([]string, 0)
	err := r.withSession(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, r.dialect.Rebind(getStationsSQL))
		if err != nil {
			return err
		}
		defer func() {
			if err := rows.Close(); err != nil {
				slog.Error("close stations rows", "error", err)
			}
		}()
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get stations: %w", err)
	}
	return out, nil
}

// GetLastYearTemperatures returns station's observations from the 365 days
// ending at the newest date in the whole measurement table.
func (r *repositoryImpl) GetLastYearTemperatures(ctx context.Context, station string) ([]types.TemperatureObservation, error) {
	out := make([]types.TemperatureObservation, 0)
	err := r.withSession(ctx, func(conn *sql.Conn) error {
		var latest sql.NullString
		if err := conn.QueryRowContext(ctx, r.dialect.Rebind(getLatestDateSQL)).Scan(&latest); err != nil {
			return err
		}
		if !latest.Valid {
			return nil
		}
		cutoff, err := lastYearCutoff(latest.String)
		if err != nil {
			return err
		}

		rows, err := conn.QueryContext(ctx, r.dialect.Rebind(getTemperaturesSinceSQL), station, cutoff)
		if err != nil {
			return err
		}
		defer func() {
			if err := rows.Close(); err != nil {
				slog.Error("close temperature rows", "error", err)
			}
		}()
		for rows.Next() {
			var (
				rec  types.TemperatureObservation
				tobs sql.NullFloat64
			)
			if err := rows.Scan(&rec.Date, &tobs); err != nil {
				return err
			}
			rec.Tobs = nullableFloat(tobs)
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get last year temperatures for %q: %w", station, err)
	}
	return out, nil
}

func (r *repositoryImpl) GetTemperatureStatsFrom(ctx context.Context, start string) ([]types.TemperatureStats, error) {
	stats, err := r.temperatureStats(ctx, getTemperatureStatsFromSQL, start)
	if err != nil {
		return nil, fmt.Errorf("get temperature stats from %q: %w", start, err)
	}
	return stats, nil
}

func (r *repositoryImpl) GetTemperatureStatsRange(ctx context.Context, start string, end string) ([]types.TemperatureStats, error) {
	stats, err := r.temperatureStats(ctx, getTemperatureStatsRangeSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("get temperature stats %q..%q: %w", start, end, err)
	}
	return stats, nil
}

// temperatureStats runs a MIN/AVG/MAX aggregate. Aggregates always yield one
// row, so the result always has exactly one element, with nil fields when
// nothing matched.
func (r *repositoryImpl) temperatureStats(ctx context.Context, query string, args ...any) ([]types.TemperatureStats, error) {
	var stats types.TemperatureStats
	err := r.withSession(ctx, func(conn *sql.Conn) error {
		var lo, avg, hi sql.NullFloat64
		if err := conn.QueryRowContext(ctx, r.dialect.Rebind(query), args...).Scan(&lo, &avg, &hi); err != nil {
			return err
		}
		stats = types.TemperatureStats{
			Min: nullableFloat(lo),
			Avg: nullableFloat(avg),
			Max: nullableFloat(hi),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []types.TemperatureStats{stats}, nil
}

func lastYearCutoff(latest string) (string, error) {
	t, err := time.Parse(time.DateOnly, latest)
	if err != nil {
		return "", fmt.Errorf("parse latest date %q: %w", latest, err)
	}
	return t.Add(-lastYearSpan).Format(time.DateOnly), nil
}

func nullableFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
