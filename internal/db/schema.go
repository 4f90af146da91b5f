package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	StationTable     = "station"
	MeasurementTable = "measurement"
)

var (
	ErrTableMissing  = errors.New("table missing")
	ErrColumnMissing = errors.New("column missing")
)

// Columns the climate queries rely on. Extra columns in the live tables are fine.
var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

const sqliteColumnsSQL = `SELECT name, type, "notnull" = 0 FROM pragma_table_info(?) ORDER BY cid`

const postgresColumnsSQL = `SELECT column_name::text, data_type::text, is_nullable::text = 'YES'
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name::text = ?
ORDER BY ordinal_position`

type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// TableShape is the column layout of one table as read from the live store.
type TableShape struct {
	Name    string
	Columns []Column
}

func (t TableShape) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Schema holds the reflected shapes of the two dataset tables.
type Schema struct {
	Station     TableShape
	Measurement TableShape
}

// ReflectSchema reads the station and measurement layouts from the store and
// checks that every column the queries use is present.
func ReflectSchema(ctx context.Context, db *sql.DB, dialect Dialect) (Schema, error) {
	station, err := reflectTable(ctx, db, dialect, StationTable, stationColumns)
	if err != nil {
		return Schema{}, err
	}
	measurement, err := reflectTable(ctx, db, dialect, MeasurementTable, measurementColumns)
	if err != nil {
		return Schema{}, err
	}
	return Schema{Station: station, Measurement: measurement}, nil
}

func reflectTable(ctx context.Context, db *sql.DB, dialect Dialect, table string, required []string) (TableShape, error) {
	query := sqliteColumnsSQL
	if dialect == Postgres {
		query = postgresColumnsSQL
	}

	rows, err := db.QueryContext(ctx, dialect.Rebind(query), table)
	if err != nil {
		return TableShape{}, fmt.Errorf("reflect %s: %w", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close reflect rows", "table", table, "error", err)
		}
	}()

	shape := TableShape{Name: table}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable); err != nil {
			return TableShape{}, fmt.Errorf("reflect %s: %w", table, err)
		}
		shape.Columns = append(shape.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return TableShape{}, fmt.Errorf("reflect %s: %w", table, err)
	}

	if len(shape.Columns) == 0 {
		return TableShape{}, fmt.Errorf("%w: %q", ErrTableMissing, table)
	}
	for _, name := range required {
		if _, ok := shape.Column(name); !ok {
			return TableShape{}, fmt.Errorf("%w: %s.%s", ErrColumnMissing, table, name)
		}
	}

	slog.Debug("table reflected", "table", table, "columns", len(shape.Columns))
	return shape, nil
}
