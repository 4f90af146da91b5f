// Package testdb builds throwaway stores shaped like the hawaii climate dataset.
// Fixture files are named with a 4-digit prefix for order: 0001_schema.sql,
// 0002_stations.sql, and are selected by the part after the prefix.
package testdb

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed sql/*.sql
var sqlFS embed.FS

const fixturesDir = "sql"

const (
	Schema   = "schema"
	Stations = "stations"
	Scenario = "scenario"
	LastYear = "last_year"
)

var fixtureFileRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

type fixture struct {
	version string
	name    string
	body    string
}

// Script returns the SQL of the named fixtures joined in version order.
// Unknown names are an error.
func Script(names ...string) (string, error) {
	all, err := fixtures()
	if err != nil {
		return "", err
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var parts []string
	for _, f := range all {
		if !want[f.name] {
			continue
		}
		parts = append(parts, f.body)
		delete(want, f.name)
	}
	for n := range want {
		return "", fmt.Errorf("unknown fixture %q", n)
	}
	return strings.Join(parts, "\n"), nil
}

// Open returns an in-memory SQLite database with the schema and the named
// fixtures applied. The pool is pinned to one connection because every
// :memory: connection is a separate database.
func Open(t testing.TB, names ...string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	script, err := Script(append([]string{Schema}, names...)...)
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	if _, err := db.Exec(script); err != nil {
		t.Fatalf("apply fixtures: %v", err)
	}
	return db
}

// Exec runs ad-hoc statements against db, failing the test on error.
func Exec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func fixtures() ([]fixture, error) {
	entries, err := fs.ReadDir(sqlFS, fixturesDir)
	if err != nil {
		return nil, fmt.Errorf("read fixtures dir: %w", err)
	}

	var out []fixture
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fixtureFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		body, err := fs.ReadFile(sqlFS, fixturesDir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", e.Name(), err)
		}
		out = append(out, fixture{version: m[1], name: m[2], body: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
