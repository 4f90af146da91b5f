package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"hawaii-climate/internal/config"
	"hawaii-climate/internal/db"
	"hawaii-climate/internal/httpapi"
	"hawaii-climate/internal/modules/climate"
	"hawaii-climate/internal/modules/climate/views"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbDSNSet", cfg.DSN != "",
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbLogSQL", cfg.LogSQL,
		"tobsStation", cfg.TobsStation,
	)

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(pool); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	dialect, err := db.DialectFor(cfg.Driver)
	if err != nil {
		return err
	}
	schema, err := db.ReflectSchema(ctx, pool, dialect)
	if err != nil {
		return err
	}
	slog.Info("database ready",
		"dialect", dialect.String(),
		"stationColumns", len(schema.Station.Columns),
		"measurementColumns", len(schema.Measurement.Columns),
	)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	mux := httpapi.NewMux(pool)
	climate.RegisterFeature(mux, pool, dialect, cfg.TobsStation)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
