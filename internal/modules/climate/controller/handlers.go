package controller

import (
	"bytes"
	"log/slog"
	"net/http"

	"hawaii-climate/internal/modules/climate/views"
	"hawaii-climate/internal/utils"
)

var indexRoutes = []views.Route{
	{Path: apiPrefix + "/precipitation"},
	{Path: apiPrefix + "/stations"},
	{Path: apiPrefix + "/tobs"},
	{Path: apiPrefix + "/[start_date format:yyyy-mm-dd]"},
	{Path: apiPrefix + "/[start_date format:yyyy-mm-dd]/[end_date format:yyyy-mm-dd]"},
}

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := &views.IndexData{
		Title:  "Welcome to the Hawaii Climate API!",
		Routes: indexRoutes,
	}
	var buf bytes.Buffer
	if err := views.RenderIndex(&buf, data); err != nil {
		slog.Error("index template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	precipitation, err := c.repository.GetPrecipitation(r.Context())
	if err != nil {
		slog.Error("precipitation: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load precipitation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, precipitation)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		slog.Error("stations: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	observations, err := c.repository.GetLastYearTemperatures(r.Context(), c.tobsStation)
	if err != nil {
		slog.Error("tobs: query failed", "station", c.tobsStation, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature observations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, observations)
}

// Dates are passed to the store as given. A malformed date matches no rows
// and yields null aggregates, not a 400.
func (c *climateControllerImpl) handleStatsFrom(w http.ResponseWriter, r *http.Request) {
	start := r.PathValue("start_date")
	stats, err := c.repository.GetTemperatureStatsFrom(r.Context(), start)
	if err != nil {
		slog.Error("stats: query failed", "start_date", start, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature stats")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (c *climateControllerImpl) handleStatsRange(w http.ResponseWriter, r *http.Request) {
	start := r.PathValue("start_date")
	end := r.PathValue("end_date")
	stats, err := c.repository.GetTemperatureStatsRange(r.Context(), start, end)
	if err != nil {
		slog.Error("stats: range query failed", "start_date", start, "end_date", end, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature stats")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
