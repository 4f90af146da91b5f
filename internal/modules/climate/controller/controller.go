package controller

import (
	"net/http"

	"hawaii-climate/internal/modules/climate/repository"
)

const apiPrefix = "/api/v1.0"

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	repository  repository.ClimateRepository
	tobsStation string
}

// NewClimateController serves the dataset through repository. tobsStation is
// the station reported by the last-year temperature route.
func NewClimateController(repository repository.ClimateRepository, tobsStation string) ClimateController {
	return &climateControllerImpl{repository: repository, tobsStation: tobsStation}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET "+apiPrefix+"/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET "+apiPrefix+"/stations", c.handleStations)
	mux.HandleFunc("GET "+apiPrefix+"/tobs", c.handleTobs)
	mux.HandleFunc("GET "+apiPrefix+"/{start_date}", c.handleStatsFrom)
	mux.HandleFunc("GET "+apiPrefix+"/{start_date}/{end_date}", c.handleStatsRange)
}
