package climate

import (
	"database/sql"
	"net/http"

	"hawaii-climate/internal/db"
	"hawaii-climate/internal/modules/climate/controller"
	"hawaii-climate/internal/modules/climate/repository"
)

func RegisterFeature(mux *http.ServeMux, pool *sql.DB, dialect db.Dialect, tobsStation string) {
	climateRepository := repository.NewRepository(pool, dialect)
	climateController := controller.NewClimateController(climateRepository, tobsStation)
	climateController.RegisterRoutes(mux)
}
