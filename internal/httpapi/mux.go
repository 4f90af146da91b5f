package httpapi

import (
	"database/sql"
	"net/http"

	"hawaii-climate/internal/utils"
)

func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	return mux
}

func writeInternalError(w http.ResponseWriter) {
	utils.WriteError(w, http.StatusInternalServerError, "internal server error")
}
