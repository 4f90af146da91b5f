package types

// Nullable numbers are pointers so a NULL in the store reaches the client as
// JSON null rather than 0.

type Precipitation struct {
	Date string   `json:"date"`
	Prcp *float64 `json:"prcp"`
}

type TemperatureObservation struct {
	Date string   `json:"date"`
	Tobs *float64 `json:"tobs"`
}

// TemperatureStats is the min/avg/max of tobs over a date window. All three
// are nil when no row matched.
type TemperatureStats struct {
	Min *float64 `json:"TMIN"`
	Avg *float64 `json:"TAVG"`
	Max *float64 `json:"TMAX"`
}
