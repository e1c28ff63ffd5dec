package weather

import (
	"context"
	"time"
)

// Provider abstracts an upstream weather API (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, loc Location) (CurrentConditions, error)
	FetchForecast(ctx context.Context, loc Location) (Forecast, error)
}

// Store is the contract the in-memory and SQLite stores must satisfy.
type Store interface {
	SaveReport(loc Location, report Report) error
	GetLatest(loc Location) (Report, error)
	GetRange(loc Location, from, to time.Time) ([]Report, error)

	AddSearch(entry SearchEntry) error
	Searches() ([]SearchEntry, error)
	ClearSearches() error
}
