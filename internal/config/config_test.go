package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEATHER_PROVIDERS", "")
	t.Setenv("FETCH_INTERVAL", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("WEATHER_LOCATION_CITY", "")
	t.Setenv("WEATHER_LOCATION_COUNTRY", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0] != "openweather" {
		t.Fatalf("unexpected providers %v", cfg.Providers)
	}
	if cfg.FetchInterval != 15*time.Minute || cfg.StoreDriver != StoreMemory || cfg.Port != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Locations) != 0 {
		t.Fatalf("expected no tracked locations, got %v", cfg.Locations)
	}
}

func TestLoadTrackedLocations(t *testing.T) {
	t.Setenv("WEATHER_PROVIDERS", "OpenMeteo, weatherapi")
	t.Setenv("WEATHER_LOCATION_CITY", "Paris, Berlin")
	t.Setenv("WEATHER_LOCATION_COUNTRY", "FR,DE")
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0] != "openmeteo" {
		t.Fatalf("unexpected providers %v", cfg.Providers)
	}
	if len(cfg.Locations) != 2 || cfg.Locations[1].City != "Berlin" || cfg.Locations[1].Country != "DE" {
		t.Fatalf("unexpected locations %+v", cfg.Locations)
	}
	if cfg.StoreDriver != StoreSQLite {
		t.Fatalf("unexpected store driver %q", cfg.StoreDriver)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"WEATHER_PROVIDERS": "darksky"}},
		{"unknown store", map[string]string{"STORE_DRIVER": "redis"}},
		{"bad duration", map[string]string{"REPORT_TTL": "soon"}},
		{"bad rps", map[string]string{"PROVIDER_RPS": "fast"}},
		{"zero rps", map[string]string{"PROVIDER_RPS": "0"}},
		{"negative burst", map[string]string{"PROVIDER_BURST": "-1"}},
		{"bad history limit", map[string]string{"SEARCH_HISTORY_LIMIT": "five"}},
		{"bad max history", map[string]string{"STORE_MAX_HISTORY": "lots"}},
		{"city country mismatch", map[string]string{"WEATHER_LOCATION_CITY": "Paris,Berlin", "WEATHER_LOCATION_COUNTRY": "FR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
