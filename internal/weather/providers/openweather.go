package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/sony/gobreaker"
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap
// (current weather + 5-day / 3-hour forecast).
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmPrecip struct {
	OneH   *float64 `json:"1h"`
	ThreeH *float64 `json:"3h"`
}

func (p *OpenWeatherProvider) endpoint(path string, loc weather.Location) string {
	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	if loc.Lat != nil && loc.Lon != nil {
		values.Set("lat", fmt.Sprintf("%f", *loc.Lat))
		values.Set("lon", fmt.Sprintf("%f", *loc.Lon))
	} else {
		// city,country
		q := loc.City
		if loc.Country != "" {
			q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
		}
		values.Set("q", q)
	}

	return fmt.Sprintf("%s/%s?%s", p.baseURL, path, values.Encode())
}

func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, loc weather.Location) (weather.CurrentConditions, error) {
	if p.apiKey == "" {
		return weather.CurrentConditions{}, fmt.Errorf("openweather: %w", errMissingAPIKey)
	}

	var payload struct {
		Dt       int64  `json:"dt"`
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
		Main     struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Pressure  float64 `json:"pressure"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Visibility int `json:"visibility"`
		Wind       struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain    *owmPrecip     `json:"rain"`
		Weather []owmCondition `json:"weather"`
		Sys     struct {
			Country string `json:"country"`
			Sunrise int64  `json:"sunrise"`
			Sunset  int64  `json:"sunset"`
		} `json:"sys"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.endpoint("weather", loc), &payload); err != nil {
		return weather.CurrentConditions{}, err
	}

	sample := weather.Sample{
		Timestamp:    payload.Dt,
		TemperatureC: payload.Main.Temp,
		FeelsLikeC:   payload.Main.FeelsLike,
		HumidityPct:  payload.Main.Humidity,
		WindSpeedMS:  payload.Wind.Speed,
	}
	if payload.Rain != nil {
		sample.PrecipMM = payload.Rain.OneH
		if sample.PrecipMM == nil {
			sample.PrecipMM = payload.Rain.ThreeH
		}
	}
	applyCondition(&sample, payload.Weather)

	return weather.CurrentConditions{
		Sample:         sample,
		City:           payload.Name,
		Country:        payload.Sys.Country,
		TempMinC:       payload.Main.TempMin,
		TempMaxC:       payload.Main.TempMax,
		PressureHpa:    payload.Main.Pressure,
		VisibilityM:    payload.Visibility,
		Sunrise:        payload.Sys.Sunrise,
		Sunset:         payload.Sys.Sunset,
		TimezoneOffset: payload.Timezone,
		Category:       mapOpenWeatherCondition(payload.Weather),
	}, nil
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, loc weather.Location) (weather.Forecast, error) {
	if p.apiKey == "" {
		return weather.Forecast{}, fmt.Errorf("openweather: %w", errMissingAPIKey)
	}

	var payload struct {
		City struct {
			Name     string `json:"name"`
			Country  string `json:"country"`
			Timezone int    `json:"timezone"`
		} `json:"city"`
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp      float64 `json:"temp"`
				FeelsLike float64 `json:"feels_like"`
				Humidity  float64 `json:"humidity"`
			} `json:"main"`
			Wind struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
			Rain    *owmPrecip     `json:"rain"`
			Weather []owmCondition `json:"weather"`
		} `json:"list"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.endpoint("forecast", loc), &payload); err != nil {
		return weather.Forecast{}, err
	}

	forecast := weather.Forecast{
		City:           payload.City.Name,
		Country:        payload.City.Country,
		TimezoneOffset: payload.City.Timezone,
		Samples:        make([]weather.Sample, 0, len(payload.List)),
	}

	for _, item := range payload.List {
		s := weather.Sample{
			Timestamp:    item.Dt,
			TemperatureC: item.Main.Temp,
			FeelsLikeC:   item.Main.FeelsLike,
			HumidityPct:  item.Main.Humidity,
			WindSpeedMS:  item.Wind.Speed,
		}
		if item.Rain != nil {
			s.PrecipMM = item.Rain.ThreeH
		}
		applyCondition(&s, item.Weather)
		forecast.Samples = append(forecast.Samples, s)
	}

	return forecast, nil
}

func applyCondition(s *weather.Sample, items []owmCondition) {
	if len(items) == 0 {
		return
	}
	s.Condition = items[0].Main
	s.Description = items[0].Description
	s.Icon = items[0].Icon
}

func mapOpenWeatherCondition(items []owmCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
