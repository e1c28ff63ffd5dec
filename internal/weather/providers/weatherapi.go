package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/sony/gobreaker"
)

// weatherAPIWindow is the number of hourly points folded into one forecast sample.
const weatherAPIWindow = 3

// WeatherAPIProvider implements weather.Provider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	days    int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

var _ weather.Provider = (*WeatherAPIProvider)(nil)

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		days:    5,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("weatherapi"),
		now:     time.Now,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type wapiCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

type wapiLocation struct {
	Name           string `json:"name"`
	Country        string `json:"country"`
	TzID           string `json:"tz_id"`
	LocaltimeEpoch int64  `json:"localtime_epoch"`
}

func (p *WeatherAPIProvider) endpoint(path string, loc weather.Location, extra url.Values) string {
	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "city,country" or "lat,lon".
	if loc.Lat != nil && loc.Lon != nil {
		values.Set("q", fmt.Sprintf("%f,%f", *loc.Lat, *loc.Lon))
	} else {
		q := loc.City
		if loc.Country != "" {
			q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
		}
		values.Set("q", q)
	}
	for k, v := range extra {
		values[k] = v
	}

	return fmt.Sprintf("%s/%s?%s", p.baseURL, path, values.Encode())
}

func (p *WeatherAPIProvider) FetchCurrent(ctx context.Context, loc weather.Location) (weather.CurrentConditions, error) {
	if p.apiKey == "" {
		return weather.CurrentConditions{}, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}

	var payload struct {
		Location wapiLocation `json:"location"`
		Current  struct {
			LastUpdatedEpoch int64         `json:"last_updated_epoch"`
			TempC            float64       `json:"temp_c"`
			FeelsLikeC       float64       `json:"feelslike_c"`
			Humidity         float64       `json:"humidity"`
			WindKph          float64       `json:"wind_kph"`
			PressureMb       float64       `json:"pressure_mb"`
			PrecipMm         float64       `json:"precip_mm"`
			VisKm            float64       `json:"vis_km"`
			Condition        wapiCondition `json:"condition"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.endpoint("current.json", loc, nil), &payload); err != nil {
		return weather.CurrentConditions{}, err
	}

	ts := payload.Current.LastUpdatedEpoch
	if ts == 0 {
		ts = payload.Location.LocaltimeEpoch
	}

	sample := weather.Sample{
		Timestamp:    ts,
		TemperatureC: payload.Current.TempC,
		FeelsLikeC:   payload.Current.FeelsLikeC,
		HumidityPct:  payload.Current.Humidity,
		WindSpeedMS:  kphToMS(payload.Current.WindKph),
		PrecipMM:     ptr(payload.Current.PrecipMm),
		Icon:         strconv.Itoa(payload.Current.Condition.Code),
		Description:  payload.Current.Condition.Text,
	}

	return weather.CurrentConditions{
		Sample:         sample,
		City:           payload.Location.Name,
		Country:        payload.Location.Country,
		TempMinC:       payload.Current.TempC,
		TempMaxC:       payload.Current.TempC,
		PressureHpa:    payload.Current.PressureMb,
		VisibilityM:    int(payload.Current.VisKm * 1000),
		TimezoneOffset: p.offset(payload.Location.TzID),
		Category:       weather.Classify(payload.Current.Condition.Text),
	}, nil
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, loc weather.Location) (weather.Forecast, error) {
	if p.apiKey == "" {
		return weather.Forecast{}, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}

	var payload struct {
		Location wapiLocation `json:"location"`
		Forecast struct {
			ForecastDay []struct {
				Hour []struct {
					TimeEpoch  int64         `json:"time_epoch"`
					TempC      float64       `json:"temp_c"`
					FeelsLikeC float64       `json:"feelslike_c"`
					Humidity   float64       `json:"humidity"`
					WindKph    float64       `json:"wind_kph"`
					PrecipMm   float64       `json:"precip_mm"`
					Condition  wapiCondition `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	extra := url.Values{}
	extra.Set("days", strconv.Itoa(p.days))
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.endpoint("forecast.json", loc, extra), &payload); err != nil {
		return weather.Forecast{}, err
	}

	forecast := weather.Forecast{
		City:           payload.Location.Name,
		Country:        payload.Location.Country,
		TimezoneOffset: p.offset(payload.Location.TzID),
	}

	// Fold upcoming hourly points into 3-hour samples; precipitation is summed per window.
	cutoff := p.now().Add(-time.Hour).Unix()
	var window int
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			if h.TimeEpoch < cutoff {
				continue
			}
			if window%weatherAPIWindow == 0 {
				forecast.Samples = append(forecast.Samples, weather.Sample{
					Timestamp:    h.TimeEpoch,
					TemperatureC: h.TempC,
					FeelsLikeC:   h.FeelsLikeC,
					HumidityPct:  h.Humidity,
					WindSpeedMS:  kphToMS(h.WindKph),
					PrecipMM:     ptr(h.PrecipMm),
					Icon:         strconv.Itoa(h.Condition.Code),
					Description:  h.Condition.Text,
				})
			} else {
				last := &forecast.Samples[len(forecast.Samples)-1]
				*last.PrecipMM += h.PrecipMm
			}
			window++
		}
	}

	return forecast, nil
}

// offset resolves an IANA zone name to its current UTC offset in seconds.
func (p *WeatherAPIProvider) offset(tzID string) int {
	if tzID == "" {
		return 0
	}
	zone, err := time.LoadLocation(tzID)
	if err != nil {
		return 0
	}
	_, off := p.now().In(zone).Zone()
	return off
}

// Convert wind from kph to m/s.
func kphToMS(kph float64) float64 {
	return kph / 3.6
}
