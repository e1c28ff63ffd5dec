package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

// openMeteoResponseTTL is how long one upstream response serves both
// current and forecast lookups for a location.
const openMeteoResponseTTL = time.Minute

// GeocodeFunc resolves a city/country pair to coordinates.
type GeocodeFunc func(loc weather.Location) (lat, lon float64, err error)

// OpenMeteoProvider implements weather.Provider for Open-Meteo. Open-Meteo
// only works on coordinates, so locations without Lat/Lon are geocoded first.
// One response carries both current and hourly data, so it is fetched once
// and shared by FetchCurrent and FetchForecast.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	days    int
	geocode GeocodeFunc
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	coords    map[string][2]float64
	responses map[string]cachedMeteo
}

type cachedMeteo struct {
	payload   openMeteoResponse
	fetchedAt time.Time
}

var _ weather.Provider = (*OpenMeteoProvider)(nil)

// NewOpenMeteoProvider uses Google geocoding (kelvins/geocoder) with geocoderKey
// to resolve city names.
func NewOpenMeteoProvider(client *http.Client, geocoderKey string) *OpenMeteoProvider {
	geocoder.ApiKey = geocoderKey

	return &OpenMeteoProvider{
		name:      "openmeteo",
		baseURL:   "https://api.open-meteo.com/v1/forecast",
		days:      5,
		geocode:   googleGeocode,
		httpCfg:   defaultHTTPConfig(client),
		circuit:   newBreaker("openmeteo"),
		now:       time.Now,
		coords:    make(map[string][2]float64),
		responses: make(map[string]cachedMeteo),
	}
}

func googleGeocode(loc weather.Location) (float64, float64, error) {
	if geocoder.ApiKey == "" {
		return 0, 0, fmt.Errorf("geocoder: %w", errMissingAPIKey)
	}
	res, err := geocoder.Geocoding(geocoder.Address{
		City:    loc.City,
		Country: loc.Country,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %s: %w", loc.Key(), err)
	}
	return res.Latitude, res.Longitude, nil
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

const openMeteoFields = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m"

func (p *OpenMeteoProvider) endpoint(loc weather.Location) (string, error) {
	lat, lon, err := p.coordinates(loc)
	if err != nil {
		return "", err
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	values.Set("current", openMeteoFields+",pressure_msl")
	values.Set("hourly", openMeteoFields)
	values.Set("wind_speed_unit", "ms")
	values.Set("timeformat", "unixtime")
	values.Set("timezone", "auto")
	values.Set("forecast_days", strconv.Itoa(p.days))

	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil
}

// coordinates returns explicit coordinates or geocodes the city once per location.
func (p *OpenMeteoProvider) coordinates(loc weather.Location) (float64, float64, error) {
	if loc.Lat != nil && loc.Lon != nil {
		return *loc.Lat, *loc.Lon, nil
	}
	if p.geocode == nil {
		return 0, 0, fmt.Errorf("openmeteo requires latitude and longitude")
	}

	key := loc.Key()
	p.mu.Lock()
	c, ok := p.coords[key]
	p.mu.Unlock()
	if ok {
		return c[0], c[1], nil
	}

	lat, lon, err := p.geocode(loc)
	if err != nil {
		return 0, 0, err
	}
	p.mu.Lock()
	p.coords[key] = [2]float64{lat, lon}
	p.mu.Unlock()
	return lat, lon, nil
}

func responseKey(loc weather.Location) string {
	if loc.Lat != nil && loc.Lon != nil {
		return fmt.Sprintf("%.4f,%.4f", *loc.Lat, *loc.Lon)
	}
	return loc.Key()
}

func (p *OpenMeteoProvider) cached(key string) (openMeteoResponse, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.responses[key]
	if !ok || p.now().Sub(c.fetchedAt) >= openMeteoResponseTTL {
		return openMeteoResponse{}, false
	}
	return c.payload, true
}

type openMeteoResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          struct {
		Time        int64   `json:"time"`
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		Apparent    float64 `json:"apparent_temperature"`
		Precip      float64 `json:"precipitation"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		Pressure    float64 `json:"pressure_msl"`
	} `json:"current"`
	Hourly struct {
		Time        []int64   `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		Humidity    []float64 `json:"relative_humidity_2m"`
		Apparent    []float64 `json:"apparent_temperature"`
		Precip      []float64 `json:"precipitation"`
		WeatherCode []int     `json:"weather_code"`
		WindSpeed   []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

func (p *OpenMeteoProvider) fetch(ctx context.Context, loc weather.Location) (openMeteoResponse, error) {
	key := responseKey(loc)
	if payload, ok := p.cached(key); ok {
		return payload, nil
	}

	// Concurrent current/forecast lookups share one geocode and one request.
	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		if payload, ok := p.cached(key); ok {
			return payload, nil
		}

		u, err := p.endpoint(loc)
		if err != nil {
			return nil, err
		}
		var payload openMeteoResponse
		if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.responses[key] = cachedMeteo{payload: payload, fetchedAt: p.now()}
		p.mu.Unlock()
		return payload, nil
	})
	if err != nil {
		return openMeteoResponse{}, err
	}
	return v.(openMeteoResponse), nil
}

func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, loc weather.Location) (weather.CurrentConditions, error) {
	payload, err := p.fetch(ctx, loc)
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	c := payload.Current
	ts := c.Time
	if ts == 0 {
		ts = time.Now().Unix()
	}
	desc := describeWMO(c.WeatherCode)

	return weather.CurrentConditions{
		Sample: weather.Sample{
			Timestamp:    ts,
			TemperatureC: c.Temperature,
			FeelsLikeC:   c.Apparent,
			HumidityPct:  c.Humidity,
			WindSpeedMS:  c.WindSpeed,
			PrecipMM:     ptr(c.Precip),
			Icon:         strconv.Itoa(c.WeatherCode),
			Description:  desc,
		},
		City:           loc.City,
		Country:        loc.Country,
		TempMinC:       c.Temperature,
		TempMaxC:       c.Temperature,
		PressureHpa:    c.Pressure,
		TimezoneOffset: payload.UTCOffsetSeconds,
		Category:       mapOpenMeteoCondition(c.WeatherCode),
	}, nil
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, loc weather.Location) (weather.Forecast, error) {
	payload, err := p.fetch(ctx, loc)
	if err != nil {
		return weather.Forecast{}, err
	}

	h := payload.Hourly
	n := len(h.Time)
	for _, l := range []int{len(h.Temperature), len(h.Humidity), len(h.Apparent), len(h.Precip), len(h.WeatherCode), len(h.WindSpeed)} {
		if l < n {
			n = l
		}
	}

	forecast := weather.Forecast{
		City:           loc.City,
		Country:        loc.Country,
		TimezoneOffset: payload.UTCOffsetSeconds,
	}

	// Hourly series are folded into 3-hour samples starting at the current hour.
	start := 0
	for start < n && payload.Current.Time > 0 && h.Time[start]+3600 <= payload.Current.Time {
		start++
	}
	for i := start; i < n; i += 3 {
		precip := 0.0
		for j := i; j < i+3 && j < n; j++ {
			precip += h.Precip[j]
		}
		forecast.Samples = append(forecast.Samples, weather.Sample{
			Timestamp:    h.Time[i],
			TemperatureC: h.Temperature[i],
			FeelsLikeC:   h.Apparent[i],
			HumidityPct:  h.Humidity[i],
			WindSpeedMS:  h.WindSpeed[i],
			PrecipMM:     ptr(precip),
			Icon:         strconv.Itoa(h.WeatherCode[i]),
			Description:  describeWMO(h.WeatherCode[i]),
		})
	}

	return forecast, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on Open-Meteo weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

var wmoDescriptions = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	56: "light freezing drizzle",
	57: "dense freezing drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	66: "light freezing rain",
	67: "heavy freezing rain",
	71: "slight snow fall",
	73: "moderate snow fall",
	75: "heavy snow fall",
	77: "snow grains",
	80: "slight rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	85: "slight snow showers",
	86: "heavy snow showers",
	95: "thunderstorm",
	96: "thunderstorm with slight hail",
	99: "thunderstorm with heavy hail",
}

func describeWMO(code int) string {
	if d, ok := wmoDescriptions[code]; ok {
		return d
	}
	return fmt.Sprintf("weather code %d", code)
}
