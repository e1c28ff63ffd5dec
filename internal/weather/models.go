package weather

import (
	"slices"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/common"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Classify maps free-form condition text ("Rain", "light snow", "Overcast") to a Condition.
func Classify(text string) Condition {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return ConditionUnknown
	case common.HasAny(t, "thunder", "storm"):
		return ConditionStorm
	case common.HasAny(t, "snow", "sleet", "blizzard"):
		return ConditionSnow
	case common.HasAny(t, "rain", "drizzle", "shower"):
		return ConditionRain
	case common.HasAny(t, "mist", "fog", "haze", "smoke"):
		return ConditionMist
	case common.HasAny(t, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAny(t, "clear", "sunny"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}

// Location represents a logical place for which we build reports.
// City/Country must be provided; Lat/Lon are optional hints for providers
// that work on coordinates.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return strings.ToLower(l.City) + ":" + strings.ToLower(l.Country)
}

// Sample is a single observation or forecast point.
type Sample struct {
	Timestamp    int64    `json:"dt"` // epoch seconds
	TemperatureC float64  `json:"temp"`
	FeelsLikeC   float64  `json:"feelsLike"`
	HumidityPct  float64  `json:"humidity"`
	WindSpeedMS  float64  `json:"wind"`
	PrecipMM     *float64 `json:"rain,omitempty"` // nil when the provider reported none
	Icon         string   `json:"icon"`
	Condition    string   `json:"condition"`
	Description  string   `json:"description"`
}

// Time returns the sample timestamp in UTC.
func (s Sample) Time() time.Time {
	return time.Unix(s.Timestamp, 0).UTC()
}

// Precip returns the precipitation volume, treating an absent value as 0.
func (s Sample) Precip() float64 {
	if s.PrecipMM == nil {
		return 0
	}
	return *s.PrecipMM
}

// ConditionText is the lowercase condition group, or the description when no
// group was reported.
func (s Sample) ConditionText() string {
	if s.Condition != "" {
		return strings.ToLower(s.Condition)
	}
	return strings.ToLower(s.Description)
}

// CurrentConditions is the "right now" snapshot for a location.
type CurrentConditions struct {
	Sample

	City           string    `json:"city"`
	Country        string    `json:"country"`
	TempMinC       float64   `json:"tempMin"`
	TempMaxC       float64   `json:"tempMax"`
	PressureHpa    float64   `json:"pressureHpa"`
	VisibilityM    int       `json:"visibility"`
	Sunrise        int64     `json:"sunrise,omitempty"`
	Sunset         int64     `json:"sunset,omitempty"`
	TimezoneOffset int       `json:"timezoneOffset"` // seconds east of UTC
	Category       Condition `json:"category"`
}

// Forecast is an ordered run of samples for one location as reported by a provider.
type Forecast struct {
	City           string   `json:"city"`
	Country        string   `json:"country"`
	TimezoneOffset int      `json:"timezoneOffset"` // seconds east of UTC
	Samples        []Sample `json:"samples"`
}

// Zone returns the reporting timezone used to split samples into calendar days.
func (f Forecast) Zone() *time.Location {
	if f.TimezoneOffset == 0 {
		return time.UTC
	}
	return time.FixedZone("", f.TimezoneOffset)
}

// DaySummary is the reduction of all samples sharing a calendar date.
type DaySummary struct {
	Day         string  `json:"day"`     // "Mon"
	Date        string  `json:"date"`    // "Jan 2"
	ISODate     string  `json:"isoDate"` // "2006-01-02"
	Temp        int     `json:"temp"`
	High        int     `json:"high"`
	Low         int     `json:"low"`
	Humidity    int     `json:"humidity"`
	Wind        float64 `json:"wind"`
	Rain        float64 `json:"rain"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
	Samples     int     `json:"samples"`
}

// Direction is the binary trend classification.
type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
)

// Priority tiers for recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Recommendation is one advisory produced by the recommendation rules.
type Recommendation struct {
	Kind     string   `json:"kind"`
	Icon     string   `json:"icon"`
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
}

// TrendSummary holds cross-day statistics derived from a DaySummary run.
type TrendSummary struct {
	AvgTemp         int              `json:"avgTemp"`
	AvgHumidity     int              `json:"avgHumidity"`
	AvgWind         float64          `json:"avgWind"`
	TempTrend       Direction        `json:"tempTrend"`
	HumidityTrend   Direction        `json:"humidityTrend"`
	Recommendations []Recommendation `json:"recommendation"`
	ChartData       []DaySummary     `json:"chartData"`
}

// HourlyEntry is one row of the next-24-hours strip.
type HourlyEntry struct {
	Time        string  `json:"time"`
	Timestamp   int64   `json:"dt"`
	Temp        int     `json:"temp"`
	FeelsLike   int     `json:"feelsLike"`
	Icon        string  `json:"icon"`
	Humidity    float64 `json:"humidity"`
	Wind        float64 `json:"wind"`
	Rain        float64 `json:"rain"`
	Description string  `json:"description"`
}

// Report is everything the dashboard renders for one lookup.
type Report struct {
	ID          string            `json:"id"`
	Provider    string            `json:"provider"`
	Location    Location          `json:"location"`
	Current     CurrentConditions `json:"current"`
	Hourly      []HourlyEntry     `json:"hourly"`
	Daily       []DaySummary      `json:"daily"`
	Trend       *TrendSummary     `json:"trend,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt"` // always UTC
}

// Clone returns a deep copy of r that shares no slices or pointers with it.
func (r Report) Clone() Report {
	c := r
	c.Location.Lat = clonePtr(r.Location.Lat)
	c.Location.Lon = clonePtr(r.Location.Lon)
	c.Current.PrecipMM = clonePtr(r.Current.PrecipMM)
	c.Hourly = slices.Clone(r.Hourly)
	c.Daily = slices.Clone(r.Daily)
	if r.Trend != nil {
		t := *r.Trend
		t.Recommendations = slices.Clone(r.Trend.Recommendations)
		t.ChartData = slices.Clone(r.Trend.ChartData)
		c.Trend = &t
	}
	return c
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// SearchEntry is one remembered lookup.
type SearchEntry struct {
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Timestamp time.Time `json:"timestamp"`
}
