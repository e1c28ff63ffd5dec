// Package export renders a weather report as a downloadable document.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Format is an export document type.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// ErrUnknownFormat is returned for formats other than json, csv and html.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat normalizes a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/html; charset=utf-8"
	}
}

// FileName returns the download name for a report, e.g. "weather-data-Paris.csv".
func FileName(r weather.Report, f Format) string {
	city := r.Current.City
	if city == "" {
		city = r.Location.City
	}
	city = strings.Map(func(c rune) rune {
		if c == '/' || c == '\\' || c == '"' {
			return '_'
		}
		return c
	}, city)
	return fmt.Sprintf("weather-data-%s.%s", city, f)
}

// Write renders r in format f. now stamps the export time.
func Write(w io.Writer, f Format, r weather.Report, now time.Time) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, r, now)
	case FormatCSV:
		return writeCSV(w, r)
	case FormatHTML:
		return writeHTML(w, r, now)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

type jsonDocument struct {
	Current    weather.CurrentConditions `json:"current"`
	Hourly     []weather.HourlyEntry     `json:"hourly"`
	Daily      []weather.DaySummary      `json:"daily"`
	Trend      *weather.TrendSummary     `json:"trend"`
	ExportedAt time.Time                 `json:"exportedAt"`
}

func writeJSON(w io.Writer, r weather.Report, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonDocument{
		Current:    r.Current,
		Hourly:     r.Hourly,
		Daily:      r.Daily,
		Trend:      r.Trend,
		ExportedAt: now.UTC(),
	})
}

var csvHeader = []string{
	"Date", "High Temp (°C)", "Low Temp (°C)", "Condition",
	"Humidity (%)", "Wind Speed (m/s)", "Precipitation (mm)",
}

func writeCSV(w io.Writer, r weather.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range r.Daily {
		row := []string{
			d.Date,
			strconv.Itoa(d.High),
			strconv.Itoa(d.Low),
			d.Description,
			strconv.Itoa(d.Humidity),
			formatFloat(d.Wind),
			formatFloat(d.Rain),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"round": func(v float64) int { return int(math.Floor(v + 0.5)) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Weather Report - {{.City}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.header { text-align: center; margin-bottom: 30px; border-bottom: 2px solid #005288; padding-bottom: 20px; }
.section { margin-bottom: 20px; padding: 15px; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #005288; padding: 8px; text-align: left; }
@media print { .no-print { display: none; } }
</style>
</head>
<body onload="window.print()">
<div class="header">
<h1>Weather Report - {{.City}}</h1>
<p>Generated on {{.Generated}}</p>
</div>
<div class="section">
<h2>Current Weather</h2>
<p>Temperature: {{round .Current.TemperatureC}}°C</p>
<p>Condition: {{.Current.Description}}</p>
<p>Humidity: {{.Current.HumidityPct}}%</p>
<p>Wind: {{.Current.WindSpeedMS}} m/s</p>
</div>
<div class="section">
<h2>{{len .Daily}}-Day Forecast Analysis</h2>
<table>
<tr><th>Day</th><th>High/Low</th><th>Condition</th><th>Humidity</th><th>Wind</th></tr>
{{- range .Daily}}
<tr><td>{{.Day}}</td><td>{{.High}}°/{{.Low}}°</td><td>{{.Description}}</td><td>{{.Humidity}}%</td><td>{{.Wind}} m/s</td></tr>
{{- end}}
</table>
</div>
{{- with .Trend}}
<div class="section">
<h2>Recommendations</h2>
<ul>
{{- range .Recommendations}}
<li>{{.Icon}} {{.Text}} ({{.Priority}})</li>
{{- end}}
</ul>
</div>
{{- end}}
</body>
</html>
`))

func writeHTML(w io.Writer, r weather.Report, now time.Time) error {
	city := r.Current.City
	if city == "" {
		city = r.Location.City
	}
	return reportTemplate.Execute(w, struct {
		City      string
		Generated string
		Current   weather.CurrentConditions
		Daily     []weather.DaySummary
		Trend     *weather.TrendSummary
	}{
		City:      city,
		Generated: now.UTC().Format(time.RFC1123),
		Current:   r.Current,
		Daily:     r.Daily,
		Trend:     r.Trend,
	})
}
