package weather

import "time"

// HourlyWindow is the number of samples shown in the hourly strip (24h at 3-hour resolution).
const HourlyWindow = 8

// HourlyForecast converts the first HourlyWindow samples into display rows.
// The first row is labelled "Now"; the rest carry an hour label in zone.
func HourlyForecast(samples []Sample, zone *time.Location) []HourlyEntry {
	if zone == nil {
		zone = time.UTC
	}
	if len(samples) > HourlyWindow {
		samples = samples[:HourlyWindow]
	}

	out := make([]HourlyEntry, 0, len(samples))
	for i, s := range samples {
		label := "Now"
		if i > 0 {
			label = time.Unix(s.Timestamp, 0).In(zone).Format("3 PM")
		}
		out = append(out, HourlyEntry{
			Time:        label,
			Timestamp:   s.Timestamp,
			Temp:        roundInt(s.TemperatureC),
			FeelsLike:   roundInt(s.FeelsLikeC),
			Icon:        s.Icon,
			Humidity:    s.HumidityPct,
			Wind:        s.WindSpeedMS,
			Rain:        s.Precip(),
			Description: s.Description,
		})
	}
	return out
}
