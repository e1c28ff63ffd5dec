package weather

import (
	"math"
	"time"
)

// MaxDays caps the number of calendar days kept by AggregateDaily.
const MaxDays = 7

// dayBucket collects the samples of one calendar date.
type dayBucket struct {
	date    time.Time
	samples []Sample
}

// AggregateDaily groups samples by calendar date in zone and reduces every
// group to one DaySummary. Dates keep the order in which they first appear;
// only the first MaxDays dates are returned. A nil zone means UTC.
func AggregateDaily(samples []Sample, zone *time.Location) []DaySummary {
	if zone == nil {
		zone = time.UTC
	}

	var buckets []*dayBucket
	index := make(map[string]*dayBucket)

	for _, s := range samples {
		ts := time.Unix(s.Timestamp, 0).In(zone)
		key := ts.Format("2006-01-02")

		b, ok := index[key]
		if !ok {
			b = &dayBucket{date: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, zone)}
			index[key] = b
			buckets = append(buckets, b)
		}
		b.samples = append(b.samples, s)
	}

	if len(buckets) > MaxDays {
		buckets = buckets[:MaxDays]
	}

	days := make([]DaySummary, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, summarizeDay(b))
	}
	return days
}

func summarizeDay(b *dayBucket) DaySummary {
	var (
		sumTemp     float64
		sumHumidity float64
		sumWind     float64
		sumPrecip   float64
		maxTemp     = math.Inf(-1)
		minTemp     = math.Inf(1)
	)

	icons := newModeCounter()
	descriptions := newModeCounter()

	for _, s := range b.samples {
		sumTemp += s.TemperatureC
		sumHumidity += s.HumidityPct
		sumWind += s.WindSpeedMS
		sumPrecip += s.Precip()

		maxTemp = math.Max(maxTemp, s.TemperatureC)
		minTemp = math.Min(minTemp, s.TemperatureC)

		icons.add(s.Icon)
		descriptions.add(s.Description)
	}

	n := float64(len(b.samples))

	return DaySummary{
		Day:         b.date.Format("Mon"),
		Date:        b.date.Format("Jan 2"),
		ISODate:     b.date.Format("2006-01-02"),
		Temp:        roundInt(sumTemp / n),
		High:        roundInt(maxTemp),
		Low:         roundInt(minTemp),
		Humidity:    roundInt(sumHumidity / n),
		Wind:        roundTenth(sumWind / n),
		Rain:        sumPrecip,
		Icon:        icons.leader,
		Description: descriptions.leader,
		Samples:     len(b.samples),
	}
}

// modeCounter tracks running frequencies and the current leader. The leader
// only changes on a strictly greater count, so the first value to reach the
// maximum frequency wins ties.
type modeCounter struct {
	counts      map[string]int
	leader      string
	leaderCount int
}

func newModeCounter() *modeCounter {
	return &modeCounter{counts: make(map[string]int)}
}

func (m *modeCounter) add(v string) {
	m.counts[v]++
	if c := m.counts[v]; c > m.leaderCount {
		m.leader = v
		m.leaderCount = c
	}
}

// roundInt rounds half-up to the nearest integer.
func roundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}

// roundTenth rounds half-up to one decimal place.
func roundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
