package weather

import (
	"errors"
	"strings"
)

// MaxRecommendations caps the advisories attached to a TrendSummary.
const MaxRecommendations = 3

// ErrNoDays is returned by AnalyzeTrend when there is nothing to analyze.
var ErrNoDays = errors.New("no daily summaries to analyze")

// Recommendation thresholds.
const (
	hotTempC    = 30.0
	coldTempC   = 10.0
	windyMS     = 15.0
	humidPct    = 80.0
	heavyRainMM = 5.0
	rainKeyword = "rain"
	snowKeyword = "snow"
)

// AnalyzeTrend derives cross-day means, trend directions and recommendations.
// Equal first/last values classify as Falling.
func AnalyzeTrend(days []DaySummary, current Sample) (TrendSummary, error) {
	if len(days) == 0 {
		return TrendSummary{}, ErrNoDays
	}

	var sumTemp, sumHumidity, sumWind float64
	for _, d := range days {
		sumTemp += float64(d.Temp)
		sumHumidity += float64(d.Humidity)
		sumWind += d.Wind
	}
	n := float64(len(days))

	first, last := days[0], days[len(days)-1]

	return TrendSummary{
		AvgTemp:         roundInt(sumTemp / n),
		AvgHumidity:     roundInt(sumHumidity / n),
		AvgWind:         roundTenth(sumWind / n),
		TempTrend:       direction(float64(first.Temp), float64(last.Temp)),
		HumidityTrend:   direction(float64(first.Humidity), float64(last.Humidity)),
		Recommendations: Recommend(current, days),
		ChartData:       days,
	}, nil
}

func direction(first, last float64) Direction {
	if last > first {
		return Rising
	}
	return Falling
}

// Recommend evaluates the advisory rules in fixed order against the current
// conditions and tomorrow's summary (days[1], when present). Matches are kept
// in rule order and truncated to MaxRecommendations.
func Recommend(current Sample, days []DaySummary) []Recommendation {
	recs := make([]Recommendation, 0, MaxRecommendations)
	conditions := current.ConditionText()

	if current.TemperatureC > hotTempC {
		recs = append(recs, Recommendation{Kind: "heat", Icon: "☀️", Text: "High temperature! Stay hydrated and use sunscreen", Priority: PriorityHigh})
	} else if current.TemperatureC < coldTempC {
		recs = append(recs, Recommendation{Kind: "cold", Icon: "🧥", Text: "Low temperature! Wear warm layers", Priority: PriorityHigh})
	}

	if strings.Contains(conditions, rainKeyword) {
		recs = append(recs, Recommendation{Kind: "rain", Icon: "🌂", Text: "Rain expected! Carry an umbrella", Priority: PriorityHigh})
	}
	if strings.Contains(conditions, snowKeyword) {
		recs = append(recs, Recommendation{Kind: "snow", Icon: "🧤", Text: "Snow conditions! Wear appropriate footwear", Priority: PriorityHigh})
	}
	if current.WindSpeedMS > windyMS {
		recs = append(recs, Recommendation{Kind: "wind", Icon: "💨", Text: "Strong winds! Secure outdoor items", Priority: PriorityMedium})
	}
	if current.HumidityPct > humidPct {
		recs = append(recs, Recommendation{Kind: "humidity", Icon: "💧", Text: "High humidity! Stay in ventilated areas", Priority: PriorityMedium})
	}

	if len(days) > 1 && days[1].Rain > heavyRainMM {
		recs = append(recs, Recommendation{Kind: "rain-tomorrow", Icon: "🌧️", Text: "Heavy rain tomorrow! Plan indoor activities", Priority: PriorityMedium})
	}

	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}
