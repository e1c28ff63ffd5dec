package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoProviders is returned when the service has nothing to fetch from.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrInvalidLocation is returned for a location without a city.
	ErrInvalidLocation = errors.New("location city is required")
	// ErrLocationNotFound is returned by providers that do not know the location.
	ErrLocationNotFound = errors.New("city not found")
)

// DefaultSearchLimit is how many distinct searches are remembered.
const DefaultSearchLimit = 5

// Service orchestrates providers, report assembly and the store.
type Service struct {
	store     Store
	providers []Provider
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a new Service. Providers are tried in order; a zero ttl
// disables report reuse in Report.
func NewService(store Store, providers []Provider, ttl time.Duration) *Service {
	return &Service{
		store:     store,
		providers: providers,
		ttl:       ttl,
		now:       time.Now,
	}
}

// BuildReport fetches current conditions and the forecast concurrently,
// derives the hourly strip, daily summaries and trend, and stores the result.
// A provider attempt fails if either fetch fails; the next provider is tried.
func (s *Service) BuildReport(ctx context.Context, loc Location) (Report, error) {
	if strings.TrimSpace(loc.City) == "" {
		return Report{}, ErrInvalidLocation
	}
	if len(s.providers) == 0 {
		log.Printf("ERROR: No providers available to build a report for %s", loc.Key())
		return Report{}, ErrNoProviders
	}

	var lastErr error
	for _, p := range s.providers {
		current, forecast, err := fetchBoth(ctx, p, loc)
		if err != nil {
			log.Printf("provider %s failed for %s: %v", p.Name(), loc.Key(), err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		report := s.assemble(p.Name(), loc, current, forecast)
		if err := s.store.SaveReport(loc, report); err != nil {
			return Report{}, fmt.Errorf("save report: %w", err)
		}
		return report, nil
	}

	return Report{}, fmt.Errorf("all providers failed for %s: %w", loc.Key(), lastErr)
}

// fetchBoth runs both upstream calls and waits for them. The first failure
// cancels the other call and is the error returned.
func fetchBoth(ctx context.Context, p Provider, loc Location) (CurrentConditions, Forecast, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		current  CurrentConditions
		forecast Forecast
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if current, err = p.FetchCurrent(ctx, loc); err != nil {
			fail(fmt.Errorf("current conditions: %w", err))
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if forecast, err = p.FetchForecast(ctx, loc); err != nil {
			fail(fmt.Errorf("forecast: %w", err))
		}
	}()
	wg.Wait()

	if firstErr != nil {
		return CurrentConditions{}, Forecast{}, firstErr
	}
	return current, forecast, nil
}

func (s *Service) assemble(provider string, loc Location, current CurrentConditions, forecast Forecast) Report {
	zone := forecast.Zone()

	if current.Category == "" {
		current.Category = Classify(current.ConditionText())
	}

	report := Report{
		ID:          uuid.NewString(),
		Provider:    provider,
		Location:    loc,
		Current:     current,
		Hourly:      HourlyForecast(forecast.Samples, zone),
		Daily:       AggregateDaily(forecast.Samples, zone),
		GeneratedAt: s.now().UTC(),
	}

	// No trend without at least one day.
	if len(report.Daily) > 0 {
		trend, err := AnalyzeTrend(report.Daily, current.Sample)
		if err == nil {
			report.Trend = &trend
		}
	}

	return report
}

// Report returns the stored report for loc when it is younger than the
// service TTL, otherwise it builds a fresh one.
func (s *Service) Report(ctx context.Context, loc Location) (Report, error) {
	if s.ttl > 0 {
		if latest, err := s.store.GetLatest(loc); err == nil && s.now().Sub(latest.GeneratedAt) < s.ttl {
			return latest, nil
		}
	}
	return s.BuildReport(ctx, loc)
}

// Search builds a fresh report and remembers the lookup under the names the
// provider resolved.
func (s *Service) Search(ctx context.Context, loc Location) (Report, error) {
	report, err := s.BuildReport(ctx, loc)
	if err != nil {
		return Report{}, err
	}

	entry := SearchEntry{
		City:      firstNonEmpty(report.Current.City, loc.City),
		Country:   firstNonEmpty(report.Current.Country, loc.Country),
		Timestamp: report.GeneratedAt,
	}
	if err := s.store.AddSearch(entry); err != nil {
		log.Printf("ERROR: failed to record search for %s: %v", loc.Key(), err)
	}
	return report, nil
}

// Refresh rebuilds the report for a tracked location.
func (s *Service) Refresh(ctx context.Context, loc Location) error {
	_, err := s.BuildReport(ctx, loc)
	return err
}

// Latest delegates to the underlying store.
func (s *Service) Latest(loc Location) (Report, error) {
	return s.store.GetLatest(loc)
}

// Range delegates to the underlying store.
func (s *Service) Range(loc Location, from, to time.Time) ([]Report, error) {
	return s.store.GetRange(loc, from, to)
}

// SearchHistory delegates to the underlying store.
func (s *Service) SearchHistory() ([]SearchEntry, error) {
	return s.store.Searches()
}

// ClearSearchHistory delegates to the underlying store.
func (s *Service) ClearSearchHistory() error {
	return s.store.ClearSearches()
}

// PushSearch puts entry at the front of list, dropping any older entry for the
// same city and country, and keeps at most limit entries.
func PushSearch(list []SearchEntry, entry SearchEntry, limit int) []SearchEntry {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	out := make([]SearchEntry, 0, limit)
	out = append(out, entry)
	for _, e := range list {
		if len(out) >= limit {
			break
		}
		if e.City == entry.City && e.Country == entry.Country {
			continue
		}
		out = append(out, e)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
