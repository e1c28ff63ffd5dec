package weather

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProvider struct {
	name        string
	current     CurrentConditions
	forecast    Forecast
	currentErr  error
	forecastErr error
	calls       atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchCurrent(ctx context.Context, loc Location) (CurrentConditions, error) {
	f.calls.Add(1)
	return f.current, f.currentErr
}

func (f *fakeProvider) FetchForecast(ctx context.Context, loc Location) (Forecast, error) {
	f.calls.Add(1)
	return f.forecast, f.forecastErr
}

// memStore is a minimal Store; the real implementations live in internal/store.
type memStore struct {
	mu       sync.Mutex
	reports  map[string][]Report
	searches []SearchEntry
}

func newMemStore() *memStore {
	return &memStore{reports: make(map[string][]Report)}
}

func (m *memStore) SaveReport(loc Location, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[loc.Key()] = append(m.reports[loc.Key()], r)
	return nil
}

func (m *memStore) GetLatest(loc Location) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := m.reports[loc.Key()]
	if len(rs) == 0 {
		return Report{}, errors.New("not found")
	}
	return rs[len(rs)-1], nil
}

func (m *memStore) GetRange(loc Location, from, to time.Time) ([]Report, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) AddSearch(e SearchEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = PushSearch(m.searches, e, DefaultSearchLimit)
	return nil
}

func (m *memStore) Searches() ([]SearchEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SearchEntry(nil), m.searches...), nil
}

func (m *memStore) ClearSearches() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = nil
	return nil
}

func sampleForecast() Forecast {
	var samples []Sample
	for day := 1; day <= 3; day++ {
		for h := 0; h < 24; h += 3 {
			samples = append(samples, Sample{
				Timestamp:    at(day, h),
				TemperatureC: float64(10 + day*5),
				HumidityPct:  60,
				WindSpeedMS:  3,
				Icon:         "01d",
				Description:  "clear sky",
			})
		}
	}
	return Forecast{City: "Paris", Country: "FR", Samples: samples}
}

func goodProvider(name string) *fakeProvider {
	return &fakeProvider{
		name: name,
		current: CurrentConditions{
			Sample:  Sample{TemperatureC: 35, Condition: "Rain", Description: "light rain", WindSpeedMS: 20, HumidityPct: 85},
			City:    "Paris",
			Country: "FR",
		},
		forecast: sampleForecast(),
	}
}

var paris = Location{City: "paris", Country: "fr"}

func TestBuildReport(t *testing.T) {
	st := newMemStore()
	p := goodProvider("primary")
	svc := NewService(st, []Provider{p}, 0)

	report, err := svc.BuildReport(context.Background(), paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.ID == "" || report.Provider != "primary" {
		t.Fatalf("unexpected report identity: %q / %q", report.ID, report.Provider)
	}
	if len(report.Daily) != 3 {
		t.Fatalf("expected 3 days, got %d", len(report.Daily))
	}
	if len(report.Hourly) != HourlyWindow {
		t.Fatalf("expected %d hourly entries, got %d", HourlyWindow, len(report.Hourly))
	}
	if report.Trend == nil {
		t.Fatal("expected a trend")
	}
	if report.Trend.TempTrend != Rising {
		t.Fatalf("expected rising temps, got %s", report.Trend.TempTrend)
	}
	if got := kinds(report.Trend.Recommendations); !equalKinds(got, []string{"heat", "rain", "wind"}) {
		t.Fatalf("unexpected recommendations: %v", got)
	}
	if report.Current.Category != ConditionRain {
		t.Fatalf("expected category rain, got %s", report.Current.Category)
	}

	stored, err := st.GetLatest(paris)
	if err != nil || stored.ID != report.ID {
		t.Fatalf("report not stored: %v", err)
	}
}

func TestBuildReportEmptyForecastSkipsTrend(t *testing.T) {
	p := goodProvider("primary")
	p.forecast = Forecast{}
	svc := NewService(newMemStore(), []Provider{p}, 0)

	report, err := svc.BuildReport(context.Background(), paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Daily) != 0 || report.Trend != nil {
		t.Fatalf("expected no days and no trend, got %d / %v", len(report.Daily), report.Trend)
	}
}

func TestBuildReportFallsBackWhenJoinFails(t *testing.T) {
	broken := goodProvider("broken")
	broken.forecastErr = errors.New("boom")
	backup := goodProvider("backup")

	st := newMemStore()
	svc := NewService(st, []Provider{broken, backup}, 0)

	report, err := svc.BuildReport(context.Background(), paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Provider != "backup" {
		t.Fatalf("expected backup provider, got %s", report.Provider)
	}
}

// stallingProvider blocks current conditions until the join cancels it.
type stallingProvider struct {
	forecastErr error
}

func (stallingProvider) Name() string { return "stalling" }

func (stallingProvider) FetchCurrent(ctx context.Context, loc Location) (CurrentConditions, error) {
	<-ctx.Done()
	return CurrentConditions{}, ctx.Err()
}

func (p stallingProvider) FetchForecast(ctx context.Context, loc Location) (Forecast, error) {
	return Forecast{}, p.forecastErr
}

func TestBuildReportKeepsFirstFailure(t *testing.T) {
	unauthorized := errors.New("request rejected: 401")
	svc := NewService(newMemStore(), []Provider{stallingProvider{forecastErr: unauthorized}}, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := svc.BuildReport(ctx, paris)
	if !errors.Is(err, unauthorized) {
		t.Fatalf("expected the forecast error, got %v", err)
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation of the sibling call must not be reported: %v", err)
	}
}

func TestBuildReportAllProvidersFail(t *testing.T) {
	p := goodProvider("only")
	p.currentErr = errors.New("city not found")

	st := newMemStore()
	svc := NewService(st, []Provider{p}, 0)

	if _, err := svc.BuildReport(context.Background(), paris); err == nil {
		t.Fatal("expected error")
	}
	if _, err := st.GetLatest(paris); err == nil {
		t.Fatal("failed build must not store a report")
	}
}

func TestBuildReportValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, 0)

	if _, err := svc.BuildReport(context.Background(), Location{}); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
	if _, err := svc.BuildReport(context.Background(), paris); !errors.Is(err, ErrNoProviders) {
		t.Fatalf("expected ErrNoProviders, got %v", err)
	}
}

func TestReportReusesFreshReport(t *testing.T) {
	p := goodProvider("primary")
	svc := NewService(newMemStore(), []Provider{p}, 10*time.Minute)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first, err := svc.Report(context.Background(), paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Report(context.Background(), paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID || p.calls.Load() != 2 {
		t.Fatalf("expected cached report, got %d upstream calls", p.calls.Load())
	}

	now = now.Add(11 * time.Minute)
	third, err := svc.Report(context.Background(), paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third.ID == first.ID || p.calls.Load() != 4 {
		t.Fatalf("expected a rebuilt report after ttl, got %d upstream calls", p.calls.Load())
	}
}

func TestSearchRecordsHistory(t *testing.T) {
	svc := NewService(newMemStore(), []Provider{goodProvider("primary")}, 0)

	if _, err := svc.Search(context.Background(), paris); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Search(context.Background(), paris); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, _ := svc.SearchHistory()
	if len(history) != 1 {
		t.Fatalf("expected 1 de-duplicated entry, got %d", len(history))
	}
	if history[0].City != "Paris" || history[0].Country != "FR" {
		t.Fatalf("expected provider-resolved names, got %+v", history[0])
	}

	if err := svc.ClearSearchHistory(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if history, _ := svc.SearchHistory(); len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}

func TestPushSearch(t *testing.T) {
	var list []SearchEntry
	for _, city := range []string{"A", "B", "C", "D", "E", "F"} {
		list = PushSearch(list, SearchEntry{City: city, Country: "X"}, 5)
	}
	if len(list) != 5 || list[0].City != "F" || list[4].City != "B" {
		t.Fatalf("unexpected list: %+v", list)
	}

	list = PushSearch(list, SearchEntry{City: "D", Country: "X"}, 5)
	want := []string{"D", "F", "E", "C", "B"}
	for i, e := range list {
		if e.City != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], e.City)
		}
	}

	list = PushSearch(list, SearchEntry{City: "D", Country: "Y"}, 5)
	if list[0].Country != "Y" || list[1].City != "D" {
		t.Fatalf("same city in another country must be kept: %+v", list)
	}
}
