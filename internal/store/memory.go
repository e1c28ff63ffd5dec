package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no report is available for a given location.
	ErrNotFound = errors.New("no weather report for location")
)

// reportHistory holds a time-ordered list of reports for a location.
type reportHistory struct {
	reports []weather.Report
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// Reports are copied on the way in and out, so callers never share memory
// with the stored history.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: history
	data map[string]*reportHistory

	searches    []weather.SearchEntry
	searchLimit int

	// retention configuration
	maxHistory int           // max number of reports per location
	maxAge     time.Duration // optional max age for reports

	now func() time.Time
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration, searchLimit int) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]*reportHistory),
		searchLimit: searchLimit,
		maxHistory:  maxHistory,
		maxAge:      maxAge,
		now:         time.Now,
	}
}

// SaveReport appends a report for a location and enforces retention.
func (s *MemoryStore) SaveReport(loc weather.Location, report weather.Report) error {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &reportHistory{}
		s.data[key] = history
	}

	history.reports = append(history.reports, report.Clone())

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.reports) > s.maxHistory {
		over := len(history.reports) - s.maxHistory
		history.reports = history.reports[over:]
	}

	// Enforce retention by age; the newest report always survives.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.reports)-1; i++ {
			if !history.reports[i].GeneratedAt.Before(cutoff) {
				break
			}
		}
		history.reports = history.reports[i:]
	}
	return nil
}

// GetLatest returns the most recent report for a location.
func (s *MemoryStore) GetLatest(loc weather.Location) (weather.Report, error) {
	key := loc.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.reports) == 0 {
		return weather.Report{}, ErrNotFound
	}
	return history.reports[len(history.reports)-1].Clone(), nil
}

// GetRange returns all reports for a location generated between from and to (inclusive).
func (s *MemoryStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.Report, error) {
	key := loc.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.reports) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Report
	for _, r := range history.reports {
		if !r.GeneratedAt.Before(from) && !r.GeneratedAt.After(to) {
			result = append(result, r.Clone())
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// AddSearch records a lookup in the bounded, de-duplicated search history.
func (s *MemoryStore) AddSearch(entry weather.SearchEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searches = weather.PushSearch(s.searches, entry, s.searchLimit)
	return nil
}

// Searches returns the search history, newest first.
func (s *MemoryStore) Searches() ([]weather.SearchEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.SearchEntry, len(s.searches))
	copy(out, s.searches)
	return out, nil
}

// ClearSearches forgets every remembered lookup.
func (s *MemoryStore) ClearSearches() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searches = nil
	return nil
}
