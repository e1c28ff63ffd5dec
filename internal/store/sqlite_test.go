package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func openTestDB(t *testing.T, maxHistory int, maxAge time.Duration) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_weather.db")

	s, err := NewSQLite(dbPath, maxHistory, maxAge, 3)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSaveAndLoad(t *testing.T) {
	s := openTestDB(t, 0, 0)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.GetLatest(berlin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	r := report("r1", base)
	r.Daily = []weather.DaySummary{{Day: "Fri", Temp: 12, Rain: 2.5}}
	r.Trend = &weather.TrendSummary{AvgTemp: 12, TempTrend: weather.Falling}
	if err := s.SaveReport(berlin, r); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if err := s.SaveReport(berlin, report("r2", base.Add(time.Hour))); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	latest, err := s.GetLatest(berlin)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.ID != "r2" {
		t.Fatalf("expected r2, got %s", latest.ID)
	}

	list, err := s.GetRange(berlin, base, base)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "r1" {
		t.Fatalf("unexpected range: %+v", list)
	}
	got := list[0]
	if len(got.Daily) != 1 || got.Daily[0].Rain != 2.5 || got.Trend == nil || got.Trend.TempTrend != weather.Falling {
		t.Fatalf("report did not round-trip: %+v", got)
	}
	if !got.GeneratedAt.Equal(base) {
		t.Fatalf("timestamps differ: got %v want %v", got.GeneratedAt, base)
	}
}

func TestSQLiteRetention(t *testing.T) {
	s := openTestDB(t, 2, 0)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		if err := s.SaveReport(berlin, report(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}
	}

	list, err := s.GetRange(berlin, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "d" {
		t.Fatalf("expected c,d got %+v", list)
	}
}

func TestSQLiteSearches(t *testing.T) {
	s := openTestDB(t, 0, 0)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, city := range []string{"A", "B", "C", "A", "D"} {
		entry := weather.SearchEntry{City: city, Country: "X", Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := s.AddSearch(entry); err != nil {
			t.Fatalf("AddSearch failed: %v", err)
		}
	}

	list, err := s.Searches()
	if err != nil {
		t.Fatalf("Searches failed: %v", err)
	}
	want := []string{"D", "A", "C"}
	if len(list) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(list))
	}
	for i := range want {
		if list[i].City != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], list[i].City)
		}
	}

	if err := s.ClearSearches(); err != nil {
		t.Fatalf("ClearSearches failed: %v", err)
	}
	if list, _ := s.Searches(); len(list) != 0 {
		t.Fatalf("expected empty history, got %d", len(list))
	}
}
