package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type recordingRefresher struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingRefresher) Refresh(ctx context.Context, loc weather.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, loc.Key())
	if loc.City == "Atlantis" {
		return errors.New("city not found")
	}
	return nil
}

func TestRunOnceRefreshesEveryLocation(t *testing.T) {
	locs := []weather.Location{
		{City: "Paris", Country: "FR"},
		{City: "Atlantis", Country: "XX"},
		{City: "Berlin", Country: "DE"},
	}
	r := &recordingRefresher{}
	s := New(locs, time.Minute, r)

	s.RunOnce()

	if len(r.seen) != len(locs) {
		t.Fatalf("expected %d refreshes, got %d", len(locs), len(r.seen))
	}
}

func TestStartWithoutLocations(t *testing.T) {
	s := New(nil, time.Minute, &recordingRefresher{})
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}
