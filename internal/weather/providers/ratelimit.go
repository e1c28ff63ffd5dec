package providers

import (
	"context"
	"fmt"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a weather.Provider with a token bucket shared by
// both current and forecast calls.
type RateLimitedProvider struct {
	provider weather.Provider
	limiter  *rate.Limiter
}

var _ weather.Provider = (*RateLimitedProvider)(nil)

// RateLimited allows rps requests per second (fractional values allowed) with the given burst.
func RateLimited(provider weather.Provider, rps float64, burst int) *RateLimitedProvider {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) FetchCurrent(ctx context.Context, loc weather.Location) (weather.CurrentConditions, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return weather.CurrentConditions{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.FetchCurrent(ctx, loc)
}

func (r *RateLimitedProvider) FetchForecast(ctx context.Context, loc weather.Location) (weather.Forecast, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return weather.Forecast{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.FetchForecast(ctx, loc)
}
