package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/export"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// requestTimeout bounds the upstream work done for a single request.
const requestTimeout = 20 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")
	w := v1.Group("/weather")

	w.Get("/report", func(c *fiber.Ctx) error {
		report, err := cachedReport(c, service)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	w.Get("/search", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
		defer cancel()

		report, err := service.Search(ctx, loc.toLocation())
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(report)
	})

	w.Get("/current", func(c *fiber.Ctx) error {
		report, err := cachedReport(c, service)
		if err != nil {
			return err
		}
		return c.JSON(report.Current)
	})

	w.Get("/hourly", func(c *fiber.Ctx) error {
		report, err := cachedReport(c, service)
		if err != nil {
			return err
		}
		return c.JSON(report.Hourly)
	})

	w.Get("/daily", func(c *fiber.Ctx) error {
		report, err := cachedReport(c, service)
		if err != nil {
			return err
		}
		return c.JSON(report.Daily)
	})

	w.Get("/trend", func(c *fiber.Ctx) error {
		report, err := cachedReport(c, service)
		if err != nil {
			return err
		}
		if report.Trend == nil {
			return fiber.NewError(fiber.StatusNotFound, "no daily forecast to analyze")
		}
		return c.JSON(report.Trend)
	})

	w.Get("/latest", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Latest(loc.toLocation())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather report for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load weather report")
		}
		return c.JSON(report)
	})

	w.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		reports, err := service.Range(loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location": loc,
			"from":     req.From,
			"to":       req.To,
			"reports":  reports,
		})
	})

	w.Get("/export", func(c *fiber.Ctx) error {
		var q exportQuery
		q.Format = c.Query("format")
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		format, err := export.ParseFormat(q.Format)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := cachedReport(c, service)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, report, time.Now()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render export")
		}

		c.Attachment(export.FileName(report, format))
		c.Set(fiber.HeaderContentType, format.ContentType())
		return c.Send(buf.Bytes())
	})

	s := v1.Group("/searches")

	s.Get("/", func(c *fiber.Ctx) error {
		entries, err := service.SearchHistory()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load search history")
		}
		return c.JSON(entries)
	})

	s.Delete("/", func(c *fiber.Ctx) error {
		if err := service.ClearSearchHistory(); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear search history")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// cachedReport parses the location and returns the TTL-cached report for it.
func cachedReport(c *fiber.Ctx, service *weather.Service) (weather.Report, error) {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return weather.Report{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	report, err := service.Report(ctx, loc.toLocation())
	if err != nil {
		return weather.Report{}, upstreamError(err)
	}
	return report, nil
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, weather.ErrInvalidLocation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	case errors.Is(err, weather.ErrNoProviders):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "weather provider timed out")
	default:
		return fiber.NewError(fiber.StatusBadGateway, "weather provider error")
	}
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	City    string   `validate:"required"`
	Country string   `validate:"omitempty,max=64"`
	Lat     *float64 `validate:"omitempty,latitude"`
	Lon     *float64 `validate:"omitempty,longitude"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		City:    l.City,
		Country: l.Country,
		Lat:     l.Lat,
		Lon:     l.Lon,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.City = strings.TrimSpace(c.Query("city"))
	q.Country = strings.TrimSpace(c.Query("country"))

	lat, lon := c.Query("lat"), c.Query("lon")
	if (lat == "") != (lon == "") {
		return q, errors.New("lat and lon must be provided together")
	}
	if lat != "" {
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return q, fmt.Errorf("invalid lat: %w", err)
		}
		lo, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return q, fmt.Errorf("invalid lon: %w", err)
		}
		q.Lat, q.Lon = &la, &lo
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// exportQuery holds query parameters for the export endpoint.
type exportQuery struct {
	Format string `validate:"required,oneof=json csv html JSON CSV HTML"`
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
