// Package web serves the analysis results as JSON for the dashboard.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thirdcoast.systems/tubestats/internal/analysis"
	"thirdcoast.systems/tubestats/internal/metrics"
	"thirdcoast.systems/tubestats/internal/tables"
)

const maxTopLimit = 500

type Webserver struct {
	*echo.Echo
	tables   tables.Reader
	options  analysis.ReportOptions
	registry *prometheus.Registry
}

// NewWebserver builds the server. Tables are reloaded on every request so a
// finished transform shows up without a restart.
func NewWebserver(reader tables.Reader, opts analysis.ReportOptions) (*Webserver, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}

	s := &Webserver{
		Echo:     echo.New(),
		tables:   reader,
		options:  opts,
		registry: reg,
	}
	s.setupMiddleware()
	s.registerRoutes()
	return s, nil
}

func (s *Webserver) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/healthz"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
	s.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			metrics.RequestDuration.
				WithLabelValues(c.Path(), c.Request().Method, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	})
}

func (s *Webserver) registerRoutes() {
	s.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.Group("/api")
	api.GET("/report", s.handleReport)
	api.GET("/report/:name", s.handleReportResult)
	api.GET("/videos/top", s.handleTopVideos)
}

// openSession maps a missing transform run to 404.
func (s *Webserver) openSession(ctx context.Context) (*analysis.Session, error) {
	session, err := analysis.Open(ctx, s.tables)
	if err != nil {
		if errors.Is(err, tables.ErrNoTable) {
			return nil, ErrNotFound("no transformed data yet, run transform first")
		}
		slog.Error("failed to load tables", "error", err)
		return nil, ErrInternal("failed to load tables")
	}
	return session, nil
}

func (s *Webserver) report(c echo.Context) (*analysis.Report, error) {
	ctx := c.Request().Context()
	session, err := s.openSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	r, err := session.Report(ctx, s.options)
	if err != nil {
		slog.Error("failed to build report", "error", err)
		return nil, ErrInternal("failed to build report")
	}
	return r, nil
}

func (s *Webserver) handleReport(c echo.Context) error {
	r, err := s.report(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Webserver) handleReportResult(c echo.Context) error {
	name := c.Param("name")
	if !knownResult(name) {
		return ErrNotFound("unknown result set " + strconv.Quote(name))
	}
	r, err := s.report(c)
	if err != nil {
		return err
	}
	result, _ := r.Result(name)
	return c.JSON(http.StatusOK, result)
}

func (s *Webserver) handleTopVideos(c echo.Context) error {
	metric := analysis.MetricViews
	if raw := c.QueryParam("metric"); raw != "" {
		m, err := analysis.ParseMetric(raw)
		if err != nil {
			return ErrBadRequest(err.Error())
		}
		metric = m
	}

	limit := s.options.TopN
	if limit <= 0 {
		limit = analysis.DefaultTopN
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTopLimit {
			return ErrBadRequest("limit must be between 1 and " + strconv.Itoa(maxTopLimit))
		}
		limit = n
	}

	session, err := s.openSession(c.Request().Context())
	if err != nil {
		return err
	}
	defer session.Close()

	return c.JSON(http.StatusOK, session.TopVideos(metric, limit))
}

func knownResult(name string) bool {
	for _, n := range analysis.ResultNames {
		if n == name {
			return true
		}
	}
	return false
}
