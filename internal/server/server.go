package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"QuantDesk/internal/model"
	"QuantDesk/internal/recorder"
	"QuantDesk/internal/scheduler"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Engine is the part of the scheduler the admin API drives.
type Engine interface {
	RegimeCheck(ctx context.Context) (model.RegimeResult, error)
	Rankings(ctx context.Context, st model.Strategy, topN int) ([]model.RankedPick, error)
	ForceRun(ctx context.Context, now time.Time) scheduler.TickReport
	State() model.RunState
}

// Server is the admin HTTP API.
type Server struct {
	echo     *echo.Echo
	engine   Engine
	history  recorder.Recorder
	gatherer prometheus.Gatherer
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the time passed to forced runs.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer builds the echo router. gatherer backs /metrics.
func NewServer(engine Engine, history recorder.Recorder, gatherer prometheus.Gatherer, opts ...Option) *Server {
	if history == nil {
		history = recorder.NewNoopRecorder()
	}
	s := &Server{
		echo:     echo.New(),
		engine:   engine,
		history:  history,
		gatherer: gatherer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogging())

	e.GET("/healthz", s.health)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	g := e.Group("/api")
	g.GET("/regime", s.regime)
	g.GET("/state", s.state)
	g.GET("/history", s.historyList)
	g.GET("/rankings/:strategy", s.rankings)
	g.POST("/signals/run", s.forceRun)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("admin server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Debug().
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("http request")
			return err
		}
	}
}
