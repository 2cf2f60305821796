// Package server exposes a session as a small web dashboard.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds configuration for the web server.
type Config struct {
	Controller  *session.Controller
	Addr        string
	SourceLabel string

	// ConfigPath is watched for changes when Watch is set; OnConfig receives
	// each reloaded config.
	ConfigPath string
	Watch      bool
	OnConfig   func(*config.Config)

	Logger *zap.Logger
}

// Server serves the dashboard and JSON API for one session.
type Server struct {
	controller  *session.Controller
	addr        string
	sourceLabel string
	configPath  string
	watch       bool
	onConfig    func(*config.Config)
	logger      *zap.Logger
	tmpl        *template.Template
	policy      *bluemonday.Policy

	// ctx outlives individual requests so generations are not cancelled when
	// the POST that started them returns.
	ctx context.Context
}

// New creates a server instance.
func New(cfg Config) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = config.DefaultAddr
	}

	return &Server{
		controller:  cfg.Controller,
		addr:        addr,
		sourceLabel: cfg.SourceLabel,
		configPath:  cfg.ConfigPath,
		watch:       cfg.Watch,
		onConfig:    cfg.OnConfig,
		logger:      logger,
		tmpl:        tmpl,
		policy:      timelinePolicy(),
		ctx:         context.Background(),
	}, nil
}

// timelinePolicy admits only the elements the timeline renderer emits.
func timelinePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h3", "strong", "br")
	return p
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/", s.handleDashboard)
	r.Post("/generate", s.handleGenerate)
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.handleView)
	})

	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)
	s.ctx = egctx

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting web server", zap.String("addr", s.addr))

	if s.watch && s.configPath != "" && s.onConfig != nil {
		eg.Go(func() error {
			return config.Watch(egctx, s.configPath, s.logger, s.onConfig)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down web server")
		err := srv.Shutdown(shutdownCtx)
		s.controller.Wait()
		return err
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
