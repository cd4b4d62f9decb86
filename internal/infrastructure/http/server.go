// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/usecases"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// maxFormBytes bounds request bodies; a poem request is a few short fields.
const maxFormBytes = 64 << 10

// PoemSubmitter runs one poem request to a terminal state.
type PoemSubmitter interface {
	Submit(ctx context.Context, req entities.PoemRequest) *usecases.Run
	RetrievalEnabled() bool
}

// Options configures the listener and the page.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       float64
	RateBurst       int
	Locale          entities.Locale
}

// Server is the HTTP server for the poem form and JSON API.
type Server struct {
	pipeline  PoemSubmitter
	opts      Options
	logger    *zap.Logger
	templates *template.Template
	router    chi.Router
}

// NewServer parses the embedded templates and builds the router.
func NewServer(pipeline PoemSubmitter, opts Options, logger *zap.Logger) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("http: pipeline is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	opts.Locale = entities.ParseLocale(string(opts.Locale))

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		pipeline:  pipeline,
		opts:      opts,
		logger:    logger,
		templates: tmpl,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)

	limiter := newClientLimiter(s.opts.RateLimit, s.opts.RateBurst)

	staticContent, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	r.Get("/", s.handleIndex)
	r.With(limiter.Middleware).Post("/poems", s.handleFormSubmit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/options", s.handleOptions)
		r.With(limiter.Middleware).Post("/poems", s.handleCreatePoem)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is done, then shuts down gracefully. In-flight runs
// get ShutdownTimeout to finish.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("versecraft server starting",
			zap.String("addr", s.opts.Addr),
			zap.Bool("retrieval", s.pipeline.RetrievalEnabled()))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
