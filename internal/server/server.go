// Package server exposes the activity dashboard over HTTP.
//
// Routes:
//
//	GET  /api/events     merged event list
//	GET  /api/graph      lane graph as JSON
//	GET  /api/graph.svg  rendered SVG
//	GET  /api/graph.dot  Graphviz DOT
//	GET  /api/graph.txt  plain-text transcript
//	GET  /api/status     per-feed state
//	POST /api/refresh    force both feeds
//	GET  /metrics        Prometheus metrics (when configured)
//	GET  /healthz        liveness
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/activitygraph/pkg/feed"
	"github.com/matzehuels/activitygraph/pkg/pipeline"
)

// DefaultRequestTimeout bounds a request when Config.RequestTimeout is zero.
const DefaultRequestTimeout = 30 * time.Second

// Config wires the server's dependencies.
type Config struct {
	Dashboard *feed.Dashboard
	Runner    *pipeline.Runner

	// Options are the default pipeline options; query parameters override them.
	Options pipeline.Options

	Logger *log.Logger

	// Metrics, if set, is served at /metrics.
	Metrics http.Handler

	// PollInterval is how often [Server.Run] revalidates the feeds. Zero
	// disables polling.
	PollInterval   time.Duration
	RequestTimeout time.Duration
	Now            func() time.Time
}

type Server struct {
	dash    *feed.Dashboard
	runner  *pipeline.Runner
	opts    pipeline.Options
	logger  *log.Logger
	metrics http.Handler
	poll    time.Duration
	timeout time.Duration
	now     func() time.Time
}

// New creates a server. Dashboard and Runner are required.
func New(cfg Config) *Server {
	s := &Server{
		dash:    cfg.Dashboard,
		runner:  cfg.Runner,
		opts:    cfg.Options,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		poll:    cfg.PollInterval,
		timeout: cfg.RequestTimeout,
		now:     cfg.Now,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRequestTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Get("/events", s.handleEvents)
		r.Get("/graph", s.handleGraph)
		r.Get("/graph.svg", s.handleArtifact(pipeline.FormatSVG, "image/svg+xml"))
		r.Get("/graph.dot", s.handleArtifact(pipeline.FormatDOT, "text/vnd.graphviz; charset=utf-8"))
		r.Get("/graph.txt", s.handleArtifact(pipeline.FormatText, "text/plain; charset=utf-8"))
		r.Get("/status", s.handleStatus)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}

// Run starts the feeds, serves on addr and shuts down gracefully when ctx
// is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	st := s.dash.Start(ctx)
	for provider, msg := range st.Errors() {
		s.logger.Warn("initial fetch failed", "provider", provider, "error", msg)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	if s.poll > 0 {
		go s.dash.Poll(pollCtx, s.poll)
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	stopPoll()
	s.dash.Close()
	s.dash.Wait()
	return err
}
