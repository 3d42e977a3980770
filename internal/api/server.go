package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/star/framerot/internal/auth"
	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/frames"
	"github.com/star/framerot/internal/health"
	"github.com/star/framerot/internal/metrics"
	"github.com/star/framerot/internal/timescale"
)

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Store      *eop.Store
	Series     *frames.SeriesRunner
	Lookup     timescale.Scale
	MaxPoints  int
	Auth       auth.Config
	TrustProxy bool
	// Ready backs /readyz. Nil means always ready.
	Ready func() error
	// Refresh backs POST /api/v1/eop/fetch, which is only registered when
	// Refresh is set.
	Refresh func(ctx context.Context) error
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(logger, deps),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed handler with its middleware chain:
// metrics -> logging -> auth -> mux.
func NewHandler(logger *slog.Logger, deps Deps) http.Handler {
	if deps.Store == nil {
		deps.Store = eop.NewStore()
	}
	if deps.Series == nil {
		deps.Series = frames.NewSeriesRunner(1, logger)
	}
	if deps.MaxPoints <= 0 {
		deps.MaxPoints = 10000
	}

	h := &handlers{
		logger:    logger,
		store:     deps.Store,
		series:    deps.Series,
		lookup:    deps.Lookup,
		maxPoints: deps.MaxPoints,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/frames", h.listFrames)
	mux.HandleFunc("GET /api/v1/rotation", h.rotate)
	mux.HandleFunc("GET /api/v1/rotation/series", h.rotationSeries)
	mux.HandleFunc("POST /api/v1/state", h.state)
	mux.HandleFunc("GET /api/v1/plan/{from}/{to}", h.plan)
	mux.HandleFunc("GET /api/v1/station", h.station)
	mux.HandleFunc("GET /api/v1/eop/metadata", eopMetadataHandler(deps.Store))
	if deps.Refresh != nil {
		mux.HandleFunc("POST /api/v1/eop/fetch", eopFetchHandler(logger, deps.Refresh))
	}

	var handler http.Handler = mux
	handler = auth.Middleware(deps.Auth)(handler)
	handler = loggingMiddleware(logger, deps.TrustProxy)(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "component", "api", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// requestIDHeader is echoed back, or generated when the client sent none.
const requestIDHeader = "X-Request-ID"

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sr, r)

			level := slog.LevelInfo
			switch {
			case sr.statusCode >= http.StatusInternalServerError:
				level = slog.LevelError
			case probePath(r.URL.Path):
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", clientIP(r, trustProxy),
			)
		})
	}
}
