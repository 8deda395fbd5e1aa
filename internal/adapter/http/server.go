package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
	"github.com/couchcryptid/tent-hex-enrichment/internal/lookup"
	"github.com/couchcryptid/tent-hex-enrichment/internal/observability"
)

// Options tunes the lookup API.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	// DefaultResolution applies to /hex/by-location when the query omits it.
	DefaultResolution int
}

// Server exposes the enriched hex lookup API plus health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	store      *lookup.Store
	indexer    domain.HexIndexer
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates the lookup API server. The store may be empty at
// construction; /readyz and /health report not ready until it is filled.
func NewServer(addr string, store *lookup.Store, indexer domain.HexIndexer, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		store:   store,
		indexer: indexer,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(store))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requestLogger)
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst)))

		r.Get("/", s.handleRoot)
		r.Get("/health", s.handleHealth)
		r.Get("/debug/lookup", s.handleDebugLookup)
		r.Get("/hex/by-location", s.handleByLocation)
		r.Get("/hex/{h3_id}", s.handleHexByID)
		r.Get("/hex/{h3_id}/geojson", s.handleHexGeoJSON)
		r.Get("/hexes.geojson", s.handleAllGeoJSON)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				sharedobs.WriteJSON(w, http.StatusTooManyRequests, errorBody{Detail: "Rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
