package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	"auto-focus.app/updates/internal/metrics"
	"auto-focus.app/updates/internal/models"
	"auto-focus.app/updates/internal/ratelimit"
)

const maxBodyBytes = int64(65536)

type Syncer interface {
	Sync(ctx context.Context, licenseKey string) (models.EntitlementWindow, error)
}

type Options struct {
	Version        string
	AllowedOrigins []string
	Limiter        ratelimit.RateLimit
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer

	// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP instead
	// of the connection address.
	TrustProxyHeaders bool
}

type Server struct {
	Router chi.Router

	service  Syncer
	limiter  ratelimit.RateLimit
	metrics  *metrics.Metrics
	validate *validator.Validate
	version  string
	ready    *atomic.Bool
	inFlight *atomic.Int64
	started  time.Time
}

func NewHttpServer(service Syncer, opts Options) *Server {
	if opts.Metrics == nil {
		reg := prometheus.NewRegistry()
		opts.Metrics = metrics.New(reg)
		opts.Gatherer = reg
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		Router:   chi.NewRouter(),
		service:  service,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		version:  opts.Version,
		ready:    atomic.NewBool(true),
		inFlight: atomic.NewInt64(0),
		started:  time.Now(),
	}

	r := s.Router
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/sync-maintenance", s.SyncMaintenance)
		r.Post("/api/v1/maintenance/sync", s.SyncMaintenance)
	})

	return s
}

// SetReady flips the health check; main clears it before shutting down.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

const requestIDHeader = "X-Request-ID"

type ctxKeyRequestID struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientAddr(r)) {
			writeErrorResponse(w, r, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
