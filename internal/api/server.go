// Package api exposes prospect enrichment over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/store"
	"github.com/sells-group/prospect-enrich/internal/validate"
)

// BackendStatus reports backend configuration and breaker state.
// *enrich.Orchestrator implements it.
type BackendStatus interface {
	Backends() map[string]bool
	BreakerStates() map[string]string
}

// Config tunes the router.
type Config struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server holds the API's dependencies.
type Server struct {
	svc      *enrich.Service
	store    store.Store
	engine   *validate.Engine
	backends BackendStatus
	cfg      Config
}

// NewServer creates a Server. backends may be nil.
func NewServer(svc *enrich.Service, st store.Store, engine *validate.Engine, backends BackendStatus, cfg Config) *Server {
	if engine == nil {
		engine = validate.NewEngine()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	return &Server{svc: svc, store: st, engine: engine, backends: backends, cfg: cfg}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/health", s.health)
	r.Post("/validate", s.validateContacts)
	r.Post("/batch", s.runBatch)

	r.Route("/prospects", func(r chi.Router) {
		r.Post("/", s.createProspect)
		r.Get("/eligible", s.listEligible)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getProspect)
			r.Get("/eligibility", s.eligibility)
			r.Get("/runs", s.listRuns)
			r.Post("/enrich", s.enrichProspect)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
