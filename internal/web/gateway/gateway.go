// Package gateway is the HTTP/WebSocket front door described in
// SPEC_FULL.md §6: POST /v1/compile wraps internal/compiler.Compile,
// POST /v1/pipelines starts a streaming pipeline from internal/runtime/
// engine, and GET /v1/pipelines/{id}/tee attaches another consumer to
// an already-running one over a WebSocket. Every route but /v1/health
// requires a bearer JWT minted by `aro serve --issue-token`.
package gateway

import (
	"net/http"
	"time"

	"github.com/aro-lang/aro/internal/runtime/engine"
	"github.com/aro-lang/aro/internal/web/auth"
	"github.com/aro-lang/aro/internal/web/cache"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server holds the gateway's dependencies and exposes the assembled
// chi.Router as an http.Handler.
type Server struct {
	router chi.Router
	engine *engine.Engine
	reg    *engine.Registry
	auth   *auth.AuthService
	logger *zap.Logger
	cache  cache.Cache
}

// Config bundles the dependencies New needs. Logger and Cache default
// to a no-op zap logger and an in-memory cache when left zero.
type Config struct {
	Engine    *engine.Engine
	Registry  *engine.Registry
	Auth      *auth.AuthService
	Logger    *zap.Logger
	Cache     cache.Cache
	TeeBuffer int
}

// New assembles the gateway's router.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cfg.Cache
	if c == nil {
		c = cache.NewMemoryCache()
	}
	teeBuffer := cfg.TeeBuffer
	if teeBuffer < 1 {
		teeBuffer = 256
	}

	s := &Server{
		router: chi.NewRouter(),
		engine: cfg.Engine,
		reg:    cfg.Registry,
		auth:   cfg.Auth,
		logger: logger,
		cache:  c,
	}
	if s.reg == nil {
		s.reg = engine.NewRegistry(teeBuffer)
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/v1/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireBearerToken)
		r.With(s.requirePermission(auth.CompilationsCreate)).Post("/v1/compile", s.handleCompile)
		r.With(s.requirePermission(auth.PipelinesCreate)).Post("/v1/pipelines", s.handleCreatePipeline)
		r.With(s.requirePermission(auth.PipelinesRead)).Get("/v1/pipelines/{id}/tee", s.handlePipelineTee)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one structured line per request, grounded on the
// teacher's chi-middleware-chain style (middleware.RequestID/RealIP/
// Recoverer composed the same way) rather than chi's own default text
// logger, so every gateway log line goes through the configured zap
// logger like the rest of the ambient stack.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
