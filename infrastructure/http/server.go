package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/events"
	"lattice/infrastructure/metrics"
	"lattice/infrastructure/rbac"
	"lattice/infrastructure/sqlite"
	"lattice/infrastructure/token"
)

var ShutdownTimeout = 2 * time.Second

// Options are the knobs read from the server and auth config sections.
type Options struct {
	CORSOrigins    []string
	PasswordPolicy bool
	MetricsPath    string
}

// Deps are the collaborators a Server routes requests to. Metrics is optional.
type Deps struct {
	DB      *sqlite.DB
	Rbac    *rbac.Rbac
	Audit   *audit.Service
	Tokens  *token.Service
	Hub     *events.Hub
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux
	log    *zap.Logger
	opts   Options

	DB      *sqlite.DB
	Rbac    *rbac.Rbac
	Audit   *audit.Service
	Tokens  *token.Service
	Hub     *events.Hub
	Metrics *metrics.Metrics
}

// NewServer creates a new http server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		Addr:    addr,
		router:  chi.NewRouter(),
		log:     log.With(zap.String("component", "http")),
		opts:    opts,
		DB:      deps.DB,
		Rbac:    deps.Rbac,
		Audit:   deps.Audit,
		Tokens:  deps.Tokens,
		Hub:     deps.Hub,
		Metrics: deps.Metrics,
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	if s.Metrics != nil {
		s.router.Use(s.Metrics.Middleware)
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Compress(5, "application/json", "text/csv"))

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.Handle(path, s.Metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		s.RegisterPublicRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(s.AuthenticateMiddleware)
			r.Use(s.AuthorizeMiddleware)
			s.RegisterAPIRoutes(r)
		})
	})

	if s.Hub != nil {
		s.server.RegisterOnShutdown(s.Hub.CloseAll)
	}
	s.server.Handler = s.router
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// AuthenticateMiddleware resolves the bearer token into an identity. The
// token may also arrive as ?token= for EventSource and WebSocket clients.
func (s *Server) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			response.Error(w, apperr.Unauthorized("Authentication required"))
			return
		}
		claims, err := s.Tokens.Verify(raw)
		if err != nil {
			s.log.Debug("token rejected",
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
			response.Error(w, apperr.Unauthorized("Invalid or expired token"))
			return
		}
		ctx := reqctx.NewContextWithIdentity(r.Context(), claims.Identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthorizeMiddleware enforces the permission registered for the route.
// Routes with no registered permission only need a valid token.
func (s *Server) AuthorizeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, guarded := s.Rbac.RequiredPermission(r.Method, r.URL.Path)
		if !guarded {
			next.ServeHTTP(w, r)
			return
		}
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		allowed, err := s.Rbac.Allowed(r.Context(), identity.Role, code)
		if err != nil {
			s.log.Error("permission lookup failed",
				zap.String("role", identity.Role),
				zap.String("permission", code),
				zap.Error(err))
			response.Error(w, err)
			return
		}
		if !allowed {
			s.log.Info("permission denied",
				zap.String("user", identity.Username),
				zap.String("role", identity.Role),
				zap.String("permission", code),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
			response.Error(w, apperr.Forbidden("Forbidden"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// streamPaths may carry the token as ?token= since EventSource and browser
// WebSockets cannot set headers.
var streamPaths = map[string]struct{}{
	"/api/events": {},
	"/api/ws":     {},
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, value, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}
	if _, ok := streamPaths[r.URL.Path]; ok {
		return r.URL.Query().Get("token")
	}
	return ""
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			fields = append(fields, zap.String("route", rctx.RoutePattern()))
		}
		switch {
		case status >= 500:
			s.log.Error("request", fields...)
		case status >= 400:
			s.log.Warn("request", fields...)
		default:
			s.log.Info("request", fields...)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	s.log.Info("listening", zap.String("addr", s.ln.Addr().String()))
	go func() {
		if err := s.server.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("serve failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}
