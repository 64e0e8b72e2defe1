package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/attachment"
	"github.com/timeclock-server/timeclock-server-pro/internal/auth"
	"github.com/timeclock-server/timeclock-server-pro/internal/breaks"
	"github.com/timeclock-server/timeclock-server-pro/internal/clock"
	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/leave"
	"github.com/timeclock-server/timeclock-server-pro/internal/overtime"
	"github.com/timeclock-server/timeclock-server-pro/internal/seal"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/internal/validation"
)

// sessionCookie is the name of the session token cookie
const sessionCookie = "session"

type contextKey string

const tenantContextKey contextKey = "tenantContext"

// Services bundles the domain services the handlers call
type Services struct {
	Clock    *clock.Engine
	Breaks   *breaks.Tracker
	Leave    *leave.Service
	Overtime *overtime.Aggregator
	Sealer   *seal.Sealer
	Files    *attachment.Client
}

// RESTServer represents the REST API server
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.JWTManager
	validator *validation.Validator
	services  Services
	router    chi.Router
	server    *http.Server
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, store storage.Store, services Services) *RESTServer {
	s := &RESTServer{
		config:    cfg,
		store:     store,
		auth:      auth.NewJWTManager(&cfg.JWT),
		validator: validation.NewValidator(),
		services:  services,
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(2 * time.Minute))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Terminal-ID"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware resolves the session into a tenant context. The token
// is accepted from the Authorization header or the session cookie.
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		tc, err := s.resolveContext(r.Context(), claims)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), tenantContextKey, tc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveContext re-reads employee and tenant so a deactivation takes
// effect on the next request, not at token expiry.
func (s *RESTServer) resolveContext(ctx context.Context, claims *auth.Claims) (*tenant.Context, error) {
	t, err := s.store.GetTenant(ctx, claims.TenantID)
	if err != nil {
		return nil, tenant.ErrUnauthenticated
	}

	emp, err := s.store.GetEmployee(ctx, tenant.Scope{TenantID: t.ID}, claims.EmployeeID)
	if err != nil {
		return nil, tenant.ErrUnauthenticated
	}

	return tenant.New(emp, t)
}

// requireAdmin refuses non-admin contexts
func (s *RESTServer) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := s.tenantContext(r)
		if tc == nil || !tc.IsAdmin() {
			s.respondError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSuperAdmin refuses everything below super admin
func (s *RESTServer) requireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := s.tenantContext(r)
		if tc == nil || !tc.IsSuperAdmin() {
			s.respondError(w, http.StatusForbidden, "super admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tenantContext pulls the resolved context from the request
func (s *RESTServer) tenantContext(r *http.Request) *tenant.Context {
	tc, _ := r.Context().Value(tenantContextKey).(*tenant.Context)
	return tc
}

// clockMeta extracts the request facts that go under a punch seal
func clockMeta(r *http.Request) clock.Meta {
	terminal := r.Header.Get("X-Terminal-ID")
	if terminal == "" {
		terminal = "web"
	}
	return clock.Meta{
		TerminalID: terminal,
		UserAgent:  r.UserAgent(),
		RemoteIP:   r.RemoteAddr,
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.Split(h, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
