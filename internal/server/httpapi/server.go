// Package httpapi exposes the auth service over HTTP. All lifecycle
// endpoints live under /auth; /healthz and /metrics serve operations.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akrylov/authgate/internal/logging"
	"github.com/akrylov/authgate/internal/server/services"
)

// AuthService is the slice of the service layer the transport needs.
type AuthService interface {
	Register(ctx context.Context, email, password string, profile services.Profile) (*services.RegisterResult, error)
	Verify(ctx context.Context, tokenValue string) (*services.VerifyResult, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Session, error)
	Logout(ctx context.Context, refreshToken string) (*services.LogoutResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, tokenValue string) (*services.ResetValidation, error)
	ConfirmPasswordReset(ctx context.Context, tokenValue, newPassword string) (*services.ConfirmResetResult, error)
}

// Server serves the REST API. The prometheus registry is optional; without it
// the /metrics route is not mounted.
type Server struct {
	addr                 string
	service              AuthService
	logger               logging.Logger
	registry             *prometheus.Registry
	refreshTokenValidity time.Duration
}

// NewServer constructs the HTTP server. refreshTokenValidity sets the
// refresh-cookie Max-Age so the cookie dies with the token.
func NewServer(addr string, service AuthService, logger logging.Logger, registry *prometheus.Registry, refreshTokenValidity time.Duration) *Server {
	return &Server{
		addr:                 addr,
		service:              service,
		logger:               logger.With("module", "httpapi"),
		registry:             registry,
		refreshTokenValidity: refreshTokenValidity,
	}
}

// Handler builds the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Get("/verify", s.handleVerify)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/request", s.handleResetRequest)
			r.Get("/validate", s.handleResetValidate)
			r.Post("/confirm", s.handleResetConfirm)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
