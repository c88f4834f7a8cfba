// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authd.
//
// go-authd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest exposes the authentication API over HTTP.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-authd/internal/config"
	"github.com/jeremyhahn/go-authd/internal/identity"
	"github.com/jeremyhahn/go-authd/pkg/health"
	"github.com/jeremyhahn/go-authd/pkg/metrics"
	"github.com/jeremyhahn/go-authd/pkg/ratelimit"
	"github.com/jeremyhahn/go-authd/pkg/session"
	"github.com/jeremyhahn/go-authd/pkg/webauthn"
)

// Server serves the REST API.
type Server struct {
	config     *config.Config
	logger     *slog.Logger
	identity   *identity.Service
	webauthn   *webauthn.Service
	sessions   *session.Issuer
	cookies    session.CookiePolicy
	checker    *health.Checker
	limiter    *ratelimit.Limiter
	router     chi.Router
	httpServer *http.Server
}

// ServerParams holds the dependencies for NewServer.
type ServerParams struct {
	Config   *config.Config
	Logger   *slog.Logger
	Identity *identity.Service
	WebAuthn *webauthn.Service
	Sessions *session.Issuer
	Checker  *health.Checker
	Limiter  *ratelimit.Limiter
}

// NewServer wires the handlers and middleware into a ready-to-start server.
func NewServer(params ServerParams) (*Server, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("rest: config is required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("rest: identity service is required")
	}
	if params.WebAuthn == nil {
		return nil, fmt.Errorf("rest: webauthn service is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("rest: session issuer is required")
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	checker := params.Checker
	if checker == nil {
		checker = health.NewChecker()
	}

	cookieName := params.Config.Session.CookieName
	if cookieName == "" {
		cookieName = session.DefaultCookieName
	}
	s := &Server{
		config:   params.Config,
		logger:   logger,
		identity: params.Identity,
		webauthn: params.WebAuthn,
		sessions: params.Sessions,
		cookies: session.CookiePolicy{
			Name:   cookieName,
			Domain: params.Config.Session.CookieDomain,
			Secure: params.Config.Session.CookieSecure,
		},
		checker: checker,
		limiter: params.Limiter,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:         params.Config.Server.Address,
		Handler:      s.router,
		ReadTimeout:  params.Config.Server.ReadTimeout,
		WriteTimeout: params.Config.Server.WriteTimeout,
		IdleTimeout:  params.Config.Server.IdleTimeout,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(securityHeaders)
	r.Use(s.cors)
	r.Use(metrics.HTTPMiddleware)
	if s.limiter != nil {
		r.Use(ratelimit.Middleware(s.limiter))
	}

	r.Get("/health/live", s.checker.LiveHandler)
	r.Get("/health/ready", s.checker.ReadyHandler)
	if s.config.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/sign-in", s.handleSignIn)
		r.Post("/sign-out", s.handleSignOut)
		r.Get("/verify-email/{token}", s.handleVerifyEmail)
		r.Post("/resend-verification", s.handleResendVerification)
		r.Post("/password-reset", s.handlePasswordResetRequest)
		r.Post("/password-reset/{token}", s.handlePasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/me", s.handleMe)
			r.Get("/passkey-status", s.handlePasskeyStatus)
		})
	})

	r.Route("/api/webauthn", func(r chi.Router) {
		r.Post("/login-options", s.handleLoginOptions)
		r.Post("/login-verification", s.handleLoginVerification)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/registration-options/{id}", s.handleRegistrationOptions)
			r.Post("/verify-registration", s.handleVerifyRegistration)
		})
	})

	return r
}

// Router returns the HTTP handler, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP listener until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rest: serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
