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

package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-authd/internal/config"
	"github.com/jeremyhahn/go-authd/internal/identity"
	"github.com/jeremyhahn/go-authd/internal/rest"
	"github.com/jeremyhahn/go-authd/pkg/health"
	"github.com/jeremyhahn/go-authd/pkg/logging"
	"github.com/jeremyhahn/go-authd/pkg/metrics"
	"github.com/jeremyhahn/go-authd/pkg/ratelimit"
	"github.com/jeremyhahn/go-authd/pkg/session"
	"github.com/jeremyhahn/go-authd/pkg/webauthn"
)

// serveCmd runs the HTTP service until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authentication HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.Setup(cfg.Logging)

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	secret := cfg.Session.Secret
	if secret == "" {
		// Sessions from previous runs become invalid when the secret is
		// ephemeral.
		secret, _ = randomSecret()
		logger.Warn("session secret not configured, generated an ephemeral one")
	}

	repo := identity.NewMemoryRepository()
	identitySvc, err := identity.NewService(identity.ServiceParams{
		Repository:    repo,
		Logger:        logger,
		ResetTokenTTL: cfg.Identity.ResetTokenTTL,
		BcryptCost:    cfg.Identity.BcryptCost,
	})
	if err != nil {
		return err
	}

	webauthnSvc, err := webauthn.NewService(webauthn.ServiceParams{
		Config:      &cfg.WebAuthn,
		Users:       identity.NewDirectory(repo),
		Credentials: webauthn.NewMemoryCredentialStore(),
		Challenges:  webauthn.NewMemoryChallengeStore(),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	issuer, err := session.NewIssuer(session.IssuerParams{
		Secret:      secret,
		Issuer:      cfg.Session.Issuer,
		TTL:         cfg.Session.TTL,
		RememberTTL: cfg.Session.RememberTTL,
	})
	if err != nil {
		return err
	}

	checker := health.NewChecker()
	limiter := ratelimit.New(&cfg.RateLimit)

	server, err := rest.NewServer(rest.ServerParams{
		Config:   cfg,
		Logger:   logger,
		Identity: identitySvc,
		WebAuthn: webauthnSvc,
		Sessions: issuer,
		Checker:  checker,
		Limiter:  limiter,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	checker.MarkStarted()

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-signalCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
