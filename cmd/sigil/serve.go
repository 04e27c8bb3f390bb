// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sigilauth/sigil/internal/auth"
	authpg "github.com/sigilauth/sigil/internal/auth/postgres"
	"github.com/sigilauth/sigil/internal/config"
	"github.com/sigilauth/sigil/internal/httpapi"
	"github.com/sigilauth/sigil/internal/logging"
	"github.com/sigilauth/sigil/internal/observability"
	"github.com/sigilauth/sigil/internal/store"
	"github.com/sigilauth/sigil/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API server",
		Long: `Start the HTTP API server which handles user registration,
authentication, and session token issuance.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("listen-addr", ":8080", "API listen address")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("environment", "production", "environment name (dev and test expose error detail)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection string (default: DATABASE_URL env)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logging.SetDefault("sigil", version, cfg.LogFormat)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Open(ctx, cfg.DatabaseURL, cfg.DBMinConns, cfg.DBMaxConns)
	if err != nil {
		errutil.LogError(logger, "database connection failed", err)
		return err
	}
	defer pool.Close()

	users := authpg.NewUserRepository(pool)

	var hasher auth.PasswordHasher
	switch cfg.PasswordHasher {
	case "argon2id":
		hasher = auth.NewArgon2idHasher()
	default:
		hasher = auth.NewBcryptHasher(cfg.BcryptCost)
	}

	issuer, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.TokenTTL())
	if err != nil {
		return err
	}

	authSvc, err := auth.NewServiceWithLogger(users, hasher, issuer, logger)
	if err != nil {
		return err
	}

	obsSrv := observability.NewServer(cfg.MetricsAddr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrs, err := obsSrv.Start()
	if err != nil {
		errutil.LogError(logger, "observability server failed to start", err)
		return err
	}

	apiSrv, err := httpapi.NewServer(cfg.ListenAddr, authSvc, obsSrv.Metrics(), cfg.IsDev(), logger)
	if err != nil {
		return err
	}
	apiErrs, err := apiSrv.Start()
	if err != nil {
		errutil.LogError(logger, "api server failed to start", err)
		stopServer(obsSrv.Stop, logger, "observability")
		return err
	}

	logger.Info("sigil started",
		"api_addr", apiSrv.Addr(),
		"metrics_addr", obsSrv.Addr(),
		"hasher", cfg.PasswordHasher,
		"token_ttl", cfg.TokenTTL().String(),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-apiErrs:
		if err != nil {
			errutil.LogError(logger, "api server failed", err)
		}
	case err = <-obsErrs:
		if err != nil {
			errutil.LogError(logger, "observability server failed", err)
		}
	}

	stopServer(apiSrv.Stop, logger, "api")
	stopServer(obsSrv.Stop, logger, "observability")

	if err != nil {
		return oops.Code("SERVE_FAILED").Wrap(err)
	}
	return nil
}

// stopServer shuts a server down with a bounded context, logging rather
// than propagating failures so the remaining servers still get stopped.
func stopServer(stop func(context.Context) error, logger *slog.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		errutil.LogError(logger, name+" server shutdown failed", err)
	}
}
