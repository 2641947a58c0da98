// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/internal/config"
	"github.com/specz/specz/internal/mail"
	"github.com/specz/specz/internal/web"
)

const (
	shutdownTimeout  = 5 * time.Second
	readinessTimeout = 2 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the web server that handles registration, password sign-in,
magic links and sessions, plus the metrics and health listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.Flags(cmd.Flags())

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies and blocks
// until a signal arrives, ctx is cancelled or a listener fails.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}

	logger, err := setupLogging("specz", cfg.Log)
	if err != nil {
		return oops.With("operation", "set up logging").Wrap(err)
	}

	logger.Info("starting specz",
		"addr", cfg.HTTP.Addr,
		"driver", cfg.Database.Driver,
		"magic_link_store", cfg.MagicLink.Store,
		"mail_provider", cfg.Mail.Provider)

	backend, err := deps.BackendOpener(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open database").Wrap(err)
	}
	defer backend.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var recorder auth.Recorder = auth.NopRecorder{}
	webCfg := web.Config{
		Addr:          cfg.HTTP.Addr,
		ReadTimeout:   cfg.HTTP.ReadTimeout,
		WriteTimeout:  cfg.HTTP.WriteTimeout,
		Origin:        cfg.HTTP.Origin,
		SecureCookies: cfg.HTTP.SecureCookies,
		Logger:        logger,
	}
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool {
			if !ready.Load() {
				return false
			}
			pingCtx, pingCancel := context.WithTimeout(context.Background(), readinessTimeout)
			defer pingCancel()
			return backend.Ping(pingCtx) == nil
		})
		metrics := obsServer.Metrics()
		recorder = metrics
		webCfg.Requests = metrics
	}

	svc, err := buildService(cfg, backend, deps, logger, recorder)
	if err != nil {
		return err
	}

	webServer, err := web.NewServer(svc, webCfg)
	if err != nil {
		return oops.With("operation", "create web server").Wrap(err)
	}
	webErrCh, err := webServer.Start()
	if err != nil {
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if stopErr := webServer.Stop(stopCtx); stopErr != nil {
				logger.Warn("failed to stop web server during cleanup", "error", stopErr)
			}
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	var wg sync.WaitGroup
	if cfg.Sweep.Interval > 0 {
		sweeper, err := auth.NewSweeper(backend.Sessions, backend.Links, cfg.Sweep.Interval, logger, recorder)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(ctx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("Specz server started on " + webServer.Addr())
	logger.Info("specz ready", "addr", webServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
	wg.Wait()

	logger.Info("shutdown complete")
	return nil
}

// buildService wires the auth services onto backend.
func buildService(cfg *config.Config, backend *Backend, deps *ServeDeps, logger *slog.Logger, recorder auth.Recorder) (*auth.Service, error) {
	creds, err := auth.NewCredentialServiceWithLogger(backend.Users, auth.NewArgon2idHasher(), logger)
	if err != nil {
		return nil, err
	}

	sessions, err := auth.NewSessionManagerWithLogger(backend.Sessions, auth.SessionPolicy{
		Lifetime:       cfg.Auth.SessionLifetime,
		RenewThreshold: cfg.Auth.SessionRenewThreshold,
	}, logger)
	if err != nil {
		return nil, err
	}

	var (
		links  *auth.MagicLinkManager
		mailer auth.Mailer
	)
	if cfg.Auth.MagicLinkEnabled {
		links, err = auth.NewMagicLinkManager(backend.Links, cfg.Auth.MagicLinkLifetime)
		if err != nil {
			return nil, err
		}
		mailer, err = deps.MailerFactory(mail.Config{
			Provider:       cfg.Mail.Provider,
			From:           cfg.Mail.From,
			ResendAPIKey:   cfg.Mail.ResendAPIKey,
			ResendEndpoint: cfg.Mail.ResendEndpoint,
		}, logger)
		if err != nil {
			return nil, oops.With("operation", "create mailer").Wrap(err)
		}
	}

	return auth.NewService(creds, sessions, links, mailer, auth.ServiceConfig{
		DisablePassword:  !cfg.Auth.PasswordEnabled,
		DisableMagicLink: !cfg.Auth.MagicLinkEnabled,
		Logger:           logger,
		Recorder:         recorder,
	})
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel is closed or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
