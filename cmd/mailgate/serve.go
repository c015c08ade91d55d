package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shineum/mailgate/internal/address"
	"github.com/shineum/mailgate/internal/attachment"
	"github.com/shineum/mailgate/internal/auth"
	"github.com/shineum/mailgate/internal/config"
	"github.com/shineum/mailgate/internal/content"
	"github.com/shineum/mailgate/internal/dispatch"
	"github.com/shineum/mailgate/internal/layout"
	"github.com/shineum/mailgate/internal/logger"
	"github.com/shineum/mailgate/internal/normalize"
	"github.com/shineum/mailgate/internal/server"
	mailtls "github.com/shineum/mailgate/internal/tls"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		log, flush := logger.New(logger.Config{
			Level:             cfg.Logging.Level,
			SentryDSN:         cfg.Logging.SentryDSN,
			SentryEnvironment: cfg.Logging.SentryEnvironment,
		}, logger.RequestID)
		defer flush()
		slog.SetDefault(log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return serve(ctx, cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	tlsCfg := mailtls.Config{
		Enabled:  cfg.TLS.Enabled,
		CertFile: cfg.TLS.CertFile,
		KeyFile:  cfg.TLS.KeyFile,
		Hosts:    cfg.TLS.Hosts,
	}
	tlsConfig, err := mailtls.LoadOrGenerate(tlsCfg)
	if err != nil {
		return fmt.Errorf("failed to setup TLS: %w", err)
	}

	prov, err := selectProvider(ctx, cfg)
	if err != nil {
		return err
	}

	authorizer, err := selectAuthorizer(cfg)
	if err != nil {
		return err
	}

	normalizer, err := buildNormalizer(cfg)
	if err != nil {
		return err
	}

	gateway := dispatch.New(authorizer, normalizer, prov,
		dispatch.WithTimeout(cfg.HTTP.DispatchTimeout),
		dispatch.WithLogger(log),
	)

	srv := server.New(server.Config{
		ListenAddr:     cfg.HTTP.Addr(),
		MaxBodyBytes:   cfg.HTTP.MaxBodySize,
		MaxMemory:      cfg.HTTP.MaxFormMemory,
		TLSConfig:      tlsConfig,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, gateway, log)

	log.Info("starting mailgate",
		"listen", cfg.HTTP.Addr(),
		"provider", prov.Name(),
		"auth_mode", cfg.AuthMode(),
		"tls_mode", tlsCfg.Mode(),
		"retries", cfg.Retry.Attempts,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Info("received signal, initiating shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("mailgate stopped")
	return nil
}

// buildNormalizer wires the request pipeline: sender policy, content
// resolver, layouts and attachment limits.
func buildNormalizer(cfg *config.Config) (*normalize.Normalizer, error) {
	fsys := layout.Bundled()
	if cfg.Mail.TemplatesDir != "" {
		fsys = os.DirFS(cfg.Mail.TemplatesDir)
	}
	layouts, err := layout.Load(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return normalize.New(
		address.NewSenderPolicy(cfg.Mail.VerifiedDomains),
		content.NewResolver(),
		layouts,
		attachment.NewValidator(cfg.Mail.MaxAttachments, cfg.Mail.MaxAttachmentSize),
	), nil
}

// selectAuthorizer builds the API key check for the configured mode.
func selectAuthorizer(cfg *config.Config) (auth.Authorizer, error) {
	switch cfg.AuthMode() {
	case config.AuthHive:
		slog.Info("using hive authorization", "url", cfg.Auth.HiveURL)
		return auth.NewHive(cfg.Auth.HiveURL, cfg.Auth.HiveSecret), nil
	case config.AuthStatic:
		slog.Info("using static API keys", "count", len(cfg.Auth.Keys))
		return auth.NewStatic(cfg.Auth.Keys...), nil
	case config.AuthNone:
		slog.Warn("authorization disabled, any non-empty API key is accepted")
		return auth.AllowAll{}, nil
	default:
		return nil, fmt.Errorf("no authorization configured")
	}
}
