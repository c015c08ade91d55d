package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shineum/mailgate/internal/config"
	"github.com/shineum/mailgate/internal/provider"
	"github.com/shineum/mailgate/internal/provider/graph"
	"github.com/shineum/mailgate/internal/provider/mailgun"
	"github.com/shineum/mailgate/internal/provider/resend"
	"github.com/shineum/mailgate/internal/provider/ses"
	"github.com/shineum/mailgate/internal/provider/stdout"
)

// selectProvider chooses the email delivery backend based on configuration.
// If PROVIDER is set, it takes precedence. Otherwise the first configured
// backend wins (Graph, SES, Resend, Mailgun), else stdout.
func selectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	autoDetected := false
	if name == "" {
		name = detectProvider(cfg)
		autoDetected = true
	}

	retry := provider.Retry{Attempts: cfg.Retry.Attempts, BaseDelay: cfg.Retry.BaseDelay}

	switch name {
	case config.ProviderGraph:
		slog.Info("using Microsoft Graph provider", "mailbox", cfg.Graph.Mailbox, "auto_detected", autoDetected)
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Mailbox:      cfg.Graph.Mailbox,
			Retry:        retry,
		}), nil

	case config.ProviderSES:
		slog.Info("using AWS SES provider", "region", cfg.SES.Region, "auto_detected", autoDetected)
		p, err := ses.New(ctx, ses.Config{
			Region:           cfg.SES.Region,
			AccessKeyID:      cfg.SES.AccessKeyID,
			SecretAccessKey:  cfg.SES.SecretAccessKey,
			ConfigurationSet: cfg.SES.ConfigurationSet,
			Retry:            retry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.ProviderResend:
		slog.Info("using Resend provider", "auto_detected", autoDetected)
		p, err := resend.New(resend.Config{
			APIKey:  cfg.Resend.APIKey,
			BaseURL: cfg.Resend.BaseURL,
			Retry:   retry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Resend provider: %w", err)
		}
		return p, nil

	case config.ProviderMailgun:
		slog.Info("using Mailgun provider", "domain", cfg.Mailgun.Domain, "auto_detected", autoDetected)
		p, err := mailgun.New(mailgun.Config{
			APIKey:  cfg.Mailgun.APIKey,
			Domain:  cfg.Mailgun.Domain,
			Region:  cfg.Mailgun.Region,
			BaseURL: cfg.Mailgun.BaseURL,
			Retry:   retry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Mailgun provider: %w", err)
		}
		return p, nil

	case config.ProviderStdout:
		if autoDetected {
			slog.Info("no provider configured, using stdout provider")
		} else {
			slog.Info("using stdout provider")
		}
		return stdout.New(cfg.Stdout.PrintHTML), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// detectProvider returns the first backend with complete credentials.
func detectProvider(cfg *config.Config) string {
	switch {
	case cfg.GraphConfigured():
		return config.ProviderGraph
	case cfg.SESConfigured():
		return config.ProviderSES
	case cfg.ResendConfigured():
		return config.ProviderResend
	case cfg.MailgunConfigured():
		return config.ProviderMailgun
	default:
		return config.ProviderStdout
	}
}
