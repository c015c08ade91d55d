package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailgate/internal/auth"
	"github.com/shineum/mailgate/internal/config"
)

func TestDetectProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{name: "nothing configured", cfg: config.Config{}, want: config.ProviderStdout},
		{name: "graph wins over ses", cfg: config.Config{
			Graph: config.GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"},
			SES:   config.SESConfig{Region: "eu-north-1"},
		}, want: config.ProviderGraph},
		{name: "ses", cfg: config.Config{SES: config.SESConfig{Region: "eu-north-1"}}, want: config.ProviderSES},
		{name: "resend", cfg: config.Config{Resend: config.ResendConfig{APIKey: "re_1"}}, want: config.ProviderResend},
		{name: "mailgun", cfg: config.Config{Mailgun: config.MailgunConfig{APIKey: "k", Domain: "d"}}, want: config.ProviderMailgun},
		{name: "incomplete mailgun", cfg: config.Config{Mailgun: config.MailgunConfig{APIKey: "k"}}, want: config.ProviderStdout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectProvider(&tt.cfg))
		})
	}
}

func TestSelectProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
		wantErr  bool
	}{
		{name: "auto stdout", cfg: config.Config{}, wantName: "stdout"},
		{name: "explicit stdout despite resend", cfg: config.Config{
			Provider: config.ProviderStdout,
			Resend:   config.ResendConfig{APIKey: "re_1"},
		}, wantName: "stdout"},
		{name: "resend", cfg: config.Config{
			Provider: config.ProviderResend,
			Resend:   config.ResendConfig{APIKey: "re_1"},
		}, wantName: "resend"},
		{name: "mailgun", cfg: config.Config{
			Provider: config.ProviderMailgun,
			Mailgun:  config.MailgunConfig{APIKey: "k", Domain: "mg.example"},
		}, wantName: "mailgun"},
		{name: "graph", cfg: config.Config{
			Graph: config.GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"},
		}, wantName: "msgraph"},
		{name: "mailgun without domain", cfg: config.Config{Provider: config.ProviderMailgun}, wantErr: true},
		{name: "unknown", cfg: config.Config{Provider: "sendgrid"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := selectProvider(context.Background(), &tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestSelectAuthorizer(t *testing.T) {
	t.Parallel()

	hive, err := selectAuthorizer(&config.Config{Auth: config.AuthConfig{HiveURL: "https://hive", HiveSecret: "s"}})
	require.NoError(t, err)
	assert.IsType(t, &auth.Hive{}, hive)

	static, err := selectAuthorizer(&config.Config{Auth: config.AuthConfig{Keys: []string{"k"}}})
	require.NoError(t, err)
	ok, err := static.Authorize(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)

	none, err := selectAuthorizer(&config.Config{Auth: config.AuthConfig{Mode: config.AuthNone}})
	require.NoError(t, err)
	assert.IsType(t, auth.AllowAll{}, none)

	_, err = selectAuthorizer(&config.Config{})
	assert.Error(t, err)
}

func TestBuildNormalizer(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	n, err := buildNormalizer(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, n)

	cfg.Mail.TemplatesDir = t.TempDir()
	_, err = buildNormalizer(&cfg)
	assert.Error(t, err, "empty templates dir has no skeletons")
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := render("# Hello\n\nSome *text*", "none", false, false)
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Hello</h1>")
	assert.Contains(t, out, "<em>text</em>")

	wrapped, err := render("body", "default", false, false)
	require.NoError(t, err)
	assert.Contains(t, wrapped, "body")
	assert.NotEqual(t, "<p>body</p>\n", wrapped)

	verbatim, err := render("<div class=\"x\">raw</div>", "none", true, false)
	require.NoError(t, err)
	assert.Equal(t, "<div class=\"x\">raw</div>", verbatim)

	_, err = render("body", "fancy", false, false)
	assert.Error(t, err)

	_, err = render("   ", "none", false, false)
	assert.Error(t, err)
}
