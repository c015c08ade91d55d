// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the gateway.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	// defaultMaxBodySize is 25 MB in bytes.
	defaultMaxBodySize = 26214400
	// defaultMaxFormMemory is 8 MB in bytes.
	defaultMaxFormMemory = 8388608
	// defaultMaxAttachmentSize is 10 MB in bytes.
	defaultMaxAttachmentSize = 10485760
	defaultMaxAttachments    = 5
	defaultDispatchTimeout   = 30 * time.Second
	defaultRetryDelay        = time.Second
)

// Provider names.
const (
	ProviderSES     = "ses"
	ProviderResend  = "resend"
	ProviderMailgun = "mailgun"
	ProviderGraph   = "graph"
	ProviderStdout  = "stdout"
)

// Authorization modes.
const (
	AuthHive   = "hive"
	AuthStatic = "static"
	AuthNone   = "none"
)

// DefaultVerifiedDomains are the sender domains the legacy API accepts
// unless configured otherwise.
var DefaultVerifiedDomains = []string{"metaspexet.se", "datasektionen.se", "ddagen.se"}

// Config holds the complete application configuration.
type Config struct {
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	Provider string        `yaml:"provider"`
	Retry    RetryConfig   `yaml:"retry"`
	SES      SESConfig     `yaml:"ses"`
	Resend   ResendConfig  `yaml:"resend"`
	Mailgun  MailgunConfig `yaml:"mailgun"`
	Graph    GraphConfig   `yaml:"graph"`
	Stdout   StdoutConfig  `yaml:"stdout"`
	Mail     MailConfig    `yaml:"mail"`
	TLS      TLSConfig     `yaml:"tls"`
	Logging  LoggingConfig `yaml:"logging"`
}

// HTTPConfig holds HTTP server configuration. MaxFormMemory is how much of a
// multipart body is held in memory before spilling to temporary files.
type HTTPConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	MaxBodySize     int64         `yaml:"max_body_size"`
	MaxFormMemory   int64         `yaml:"max_form_memory"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Addr returns the listen address.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig selects how API keys are checked.
type AuthConfig struct {
	// Mode is hive, static or none. Empty picks hive when HiveURL is set,
	// static when Keys are set.
	Mode       string   `yaml:"mode"`
	HiveURL    string   `yaml:"hive_url"`
	HiveSecret string   `yaml:"hive_secret"`
	Keys       []string `yaml:"keys"`
}

// RetryConfig controls provider-level retries. Zero attempts disables them.
type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKeyID      string `yaml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// ResendConfig holds Resend configuration.
type ResendConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// MailgunConfig holds Mailgun configuration.
type MailgunConfig struct {
	APIKey  string `yaml:"api_key"`
	Domain  string `yaml:"domain"`
	Region  string `yaml:"region"`
	BaseURL string `yaml:"base_url"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Mailbox      string `yaml:"mailbox"`
}

// StdoutConfig holds development provider configuration.
type StdoutConfig struct {
	PrintHTML bool `yaml:"print_html"`
}

// MailConfig holds message pipeline limits.
type MailConfig struct {
	VerifiedDomains   []string `yaml:"verified_domains"`
	MaxAttachments    int      `yaml:"max_attachments"`
	MaxAttachmentSize int64    `yaml:"max_attachment_size"`
	// TemplatesDir replaces the bundled skeletons when set.
	TemplatesDir string `yaml:"templates_dir"`
}

// TLSConfig holds HTTPS configuration.
type TLSConfig struct {
	Enabled  bool     `yaml:"enabled"`
	CertFile string   `yaml:"cert_file"`
	KeyFile  string   `yaml:"key_file"`
	Hosts    []string `yaml:"hosts"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level             string `yaml:"level"`
	SentryDSN         string `yaml:"sentry_dsn"`
	SentryEnvironment string `yaml:"sentry_environment"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:            "0.0.0.0",
			Port:            "8000",
			MaxBodySize:     defaultMaxBodySize,
			MaxFormMemory:   defaultMaxFormMemory,
			DispatchTimeout: defaultDispatchTimeout,
		},
		Retry: RetryConfig{BaseDelay: defaultRetryDelay},
		Mail: MailConfig{
			VerifiedDomains:   slices.Clone(DefaultVerifiedDomains),
			MaxAttachments:    defaultMaxAttachments,
			MaxAttachmentSize: defaultMaxAttachmentSize,
		},
		Logging: LoggingConfig{
			Level:             "info",
			SentryEnvironment: "production",
		},
	}
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile loads configuration from a YAML file merged over the
// defaults, then overrides with environment variables. Returns an error if
// the file does not exist.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := Default()
	if err := mergo.Merge(&cfg, file, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AuthMode returns the effective authorization mode.
func (c *Config) AuthMode() string {
	if c.Auth.Mode != "" {
		return c.Auth.Mode
	}
	switch {
	case c.Auth.HiveURL != "":
		return AuthHive
	case len(c.Auth.Keys) > 0:
		return AuthStatic
	default:
		return ""
	}
}

// SESConfigured returns true if an SES region is set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// ResendConfigured returns true if a Resend API key is set.
func (c *Config) ResendConfigured() bool {
	return c.Resend.APIKey != ""
}

// MailgunConfigured returns true if Mailgun credentials and domain are set.
func (c *Config) MailgunConfigured() bool {
	return c.Mailgun.APIKey != "" && c.Mailgun.Domain != ""
}

// GraphConfigured returns true if all three Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != ""
}

// Validate reports configuration that cannot be started with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.ParseUint(c.HTTP.Port, 10, 16); err != nil {
		errs = append(errs, fmt.Errorf("invalid port %q", c.HTTP.Port))
	}

	switch c.AuthMode() {
	case AuthHive:
		if c.Auth.HiveURL == "" || c.Auth.HiveSecret == "" {
			errs = append(errs, errors.New("hive authorization requires HIVE_URL and HIVE_SECRET"))
		}
	case AuthStatic:
		if len(c.Auth.Keys) == 0 {
			errs = append(errs, errors.New("static authorization requires API_KEYS"))
		}
	case AuthNone:
	case "":
		errs = append(errs, errors.New("no authorization configured: set HIVE_URL, API_KEYS or AUTH_MODE=none"))
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q", c.Auth.Mode))
	}

	switch c.Provider {
	case "", ProviderStdout:
	case ProviderSES:
		if !c.SESConfigured() {
			errs = append(errs, errors.New("SES provider selected but SES_REGION is required"))
		}
	case ProviderResend:
		if !c.ResendConfigured() {
			errs = append(errs, errors.New("resend provider selected but RESEND_API_KEY is required"))
		}
	case ProviderMailgun:
		if !c.MailgunConfigured() {
			errs = append(errs, errors.New("mailgun provider selected but MAILGUN_API_KEY and MAILGUN_DOMAIN are required"))
		}
	case ProviderGraph:
		if !c.GraphConfigured() {
			errs = append(errs, errors.New("graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	if c.Retry.Attempts < 0 {
		errs = append(errs, errors.New("retry attempts must not be negative"))
	}
	if c.Mail.MaxAttachments <= 0 {
		errs = append(errs, errors.New("max attachments must be positive"))
	}
	if c.Mail.MaxAttachmentSize <= 0 {
		errs = append(errs, errors.New("max attachment size must be positive"))
	}
	if c.HTTP.MaxBodySize <= 0 {
		errs = append(errs, errors.New("max body size must be positive"))
	}
	if c.HTTP.MaxFormMemory <= 0 {
		errs = append(errs, errors.New("max form memory must be positive"))
	}
	if len(c.Mail.VerifiedDomains) == 0 {
		errs = append(errs, errors.New("verified domains must not be empty"))
	}

	return errors.Join(errs...)
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	e := envReader{}

	e.str("HOST_ADDRESS", &c.HTTP.Host)
	e.str("PORT", &c.HTTP.Port)
	e.int64("MAX_BODY_SIZE", &c.HTTP.MaxBodySize)
	e.int64("MAX_FORM_MEMORY", &c.HTTP.MaxFormMemory)
	e.duration("DISPATCH_TIMEOUT", &c.HTTP.DispatchTimeout)
	e.list("CORS_ALLOWED_ORIGINS", &c.HTTP.AllowedOrigins)

	e.str("AUTH_MODE", &c.Auth.Mode)
	e.str("HIVE_URL", &c.Auth.HiveURL)
	e.str("HIVE_SECRET", &c.Auth.HiveSecret)
	e.list("API_KEYS", &c.Auth.Keys)

	e.str("PROVIDER", &c.Provider)
	e.int("PROVIDER_RETRIES", &c.Retry.Attempts)
	e.duration("PROVIDER_RETRY_DELAY", &c.Retry.BaseDelay)

	e.str("AWS_REGION", &c.SES.Region)
	e.str("SES_REGION", &c.SES.Region)
	e.str("SES_ACCESS_KEY_ID", &c.SES.AccessKeyID)
	e.str("SES_SECRET_ACCESS_KEY", &c.SES.SecretAccessKey)
	e.str("SES_CONFIGURATION_SET", &c.SES.ConfigurationSet)

	e.str("RESEND_API_KEY", &c.Resend.APIKey)
	e.str("RESEND_BASE_URL", &c.Resend.BaseURL)

	e.str("MAILGUN_API_KEY", &c.Mailgun.APIKey)
	e.str("MAILGUN_DOMAIN", &c.Mailgun.Domain)
	e.str("MAILGUN_REGION", &c.Mailgun.Region)
	e.str("MAILGUN_BASE_URL", &c.Mailgun.BaseURL)

	e.str("GRAPH_TENANT_ID", &c.Graph.TenantID)
	e.str("GRAPH_CLIENT_ID", &c.Graph.ClientID)
	e.str("GRAPH_CLIENT_SECRET", &c.Graph.ClientSecret)
	e.str("GRAPH_MAILBOX", &c.Graph.Mailbox)

	e.bool("STDOUT_PRINT_HTML", &c.Stdout.PrintHTML)

	e.list("VERIFIED_DOMAINS", &c.Mail.VerifiedDomains)
	e.int("MAX_ATTACHMENTS", &c.Mail.MaxAttachments)
	e.int64("MAX_ATTACHMENT_SIZE", &c.Mail.MaxAttachmentSize)
	e.str("TEMPLATES_DIR", &c.Mail.TemplatesDir)

	e.bool("TLS_ENABLED", &c.TLS.Enabled)
	e.str("TLS_CERT_FILE", &c.TLS.CertFile)
	e.str("TLS_KEY_FILE", &c.TLS.KeyFile)
	e.list("TLS_HOSTS", &c.TLS.Hosts)

	e.str("LOG_LEVEL", &c.Logging.Level)
	e.str("SENTRY_DSN", &c.Logging.SentryDSN)
	e.str("SENTRY_ENVIRONMENT", &c.Logging.SentryEnvironment)

	c.Provider = strings.ToLower(c.Provider)
	c.Auth.Mode = strings.ToLower(c.Auth.Mode)
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	return errors.Join(e.errs...)
}

// envReader copies set environment variables into config fields and
// collects parse errors.
type envReader struct {
	errs []error
}

func (e *envReader) str(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func (e *envReader) int(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) int64(name string, dst *int64) {
	if v := os.Getenv(name); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) bool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = d
	}
}
