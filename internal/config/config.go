package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("simple-auth version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server    ServerConfig              `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig             `mapstructure:"logging" yaml:"logging"`
	Auth      AuthConfig                `mapstructure:"auth" yaml:"auth"`
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Metrics   MetricsConfig             `mapstructure:"metrics" yaml:"metrics"`

	// Fake replaces provider resolution with canned results. Development only.
	Fake bool `mapstructure:"fake" yaml:"fake"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	Host            string        `mapstructure:"host" yaml:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trust_proxy" yaml:"trust_proxy"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level" yaml:"level"`
	Format            string `mapstructure:"format" yaml:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace" yaml:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path" yaml:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file" yaml:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console" yaml:"disable_console"`
}

type AuthConfig struct {
	// BaseURL is the externally visible origin used to build the callback URL.
	// When empty the origin of the incoming request is used.
	BaseURL            string          `mapstructure:"base_url" yaml:"base_url"`
	StateSecret        string          `mapstructure:"state_secret" yaml:"state_secret"`
	StateTTL           time.Duration   `mapstructure:"state_ttl" yaml:"state_ttl"`
	SecureCookies      bool            `mapstructure:"secure_cookies" yaml:"secure_cookies"`
	AllowedReturnHosts []string        `mapstructure:"allowed_return_hosts" yaml:"allowed_return_hosts"`
	UseReferer         bool            `mapstructure:"use_referer" yaml:"use_referer"`
	AllowOrigins       []string        `mapstructure:"allow_origins" yaml:"allow_origins"`
	RateLimit          RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int `mapstructure:"burst" yaml:"burst"`
}

// ProviderType names the implementation backing a configured provider.
type ProviderType string

const (
	ProviderTypeGoogle ProviderType = "google"
	ProviderTypeGitHub ProviderType = "github"
	ProviderTypeOAuth2 ProviderType = "oauth2"
	ProviderTypeOIDC   ProviderType = "oidc"
	ProviderTypeFake   ProviderType = "fake"
)

type ProviderConfig struct {
	Type         ProviderType `mapstructure:"type" yaml:"type"`
	ClientID     string       `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string       `mapstructure:"client_secret" yaml:"-"`
	Scopes       []string     `mapstructure:"scopes" yaml:"scopes,omitempty"`
	Issuer       string       `mapstructure:"issuer" yaml:"issuer,omitempty"`
	AuthURL      string       `mapstructure:"auth_url" yaml:"auth_url,omitempty"`
	TokenURL     string       `mapstructure:"token_url" yaml:"token_url,omitempty"`
	UserInfoURL  string       `mapstructure:"userinfo_url" yaml:"userinfo_url,omitempty"`
	// AccessURL is only used by the fake provider.
	AccessURL string `mapstructure:"access_url" yaml:"access_url,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ErrNoProviders is returned by Validate when nothing can be authenticated against.
var ErrNoProviders = errors.New("no providers configured")

// BindFlags registers the command line flags understood by Load
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the config file")
	fs.String("host", "", "Address to listen on")
	fs.Int("port", 0, "Port to listen on")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
	fs.Bool("fake", false, "Serve canned authentication results instead of contacting providers")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("auth.state_ttl", "10m")
	v.SetDefault("auth.rate_limit.requests_per_minute", 60)
	v.SetDefault("auth.rate_limit.burst", 20)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads ./config.yaml (or /etc/simple-auth/config.yaml, or --config),
// environment variables prefixed with SIMPLE_AUTH_ and the given flags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIMPLE_AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/simple-auth")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Merge /config/config.yaml (overrides overlapping keys)
	if _, err := os.Stat("/config/config.yaml"); err == nil {
		v.SetConfigFile("/config/config.yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge /config/config.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Flags use dashed names and do not map onto nested keys by themselves
	if host := v.GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port := v.GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if level := v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if v.GetBool("fake") {
		cfg.Fake = true
	}

	return &cfg, nil
}

// Validate checks the parts of the configuration the server cannot start without
func (c *Config) Validate() error {
	if c.Fake {
		return nil
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("%w, add a providers section or pass --fake", ErrNoProviders)
	}
	for _, name := range c.ProviderNames() {
		p := c.Providers[name]
		switch p.Type {
		case ProviderTypeFake:
			continue
		case ProviderTypeGoogle, ProviderTypeGitHub:
		case ProviderTypeOIDC:
			if p.Issuer == "" {
				return fmt.Errorf("providers.%s.issuer is required for oidc providers", name)
			}
		case ProviderTypeOAuth2:
			if p.AuthURL == "" || p.TokenURL == "" || p.UserInfoURL == "" {
				return fmt.Errorf("providers.%s requires auth_url, token_url and userinfo_url", name)
			}
		default:
			return fmt.Errorf("providers.%s: unsupported provider type %q", name, p.Type)
		}
		if p.ClientID == "" {
			return fmt.Errorf("providers.%s.client_id is required", name)
		}
	}
	return nil
}

// ProviderNames returns the configured provider names in a stable order
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
