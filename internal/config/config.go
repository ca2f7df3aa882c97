package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "NOTEPAD"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabasePath      = "notepad.db"
	defaultLogLevel          = "info"
	defaultClientLogLevel    = "warn"
	defaultRateLimitRPS      = 50
	defaultRateLimitBurst    = 100
	defaultHeartbeatSeconds  = 30
	defaultClientTimeoutSecs = 0
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabasePath       string
	LogLevel           string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	SeedSampleNotes    bool
	HeartbeatInterval  time.Duration
}

// ClientConfig captures runtime configuration for the command-line client.
type ClientConfig struct {
	BackendURL     string
	RequestTimeout time.Duration
	LogLevel       string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("ratelimit.rps", defaultRateLimitRPS)
	configViper.SetDefault("ratelimit.burst", defaultRateLimitBurst)
	configViper.SetDefault("seed.sample_notes", true)
	configViper.SetDefault("realtime.heartbeat_seconds", defaultHeartbeatSeconds)
}

// ApplyClientDefaults configures client defaults and env bindings on the provided viper instance.
func ApplyClientDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("backend.url", "")
	configViper.SetDefault("client.timeout_seconds", defaultClientTimeoutSecs)
	configViper.SetDefault("log.level", defaultClientLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabasePath:       configViper.GetString("database.path"),
		LogLevel:           configViper.GetString("log.level"),
		CORSAllowedOrigins: normalizeOrigins(configViper.GetStringSlice("cors.allowed_origins")),
		RateLimitRPS:       configViper.GetFloat64("ratelimit.rps"),
		RateLimitBurst:     configViper.GetInt("ratelimit.burst"),
		SeedSampleNotes:    configViper.GetBool("seed.sample_notes"),
		HeartbeatInterval:  time.Duration(configViper.GetInt("realtime.heartbeat_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LoadClient parses client configuration from viper.
func LoadClient(configViper *viper.Viper) (ClientConfig, error) {
	cfg := ClientConfig{
		BackendURL:     strings.TrimRight(strings.TrimSpace(configViper.GetString("backend.url")), "/"),
		RequestTimeout: time.Duration(configViper.GetInt("client.timeout_seconds")) * time.Second,
		LogLevel:       configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return ClientConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("cors.allowed_origins must list at least one origin")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("ratelimit.burst must be positive when ratelimit.rps is set")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("realtime.heartbeat_seconds must be positive")
	}
	return nil
}

func (c ClientConfig) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend.url is required")
	}
	parsed, err := url.Parse(c.BackendURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.url must be an absolute URL: %q", c.BackendURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("client.timeout_seconds must not be negative")
	}
	return nil
}

func normalizeOrigins(raw []string) []string {
	origins := make([]string, 0, len(raw))
	for _, entry := range raw {
		// env values arrive as a single comma separated string
		for _, origin := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}
	return origins
}
