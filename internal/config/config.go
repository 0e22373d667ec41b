package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Narrative NarrativeConfig `toml:"narrative"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path     string `toml:"path"`
	LogLevel string `toml:"log_level"` // silent, error, warn, info
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	Issuer    string   `toml:"issuer"`
	Audience  string   `toml:"audience"`
	TokenTTL  Duration `toml:"token_ttl"`
}

// NarrativeConfig selects and tunes the daily-summary text generator
type NarrativeConfig struct {
	Provider  string   `toml:"provider"` // template or http
	Endpoint  string   `toml:"endpoint"`
	APIKey    string   `toml:"api_key"`
	Model     string   `toml:"model"`
	Timeout   Duration `toml:"timeout"`
	RateLimit float64  `toml:"rate_limit"` // requests per second
	RateBurst int      `toml:"rate_burst"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// Duration is a time.Duration that reads from TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8008,
			ReadTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
		},
		Database: DatabaseConfig{
			Path:     "time-tracking.db",
			LogLevel: "warn",
		},
		Auth: AuthConfig{
			JWTSecret: "development-insecure-secret-change-me",
			Issuer:    "time-tracking-api",
			Audience:  "time-tracking-clients",
			TokenTTL:  Duration{24 * time.Hour},
		},
		Narrative: NarrativeConfig{
			Provider:  "template",
			Model:     "meta-llama/Llama-3.1-8B-Instruct",
			Timeout:   Duration{15 * time.Second},
			RateLimit: 1,
			RateBurst: 2,
			CacheTTL:  Duration{10 * time.Minute},
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults when
// the file does not exist. Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := getEnv("PORT", ""); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Audience = getEnv("JWT_AUDIENCE", cfg.Auth.Audience)
	cfg.Narrative.Provider = getEnv("NARRATIVE_PROVIDER", cfg.Narrative.Provider)
	cfg.Narrative.Endpoint = getEnv("NARRATIVE_ENDPOINT", cfg.Narrative.Endpoint)
	cfg.Narrative.APIKey = getEnv("NARRATIVE_API_KEY", cfg.Narrative.APIKey)
	cfg.Narrative.Model = getEnv("NARRATIVE_MODEL", cfg.Narrative.Model)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the config file location, honouring TRACKER_CONFIG.
func DefaultConfigPath() string {
	if v := os.Getenv("TRACKER_CONFIG"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "time-tracking-api", "config.toml")
}
