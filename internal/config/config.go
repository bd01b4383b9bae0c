package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL       string
	HTTPListenAddr    string
	MetricsListenAddr string
	TemporalAddress   string
	LogLevel          string
	ServiceName       string
	Environment       string

	// ProfileTables is the ordered list of user-profile tables. The first
	// entry is the primary location; later entries are legacy locations kept
	// from a prior schema migration and tried only on not-found.
	ProfileTables []string

	GooglePlayPackageName         string
	GooglePlayServiceAccountEmail string
	GooglePlayPrivateKey          string
	AppStoreSharedSecret          string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsListenAddr: getEnv("METRICS_LISTEN_ADDR", ":9090"),
		TemporalAddress:   getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ServiceName:       getEnv("SERVICE_NAME", ""),
		Environment:       getEnv("ENVIRONMENT", "development"),

		ProfileTables: splitList(getEnv("PROFILE_TABLES", "users,app_users")),

		GooglePlayPackageName:         getEnv("GOOGLE_PLAY_PACKAGE_NAME", "com.familyhub.app"),
		GooglePlayServiceAccountEmail: getEnv("GOOGLE_PLAY_SERVICE_ACCOUNT_EMAIL", ""),
		GooglePlayPrivateKey:          normalizePrivateKey(getEnv("GOOGLE_PLAY_PRIVATE_KEY", "")),
		AppStoreSharedSecret:          getEnv("APP_STORE_SHARED_SECRET", ""),
	}

	return cfg, nil
}

// Validate checks the fields required by the given service binary.
func (c *Config) Validate(service string) error {
	if c.ServiceName == "" {
		c.ServiceName = service
	}

	switch service {
	case "subscription-api", "sweep-worker":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s: DATABASE_URL is required", service)
		}
	default:
		return fmt.Errorf("unknown service %q", service)
	}

	if len(c.ProfileTables) == 0 {
		return fmt.Errorf("%s: PROFILE_TABLES must list at least one table", service)
	}

	return nil
}

// IsDevelopment reports whether the service runs in a local/dev environment,
// where verifier failures fall back to mock results instead of propagating.
func (c *Config) IsDevelopment() bool {
	switch c.Environment {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizePrivateKey restores real newlines in a PEM key passed through an
// environment variable with escaped "\n" sequences.
func normalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}
