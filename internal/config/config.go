package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule table source kinds accepted by RULE_TABLE_SOURCE.
const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
	SourceHTTP    = "http"
	SourceAzure   = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	RuleTableTimeout   time.Duration
	MaxRequestBodySize int64
	MaxImagePixels     int64

	// GridDensity is the number of sample points per image axis.
	GridDensity   int
	DefaultDomain string

	RuleTableSource   string
	RuleTableLocation string
	AzureAccountName  string
	AzureAccountKey   string

	// RuleTableAllowedHosts restricts remote table locations when non-empty.
	RuleTableAllowedHosts []string

	// RandomSeed pins label choice and jitter for every request when set.
	RandomSeed *uint64

	CORSAllowedOrigin string
	LogLevel          string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:                  getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                  getEnvOrDefault("PORT", "10000"),
		RequestTimeout:        parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		RuleTableTimeout:      parseDurationOrDefault("RULE_TABLE_TIMEOUT", 15*time.Second),
		MaxRequestBodySize:    parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxImagePixels:        parseIntOrDefault("MAX_IMAGE_PIXELS", 40_000_000),
		GridDensity:           int(parseIntOrDefault("GRID_DENSITY", 10)),
		DefaultDomain:         getEnvOrDefault("DEFAULT_DOMAIN", "biological"),
		RuleTableSource:       strings.ToLower(getEnvOrDefault("RULE_TABLE_SOURCE", SourceBuiltin)),
		RuleTableLocation:     strings.TrimSpace(os.Getenv("RULE_TABLE_LOCATION")),
		AzureAccountName:      os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:       os.Getenv("AZURE_STORAGE_KEY"),
		RuleTableAllowedHosts: parseListOrNil("RULE_TABLE_ALLOWED_HOSTS"),
		CORSAllowedOrigin:     getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*"),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if raw := strings.TrimSpace(os.Getenv("RANDOM_SEED")); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RANDOM_SEED: %q", raw)
		}
		cfg.RandomSeed = &seed
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.MaxImagePixels <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_PIXELS must be > 0 (got %d)", cfg.MaxImagePixels)
	}
	if cfg.RequestTimeout <= 0 || cfg.RuleTableTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, rule_table=%s)",
			cfg.RequestTimeout, cfg.RuleTableTimeout)
	}
	if cfg.GridDensity < 1 || cfg.GridDensity > 256 {
		return nil, fmt.Errorf("GRID_DENSITY must be in [1,256] (got %d)", cfg.GridDensity)
	}
	switch cfg.RuleTableSource {
	case SourceBuiltin:
	case SourceFile, SourceHTTP, SourceAzure:
		if cfg.RuleTableLocation == "" {
			return nil, fmt.Errorf("RULE_TABLE_LOCATION is required for RULE_TABLE_SOURCE=%s", cfg.RuleTableSource)
		}
	default:
		return nil, fmt.Errorf("invalid RULE_TABLE_SOURCE: %q", cfg.RuleTableSource)
	}
	if cfg.RuleTableSource == SourceAzure && (cfg.AzureAccountName == "" || cfg.AzureAccountKey == "") {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for azure rule tables")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseListOrNil(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			items = append(items, item)
		}
	}
	return items
}
