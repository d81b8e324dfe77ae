package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Artifact backends
const (
	BackendLocal = "local"
	BackendAzure = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	CompareTimeout     time.Duration
	MaxRequestBodySize int64
	MaxImagePixels     int64

	// Artifact storage
	ArtifactBackend     string
	ArtifactDir         string
	ArtifactBaseURL     string
	AzureStorageAccount string
	AzureStorageKey     string
	AzureContainer      string

	// Image URL policy
	AllowedImageHosts []string
	DenyLoopbackURLs  bool

	// Pipeline defaults
	WindowSize   int
	BoxThickness int
	MaxWorkers   int
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
		Host:                getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                getEnvOrDefault("PORT", "8080"),
		RequestTimeout:      parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:   parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		CompareTimeout:      parseDurationOrDefault("COMPARE_TIMEOUT", 20*time.Second),
		MaxRequestBodySize:  parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 20*1024*1024), // 20MB, two uploads
		MaxImagePixels:      parseIntOrDefault("MAX_IMAGE_PIXELS", 40_000_000),
		ArtifactBackend:     strings.ToLower(getEnvOrDefault("ARTIFACT_BACKEND", BackendLocal)),
		ArtifactDir:         getEnvOrDefault("ARTIFACT_DIR", "static"),
		ArtifactBaseURL:     strings.TrimRight(getEnvOrDefault("ARTIFACT_BASE_URL", "/artifacts"), "/"),
		AzureStorageAccount: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:     os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:      getEnvOrDefault("AZURE_CONTAINER", "comparisons"),
		AllowedImageHosts:   parseListOrDefault("ALLOWED_IMAGE_HOSTS"),
		DenyLoopbackURLs:    parseBoolOrDefault("DENY_LOOPBACK_URLS", true),
		WindowSize:          int(parseIntOrDefault("SSIM_WINDOW", 7)),
		BoxThickness:        int(parseIntOrDefault("BOX_THICKNESS", 2)),
		MaxWorkers:          int(parseIntOrDefault("MAX_WORKERS", 0)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be > 0 (got %d)", c.MaxImagePixels)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.CompareTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, compare=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.CompareTimeout)
	}
	if c.WindowSize < 3 || c.WindowSize%2 == 0 {
		return fmt.Errorf("SSIM_WINDOW must be an odd number >= 3 (got %d)", c.WindowSize)
	}
	if c.BoxThickness < 1 {
		return fmt.Errorf("BOX_THICKNESS must be >= 1 (got %d)", c.BoxThickness)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("MAX_WORKERS must be >= 0 (got %d)", c.MaxWorkers)
	}

	switch c.ArtifactBackend {
	case BackendLocal:
		if strings.TrimSpace(c.ArtifactDir) == "" {
			return fmt.Errorf("ARTIFACT_DIR is required for the local backend")
		}
	case BackendAzure:
		if c.AzureStorageAccount == "" || c.AzureStorageKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for the azure backend")
		}
	default:
		return fmt.Errorf("invalid ARTIFACT_BACKEND: %q", c.ArtifactBackend)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// parseListOrDefault splits a comma separated variable, dropping blanks
func parseListOrDefault(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
