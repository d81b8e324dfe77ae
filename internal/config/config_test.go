package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"HOST", "PORT", "REQUEST_TIMEOUT", "COMPARE_TIMEOUT", "ARTIFACT_BACKEND",
		"ARTIFACT_DIR", "ARTIFACT_BASE_URL", "SSIM_WINDOW", "BOX_THICKNESS", "MAX_WORKERS", "MAX_IMAGE_PIXELS",
		"ALLOWED_IMAGE_HOSTS", "DENY_LOOPBACK_URLS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected address 0.0.0.0:8080, got %s", cfg.ServerAddress())
	}
	if cfg.CompareTimeout != 20*time.Second {
		t.Errorf("Expected compare timeout 20s, got %s", cfg.CompareTimeout)
	}
	if cfg.ArtifactBackend != BackendLocal || cfg.ArtifactDir != "static" {
		t.Errorf("Expected local backend in static, got %s/%s", cfg.ArtifactBackend, cfg.ArtifactDir)
	}
	if cfg.ArtifactBaseURL != "/artifacts" {
		t.Errorf("Expected base URL /artifacts, got %s", cfg.ArtifactBaseURL)
	}
	if cfg.WindowSize != 7 || cfg.BoxThickness != 2 || cfg.MaxWorkers != 0 {
		t.Errorf("Unexpected pipeline defaults: window=%d thickness=%d workers=%d",
			cfg.WindowSize, cfg.BoxThickness, cfg.MaxWorkers)
	}
	if len(cfg.AllowedImageHosts) != 0 || !cfg.DenyLoopbackURLs {
		t.Errorf("Expected open host list with loopback denied, got %v/%v", cfg.AllowedImageHosts, cfg.DenyLoopbackURLs)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", " 9090 ")
	t.Setenv("COMPARE_TIMEOUT", "45s")
	t.Setenv("SSIM_WINDOW", "11")
	t.Setenv("ARTIFACT_BASE_URL", "https://cdn.example.com/out/")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_IMAGE_HOSTS", " images.example.com, ,cdn.example.com ")
	t.Setenv("DENY_LOOPBACK_URLS", "false")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:9090" {
		t.Errorf("Expected trimmed port, got %s", cfg.ServerAddress())
	}
	if cfg.CompareTimeout != 45*time.Second {
		t.Errorf("Expected 45s, got %s", cfg.CompareTimeout)
	}
	if cfg.WindowSize != 11 {
		t.Errorf("Expected window 11, got %d", cfg.WindowSize)
	}
	if cfg.ArtifactBaseURL != "https://cdn.example.com/out" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.ArtifactBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected unparsable duration to fall back to 30s, got %s", cfg.RequestTimeout)
	}
	if len(cfg.AllowedImageHosts) != 2 || cfg.AllowedImageHosts[1] != "cdn.example.com" {
		t.Errorf("Expected two trimmed hosts, got %q", cfg.AllowedImageHosts)
	}
	if cfg.DenyLoopbackURLs {
		t.Error("Expected loopback denial to be disabled")
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "PORT", "70000"},
		{"non numeric port", "PORT", "http"},
		{"even window", "SSIM_WINDOW", "8"},
		{"tiny window", "SSIM_WINDOW", "1"},
		{"zero thickness", "BOX_THICKNESS", "0"},
		{"negative body size", "MAX_REQUEST_BODY_SIZE", "-1"},
		{"unknown backend", "ARTIFACT_BACKEND", "s3"},
		{"azure without credentials", "ARTIFACT_BACKEND", "azure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AZURE_STORAGE_ACCOUNT", "")
			t.Setenv("AZURE_STORAGE_KEY", "")
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnv_AzureBackend(t *testing.T) {
	t.Setenv("ARTIFACT_BACKEND", "AZURE")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "tamperstore")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.ArtifactBackend != BackendAzure || cfg.AzureContainer != "comparisons" {
		t.Errorf("Expected azure backend with default container, got %s/%s", cfg.ArtifactBackend, cfg.AzureContainer)
	}
}
