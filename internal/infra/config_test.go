package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-role-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("S3_PUBLIC_BASE_URL", "")
	t.Setenv("S3_BUCKET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.AppEnv != "development" || cfg.IsProduction() {
		t.Fatalf("AppEnv = %q, IsProduction = %v", cfg.AppEnv, cfg.IsProduction())
	}
	if cfg.VariantCount != 4 {
		t.Fatalf("VariantCount = %d, want 4", cfg.VariantCount)
	}
	if cfg.StageTimeout != 120*time.Second {
		t.Fatalf("StageTimeout = %v, want 120s", cfg.StageTimeout)
	}
	if cfg.OpenAIVisionModel != "gpt-4o" || cfg.OpenAIExtractModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model defaults: %q / %q", cfg.OpenAIVisionModel, cfg.OpenAIExtractModel)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("CORSOrigins mismatch: %#v", cfg.CORSOrigins)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	cases := []string{"DATABASE_URL", "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY"}
	for _, missing := range cases {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(missing, "")
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected an error when %s is unset", missing)
			}
		})
	}
}

func TestLoadConfigDerivesPublicBaseURLFromBucket(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3_BUCKET", "fotnik-assets")
	t.Setenv("S3_PUBLIC_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "https://fotnik-assets.s3.amazonaws.com"
	if cfg.S3PublicBaseURL != expected {
		t.Fatalf("S3PublicBaseURL = %q, want %q", cfg.S3PublicBaseURL, expected)
	}
}

func TestLoadConfigHonorsExplicitPublicBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3_BUCKET", "fotnik-assets")
	t.Setenv("S3_PUBLIC_BASE_URL", "https://cdn.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.S3PublicBaseURL != "https://cdn.example.com" {
		t.Fatalf("S3PublicBaseURL = %q", cfg.S3PublicBaseURL)
	}
}

func TestLoadConfigParsesLists(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://staging.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://app.example.com", "https://staging.example.com"}
	if len(cfg.CORSOrigins) != len(expected) {
		t.Fatalf("CORSOrigins mismatch: %#v", cfg.CORSOrigins)
	}
	for i := range expected {
		if cfg.CORSOrigins[i] != expected[i] {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], expected[i])
		}
	}
}
