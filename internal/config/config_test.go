package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:     AppConfig{Env: "local", Port: 8080},
		DB:      DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "callsync"},
		Auth:    AuthConfig{JWTSecret: "secret"},
		Webhook: WebhookConfig{SigningKey: "key"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "WEBHOOK_SIGNING_KEY") {
		t.Fatalf("expected signing key to be reported, got %v", err)
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Webhook.ReplayWindow != 300*time.Second {
		t.Fatalf("expected 300s replay window, got %v", c.Webhook.ReplayWindow)
	}
	if c.Webhook.MaxAttachmentBytes != 10<<20 {
		t.Fatalf("expected 10 MiB attachment cap, got %d", c.Webhook.MaxAttachmentBytes)
	}
	if c.Webhook.RoutePrefix != "calls" || c.Ingest.Provider != "ringcentral" {
		t.Fatalf("unexpected defaults: %+v %+v", c.Webhook, c.Ingest)
	}
	if c.Storage.Backend != "local" || c.Storage.LocalRoot == "" {
		t.Fatalf("expected local storage default, got %+v", c.Storage)
	}
	if c.RedisAddr() != "" {
		t.Fatalf("expected redis disabled")
	}
}

func TestValidate_S3RequiresBucket(t *testing.T) {
	c := validLocal()
	c.Storage.Backend = "s3"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for s3 without bucket")
	}
}

func TestValidate_RejectsBadTimezone(t *testing.T) {
	c := validLocal()
	c.Ingest.ReportTimezone = "Mars/Olympus"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8081")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_NAME", "n")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("WEBHOOK_SIGNING_KEY", "k")
	t.Setenv("WEBHOOK_MAX_ATTACHMENT_BYTES", "2048")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6379")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr() != ":8081" {
		t.Fatalf("unexpected addr %q", c.HTTPAddr())
	}
	if c.Webhook.MaxAttachmentBytes != 2048 {
		t.Fatalf("expected attachment override, got %d", c.Webhook.MaxAttachmentBytes)
	}
	if c.RedisAddr() != "cache:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
}

func TestLoadDatabase_IgnoresServiceSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "callsync")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("WEBHOOK_SIGNING_KEY", "")
	t.Setenv("JWT_SECRET", "")

	c, err := LoadDatabase()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode default, got %q", c.DB.SSLMode)
	}
	if !strings.Contains(c.PostgresDSN(), "dbname=callsync") {
		t.Fatalf("unexpected dsn")
	}
}
