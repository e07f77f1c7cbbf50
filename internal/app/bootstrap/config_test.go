package bootstrap

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:            "mongodb://localhost:27017",
		MongoDatabase:       "stratasite",
		StorageType:         "local",
		CacheTTL:            5 * time.Minute,
		AuditLogAuth:        "all",
		AuditLogAdmin:       "db",
		AuditLogSecurity:    "log",
		SecurityEventBuffer: 1000,
		SessionKey:          "dev-only-change-me-please-0123456789ABCDEF",
		CSRFKey:             "dev-only-csrf-key-please-change-0123456789",
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", dev, func(*AppConfig) {}, false},
		{"unknown storage", dev, func(c *AppConfig) { c.StorageType = "ftp" }, true},
		{"s3 without bucket", dev, func(c *AppConfig) { c.StorageType = "s3" }, true},
		{"unknown audit route", dev, func(c *AppConfig) { c.AuditLogSecurity = "everywhere" }, true},
		{"zero buffer", dev, func(c *AppConfig) { c.SecurityEventBuffer = 0 }, true},
		{"zero cache ttl", dev, func(c *AppConfig) { c.CacheTTL = 0 }, true},
		{"dev keys in prod", prod, func(*AppConfig) {}, true},
		{"real keys in prod", prod, func(c *AppConfig) {
			c.SessionKey = "a-real-session-key-with-enough-entropy-0001"
			c.CSRFKey = "a-real-csrf-key-with-enough-entropy-000002"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.StorageType = "ftp"
	cfg.CacheTTL = 0
	err := ValidateConfig(&config.CoreConfig{Env: "prod"}, cfg, zap.NewNop())
	if err == nil {
		t.Fatal("ValidateConfig() = nil, want errors")
	}
	for _, want := range []string{"storage_type", "cache_ttl", "session_key", "csrf_key"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("ValidateConfig() error %q does not mention %s", err, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example, ,https://b.example ,")
	want := []string{"https://a.example", "https://b.example"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("splitList() mismatch (-want +got):\n%s", diff)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}

func TestCSRFExempt(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/api/contact", true},
		{"/api/export/products", true},
		{"/api", true},
		{"/apiary", false},
		{"/auth/login", false},
		{"/admin/api/news", false},
	}
	for _, tt := range tests {
		if got := csrfExempt(tt.path); got != tt.want {
			t.Errorf("csrfExempt(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestAppConfigURLs(t *testing.T) {
	c := AppConfig{BaseURL: "https://studio.example"}
	if got := c.LoginURL(); got != "https://studio.example/admin/login" {
		t.Errorf("LoginURL() = %q", got)
	}
	if got := c.AdminURL(); got != "https://studio.example/admin" {
		t.Errorf("AdminURL() = %q", got)
	}
}
