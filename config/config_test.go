package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DB_PORT", "STORE", "SESSION_TTL", "ADMIN_CHAT_ID", "CORS_ORIGINS", "DB_HOST", "DB_NAME", "DB_USER", "DB_PASSWORD"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.Store != "postgres" || cfg.DB.Port != 5432 {
		t.Errorf("unexpected db config %+v", cfg.DB)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.Auth.SessionTTL)
	}
	if got := cfg.DB.URL(); got != "postgres://postgres:@localhost:5432/restaurant" {
		t.Errorf("URL() = %q", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "Memory")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ADMIN_CHAT_ID", "-100123")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.Store != "memory" {
		t.Errorf("Store = %q", cfg.DB.Store)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Telegram.AdminChatID != -100123 {
		t.Errorf("AdminChatID = %d", cfg.Telegram.AdminChatID)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORE", "mysql")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown STORE")
	}
	t.Setenv("STORE", "")
	t.Setenv("DB_PORT", "abc")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric DB_PORT")
	}
}
