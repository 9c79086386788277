package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("PRIVY_APP_ID", "app-id")
	t.Setenv("PRIVY_APP_SECRET", "app-secret")
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/bantah")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("unexpected session ttl %v", cfg.SessionTTL)
	}
	if !cfg.IsDev() {
		t.Fatal("default env should be development")
	}
}

func TestLoadRequiresBackingServicesInProduction(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL in production")
	}
}

func TestLoadAllowsMissingBackingServicesInDev(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
}

func TestLoadRequiresProviderCredentials(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PRIVY_APP_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing provider credentials")
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_TTL", "tomorrow")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SESSION_TTL")
	}
}

func TestAddress(t *testing.T) {
	if got := (Config{Port: "9090"}).Address(); got != ":9090" {
		t.Fatalf("unexpected address %q", got)
	}
	if got := (Config{Port: ":9090"}).Address(); got != ":9090" {
		t.Fatalf("unexpected address %q", got)
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := Config{AdminIDs: []string{"did:privy:abc", "did:privy:def"}}
	if !cfg.IsAdmin("did:privy:abc") {
		t.Fatal("expected configured id to be admin")
	}
	if cfg.IsAdmin("did:privy:zzz") {
		t.Fatal("unexpected admin")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b ,,c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("unexpected list %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected list %v", got)
		}
	}
}
