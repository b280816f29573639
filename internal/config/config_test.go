package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alex-user-go/pricecheck/internal/config"
	"github.com/alex-user-go/pricecheck/internal/newbook"
	"github.com/alex-user-go/pricecheck/internal/sites"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimal = `
sites:
  - code: lake
    name: Lakeside
    api_username: user
    api_password: pass
    api_key: key
    booking_url: https://lake.example/book
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Env != "local" || cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %s/%s/%s", cfg.Env, cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Upstream.Endpoint != newbook.DefaultEndpoint || cfg.Upstream.TimeoutSeconds != 30 {
		t.Errorf("upstream = %+v", cfg.Upstream)
	}
	if cfg.RateLimit.Backend != config.BackendMemory || cfg.RateLimit.Limit != 15 || cfg.RateLimit.WindowSeconds != 60 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.Store.Backend != config.BackendFile || cfg.Store.Refresh != "@every 5m" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Options != sites.DefaultOptions() {
		t.Errorf("options = %+v", cfg.Options)
	}
	if len(cfg.Sites) != 1 || cfg.Sites[0].PromoCode != sites.DefaultPromoCode {
		t.Errorf("sites = %+v", cfg.Sites)
	}
}

func TestLoad_FileValues(t *testing.T) {
	body := `
env: prod
log:
  format: text
upstream:
  timeout_seconds: 5
options:
  currency_symbol: "€"
  max_adults: 8
  enable_fallback: true
sites:
  - code: lake
    is_primary: true
  - code: forest
    is_primary: true
    show_as_fallback: true
    promo_code: OTA
  - code: ""
    name: skipped
`
	cfg, err := config.Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.UpstreamTimeout().Seconds() != 5 {
		t.Errorf("upstream timeout = %v", cfg.UpstreamTimeout())
	}

	want := sites.DefaultOptions()
	want.CurrencySymbol = "€"
	want.MaxAdults = 8
	want.EnableFallback = true
	if cfg.Options != want {
		t.Errorf("options = %+v, want %+v", cfg.Options, want)
	}

	if len(cfg.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(cfg.Sites))
	}
	if !cfg.Sites[0].IsPrimary || cfg.Sites[1].IsPrimary {
		t.Errorf("primary flags = %v/%v, want true/false", cfg.Sites[0].IsPrimary, cfg.Sites[1].IsPrimary)
	}
	if cfg.Sites[1].PromoCode != "OTA" {
		t.Errorf("promo = %q", cfg.Sites[1].PromoCode)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("NEWBOOK_ENDPOINT", "http://localhost:9001/rest/")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "postgres://localhost/pricecheck")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Addr != ":9090" || cfg.Upstream.Endpoint != "http://localhost:9001/rest/" || cfg.Log.Level != "warn" {
		t.Errorf("overrides not applied: %+v %+v %+v", cfg.Server, cfg.Upstream, cfg.Log)
	}
	if cfg.RateLimit.Backend != config.BackendRedis || cfg.RateLimit.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.Store.Backend != config.BackendPostgres {
		t.Errorf("store backend = %q", cfg.Store.Backend)
	}
	if !cfg.RateLimit.TrustProxyHeaders {
		t.Error("expected proxy headers to be trusted")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "no sites", body: "env: local\n", wantErr: "no sites configured"},
		{name: "invalid yaml", body: "sites: [", wantErr: "parse config"},
		{name: "unknown limiter", body: minimal + "rate_limit:\n  backend: memcached\n", wantErr: "unknown rate_limit.backend"},
		{name: "redis without url", body: minimal + "rate_limit:\n  backend: redis\n", wantErr: "redis_url is required"},
		{name: "postgres without url", body: "store:\n  backend: postgres\n", wantErr: "database_url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
