package sites_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/alex-user-go/pricecheck/internal/sites"
)

func TestSanitize(t *testing.T) {
	in := []sites.Site{
		{Code: "  ", Name: "No code"},
		{Code: " lake ", Name: " Lakeside ", IsPrimary: true},
		{Code: "forest", Name: "Forest", IsPrimary: true, PromoCode: "OTA"},
		{Code: "coast", Name: "Coast", PromoCode: "   "},
	}

	got := sites.Sanitize(in)

	if len(got) != 3 {
		t.Fatalf("expected 3 sites, got %d", len(got))
	}
	if got[0].Code != "lake" || got[0].Name != "Lakeside" {
		t.Errorf("fields not trimmed: %+v", got[0])
	}
	if !got[0].IsPrimary {
		t.Error("first primary should keep the flag")
	}
	if got[1].IsPrimary {
		t.Error("second primary should lose the flag")
	}
	if got[1].PromoCode != "OTA" {
		t.Errorf("explicit promo code changed: %q", got[1].PromoCode)
	}
	if got[2].PromoCode != sites.DefaultPromoCode {
		t.Errorf("PromoCode = %q, want default", got[2].PromoCode)
	}
}

func TestSanitizeOptions(t *testing.T) {
	got := sites.SanitizeOptions(sites.Options{DefaultAdults: -1, MaxAdults: 0, MaxChildren: -3, EnableFallback: true})
	want := sites.Options{
		CurrencySymbol:  "£",
		DefaultAdults:   2,
		DefaultChildren: 0,
		MaxAdults:       6,
		MaxChildren:     4,
		EnableFallback:  true,
	}
	if got != want {
		t.Errorf("SanitizeOptions() = %+v, want %+v", got, want)
	}
}

func TestSite_Configured(t *testing.T) {
	tests := []struct {
		name string
		site sites.Site
		want bool
	}{
		{name: "complete", site: sites.Site{APIUsername: "u", APIPassword: "p", APIKey: "k"}, want: true},
		{name: "missing key", site: sites.Site{APIUsername: "u", APIPassword: "p"}, want: false},
		{name: "empty", site: sites.Site{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.site.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalog_Lookup(t *testing.T) {
	catalog := sites.NewCatalog([]sites.Site{
		{Code: "a", Name: "A"},
		{Code: "b", Name: "B", IsPrimary: true},
	}, sites.DefaultOptions())

	tests := []struct {
		name     string
		code     string
		wantCode string
		wantErr  error
	}{
		{name: "by code", code: "a", wantCode: "a"},
		{name: "empty code resolves primary", code: "", wantCode: "b"},
		{name: "unknown", code: "zzz", wantErr: sites.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := catalog.Lookup(tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestCatalog_PrimaryFallsBackToFirst(t *testing.T) {
	catalog := sites.NewCatalog([]sites.Site{{Code: "first"}, {Code: "second"}}, sites.DefaultOptions())

	got, err := catalog.Primary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Code != "first" {
		t.Errorf("Primary() = %q, want first", got.Code)
	}

	empty := sites.NewCatalog(nil, sites.DefaultOptions())
	if _, err := empty.Primary(); !errors.Is(err, sites.ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty catalog, got %v", err)
	}
}

func TestCatalog_Fallbacks(t *testing.T) {
	list := []sites.Site{
		{Code: "a", ShowAsFallback: true},
		{Code: "b"},
		{Code: "c", ShowAsFallback: true},
		{Code: "d", ShowAsFallback: true},
	}

	disabled := sites.NewCatalog(list, sites.DefaultOptions())
	if got := disabled.Fallbacks(""); got != nil {
		t.Errorf("expected nil when fallback disabled, got %+v", got)
	}

	opts := sites.DefaultOptions()
	opts.EnableFallback = true
	enabled := sites.NewCatalog(list, opts)

	got := enabled.Fallbacks("c")
	if len(got) != 2 || got[0].Code != "a" || got[1].Code != "d" {
		t.Errorf("Fallbacks(c) = %+v, want [a d]", got)
	}
}

type fakeLoader struct {
	sites []sites.Site
	err   error
	calls int
}

func (f *fakeLoader) Load(ctx context.Context) ([]sites.Site, error) {
	f.calls++
	return f.sites, f.err
}

func TestRefresher_Refresh(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	catalog := sites.NewCatalog([]sites.Site{{Code: "old"}}, sites.DefaultOptions())

	tests := []struct {
		name     string
		loader   *fakeLoader
		wantErr  bool
		wantCode string
	}{
		{
			name:     "replaces sites",
			loader:   &fakeLoader{sites: []sites.Site{{Code: "new", IsPrimary: true}}},
			wantCode: "new",
		},
		{
			name:     "load error keeps catalog",
			loader:   &fakeLoader{err: errors.New("db down")},
			wantErr:  true,
			wantCode: "new",
		},
		{
			name:     "empty result keeps catalog",
			loader:   &fakeLoader{sites: []sites.Site{{Code: ""}}},
			wantErr:  true,
			wantCode: "new",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sites.NewRefresher(tt.loader, catalog, "@every 1h", logger)
			err := r.Refresh(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Refresh() error = %v, wantErr %v", err, tt.wantErr)
			}
			primary, err := catalog.Primary()
			if err != nil {
				t.Fatalf("Primary() error: %v", err)
			}
			if primary.Code != tt.wantCode {
				t.Errorf("primary = %q, want %q", primary.Code, tt.wantCode)
			}
		})
	}
}

func TestRefresher_StartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	catalog := sites.NewCatalog(nil, sites.DefaultOptions())
	loader := &fakeLoader{sites: []sites.Site{{Code: "x"}}}

	r := sites.NewRefresher(loader, catalog, "@every 1h", logger)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	r.Stop()

	if loader.calls != 1 {
		t.Errorf("expected one synchronous load, got %d", loader.calls)
	}
	if _, err := catalog.Site("x"); err != nil {
		t.Errorf("catalog not loaded: %v", err)
	}
}

func TestRefresher_StartInvalidSpec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	catalog := sites.NewCatalog(nil, sites.DefaultOptions())
	loader := &fakeLoader{sites: []sites.Site{{Code: "x"}}}

	r := sites.NewRefresher(loader, catalog, "not a spec", logger)
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
