//go:build integration

package sites_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alex-user-go/pricecheck/internal/sites"
)

// Requires DATABASE_URL pointing at a disposable database.
func TestPostgresStore_SaveLoad(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()

	store := sites.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE sites"); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	in := []sites.Site{
		{Code: "b", Name: "Second", APIKey: "kb", ShowAsFallback: true},
		{Code: "a", Name: "First", APIKey: "ka", IsPrimary: true},
		{Code: "", Name: "dropped"},
	}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(got))
	}
	if got[0].Code != "b" || got[1].Code != "a" {
		t.Errorf("order = [%s %s], want [b a]", got[0].Code, got[1].Code)
	}
	if got[0].PromoCode != sites.DefaultPromoCode || !got[0].ShowAsFallback || !got[1].IsPrimary {
		t.Errorf("unexpected rows %+v", got)
	}

	// Upsert keeps one row per code.
	in[0].Name = "Renamed"
	if err := store.Save(ctx, in[:1]); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Renamed" {
		t.Errorf("after upsert = %+v", got)
	}
}
