package sites

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sites (
	code             TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	api_username     TEXT NOT NULL DEFAULT '',
	api_password     TEXT NOT NULL DEFAULT '',
	api_key          TEXT NOT NULL DEFAULT '',
	booking_url      TEXT NOT NULL DEFAULT '',
	promo_code       TEXT NOT NULL DEFAULT '',
	is_primary       BOOLEAN NOT NULL DEFAULT FALSE,
	show_as_fallback BOOLEAN NOT NULL DEFAULT FALSE,
	position         INTEGER NOT NULL DEFAULT 0,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectSitesSQL = `
SELECT code, name, api_username, api_password, api_key,
       booking_url, promo_code, is_primary, show_as_fallback
FROM sites
ORDER BY position, code`

const upsertSiteSQL = `
INSERT INTO sites (code, name, api_username, api_password, api_key,
                   booking_url, promo_code, is_primary, show_as_fallback, position, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
ON CONFLICT (code) DO UPDATE SET
	name = EXCLUDED.name,
	api_username = EXCLUDED.api_username,
	api_password = EXCLUDED.api_password,
	api_key = EXCLUDED.api_key,
	booking_url = EXCLUDED.booking_url,
	promo_code = EXCLUDED.promo_code,
	is_primary = EXCLUDED.is_primary,
	show_as_fallback = EXCLUDED.show_as_fallback,
	position = EXCLUDED.position,
	updated_at = now()`

// PostgresStore keeps the site list in a Postgres table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the sites table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create sites table: %w", err)
	}
	return nil
}

// Load returns all sites ordered by position.
func (s *PostgresStore) Load(ctx context.Context) ([]Site, error) {
	rows, err := s.pool.Query(ctx, selectSitesSQL)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}

	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[Site])
	if err != nil {
		return nil, fmt.Errorf("scan sites: %w", err)
	}
	return list, nil
}

// Save sanitizes list and upserts it in one transaction, keeping list order
// as the row position. Rows whose code is not in list are left untouched.
func (s *PostgresStore) Save(ctx context.Context, list []Site) error {
	list = Sanitize(list)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	batch := &pgx.Batch{}
	for i, site := range list {
		batch.Queue(upsertSiteSQL,
			site.Code, site.Name, site.APIUsername, site.APIPassword, site.APIKey,
			site.BookingURL, site.PromoCode, site.IsPrimary, site.ShowAsFallback, i,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert sites: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
