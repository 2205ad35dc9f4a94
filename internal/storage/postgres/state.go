package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ogaillard63/lbcwatch/internal/domain"
)

// StateStore reads and writes the system_stats key/value table. The web
// front-end writes the scan_request flag here; the scheduler consumes it.
type StateStore struct {
	db *sqlx.DB
}

func NewStateStore(db *sqlx.DB) *StateStore {
	return &StateStore{db: db}
}

// Get returns the value for name, or ("", false, nil) when the key is absent.
func (s *StateStore) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		"SELECT value FROM system_stats WHERE name = $1", name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *StateStore) Set(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_stats (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
		name, value)
	return err
}

func (s *StateStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM system_stats WHERE name = $1", name)
	return err
}

// RecordLaunch stamps the last_launch key with the store's clock.
func (s *StateStore) RecordLaunch(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_stats (name, value) VALUES ($1, NOW()::text)
		ON CONFLICT (name) DO UPDATE SET value = NOW()::text`,
		domain.StateLastLaunch)
	return err
}
