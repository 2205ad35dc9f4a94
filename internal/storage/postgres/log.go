package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// LogStore appends to the logs table read by the web front-end. Rows are
// never updated or deleted from here.
type LogStore struct {
	db *sqlx.DB
}

func NewLogStore(db *sqlx.DB) *LogStore {
	return &LogStore{db: db}
}

func (s *LogStore) Append(ctx context.Context, message, level string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO logs (message, level) VALUES ($1, $2)",
		message, level)
	return err
}
