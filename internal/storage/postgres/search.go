package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ogaillard63/lbcwatch/internal/domain"
)

type SearchStore struct {
	db *sqlx.DB
}

func NewSearchStore(db *sqlx.DB) *SearchStore {
	return &SearchStore{db: db}
}

// ListActive returns all searches the scanner should process, in table order.
func (s *SearchStore) ListActive(ctx context.Context) ([]domain.Search, error) {
	query := `
		SELECT id, name, keywords, category, zipcodes, price_min, price_max,
		       is_donation, excluded_categories, is_active, last_checked, created_at
		FROM searches
		WHERE is_active = TRUE
		ORDER BY id`

	var searches []domain.Search
	err := s.db.SelectContext(ctx, &searches, query)
	return searches, err
}

// TouchLastChecked stamps the search with the current time. Called after
// every scan attempt, successful or not.
func (s *SearchStore) TouchLastChecked(ctx context.Context, searchID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE searches SET last_checked = NOW() WHERE id = $1",
		searchID,
	)
	return err
}
