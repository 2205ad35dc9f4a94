package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ogaillard63/lbcwatch/internal/domain"
)

type ListingStore struct {
	db *sqlx.DB
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{db: db}
}

// Upsert inserts the listing or updates the existing (search_id, lbc_id) row.
// The seen flag is cleared only when the incoming price is strictly lower
// than the stored one; otherwise the prior seen state survives the update.
// The WHERE clause makes a byte-identical re-fetch a no-op, so the returned
// changed flag approximates "something new happened to this row".
func (s *ListingStore) Upsert(ctx context.Context, l *domain.Listing) (bool, error) {
	query := `
		INSERT INTO ads (
			search_id, lbc_id, title, price, surface, location,
			image_url, url, category_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (search_id, lbc_id) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			is_seen = CASE
				WHEN EXCLUDED.price < ads.price THEN FALSE
				ELSE ads.is_seen
			END
		WHERE ads.title IS DISTINCT FROM EXCLUDED.title
		   OR ads.price IS DISTINCT FROM EXCLUDED.price
		   OR ads.category_id IS DISTINCT FROM EXCLUDED.category_id`

	res, err := s.db.ExecContext(ctx, query,
		l.SearchID,
		l.LbcID,
		l.Title,
		l.Price,
		l.Surface,
		l.Location,
		l.ImageURL,
		l.URL,
		l.CategoryID,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetBySearchAndLbcID fetches one listing row. Used by tests and by the
// front-end queries; the scanner itself only upserts.
func (s *ListingStore) GetBySearchAndLbcID(ctx context.Context, searchID int64, lbcID string) (*domain.Listing, error) {
	query := `
		SELECT id, search_id, lbc_id, title, price, surface, location,
		       image_url, url, category_id, is_seen, scraped_at
		FROM ads
		WHERE search_id = $1 AND lbc_id = $2`

	var l domain.Listing
	if err := s.db.GetContext(ctx, &l, query, searchID, lbcID); err != nil {
		return nil, err
	}
	return &l, nil
}
