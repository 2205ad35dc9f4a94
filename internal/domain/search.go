package domain

import (
	"database/sql"
	"strings"
	"time"
)

// DefaultCategory is used when a search has no category configured.
const DefaultCategory = "9"

// CategoryAll disables category filtering when set on a search.
const CategoryAll = "0"

// Search is a user-defined filter specification. Searches are created and
// edited by the web front-end; the scanner only reads them.
type Search struct {
	ID                 int64         `db:"id"`
	Name               string        `db:"name"`
	Keywords           string        `db:"keywords"`
	Category           string        `db:"category"`
	Zipcodes           string        `db:"zipcodes"`
	PriceMin           sql.NullInt64 `db:"price_min"`
	PriceMax           sql.NullInt64 `db:"price_max"`
	IsDonation         bool          `db:"is_donation"`
	ExcludedCategories string        `db:"excluded_categories"`
	IsActive           bool          `db:"is_active"`
	LastChecked        sql.NullTime  `db:"last_checked"`
	CreatedAt          time.Time     `db:"created_at"`
}

// ZipcodeList splits the comma-separated zipcodes column.
func (s *Search) ZipcodeList() []string {
	return splitCSV(s.Zipcodes)
}

// ExcludedCategoryIDs splits the comma-separated excluded_categories column.
func (s *Search) ExcludedCategoryIDs() []string {
	return splitCSV(s.ExcludedCategories)
}

// CategoryID returns the effective category filter for the search.
func (s *Search) CategoryID() string {
	if s.Category == "" {
		return DefaultCategory
	}
	return s.Category
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
