package domain

import "time"

// Listing is a single marketplace item tracked per search. Uniqueness is
// scoped to (SearchID, LbcID); re-fetching the same external id updates the
// mutable fields and resets IsSeen only when the price dropped.
type Listing struct {
	ID         int64     `db:"id" json:"id"`
	SearchID   int64     `db:"search_id" json:"search_id"`
	LbcID      string    `db:"lbc_id" json:"lbc_id"`
	Title      string    `db:"title" json:"title"`
	Price      int       `db:"price" json:"price"`
	Surface    float64   `db:"surface" json:"surface"`
	Location   string    `db:"location" json:"location"`
	ImageURL   string    `db:"image_url" json:"image_url"`
	URL        string    `db:"url" json:"url"`
	CategoryID string    `db:"category_id" json:"category_id"`
	IsSeen     bool      `db:"is_seen" json:"is_seen"`
	ScrapedAt  time.Time `db:"scraped_at" json:"scraped_at"`
}

// ScanStats holds counters for one scan cycle.
type ScanStats struct {
	Searches  int
	Fetched   int
	Excluded  int
	Changed   int
	Errors    int
	Published int
	Duration  time.Duration
}
