package scanner

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/ogaillard63/lbcwatch/internal/domain"
)

type SearchStore interface {
	ListActive(ctx context.Context) ([]domain.Search, error)
	TouchLastChecked(ctx context.Context, searchID int64) error
}

type ListingStore interface {
	Upsert(ctx context.Context, l *domain.Listing) (bool, error)
}

// EventLog is the append-only log table shared with the web front-end.
type EventLog interface {
	Append(ctx context.Context, message, level string) error
}

type Source interface {
	FetchListings(ctx context.Context, search domain.Search) ([]domain.Listing, error)
}

type Publisher interface {
	Publish(ctx context.Context, l *domain.Listing) error
	Close() error
}
