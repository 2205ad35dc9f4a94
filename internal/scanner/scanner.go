package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ogaillard63/lbcwatch/internal/config"
	"github.com/ogaillard63/lbcwatch/internal/domain"
)

// Scanner runs one pass over all active searches: fetch, filter, upsert.
// A failing search never aborts the cycle; it just contributes nothing.
type Scanner struct {
	searches SearchStore
	listings ListingStore
	events   EventLog
	source   Source
	pub      Publisher
	logger   *slog.Logger
	cfg      config.ScanConfig

	// sleep is swapped out in tests so the inter-search delay does not
	// wall-clock.
	sleep func(ctx context.Context, d time.Duration)
}

func New(
	searches SearchStore,
	listings ListingStore,
	events EventLog,
	source Source,
	pub Publisher,
	logger *slog.Logger,
	cfg config.ScanConfig,
) *Scanner {
	return &Scanner{
		searches: searches,
		listings: listings,
		events:   events,
		source:   source,
		pub:      pub,
		logger:   logger.With("component", "scanner"),
		cfg:      cfg,
		sleep:    wait,
	}
}

// Run executes one scan cycle. It returns an error only when the search list
// itself cannot be loaded; everything below that degrades to log entries.
func (s *Scanner) Run(ctx context.Context) (*domain.ScanStats, error) {
	start := time.Now()

	searches, err := s.searches.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active searches: %w", err)
	}

	stats := &domain.ScanStats{Searches: len(searches)}
	s.logger.Info("scan cycle started", "searches", len(searches))

	for i, search := range searches {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		s.scanSearch(ctx, search, stats)

		if i < len(searches)-1 {
			s.sleep(ctx, s.searchDelay())
		}
	}

	stats.Duration = time.Since(start)
	s.logger.Info("scan cycle finished",
		"fetched", stats.Fetched,
		"changed", stats.Changed,
		"excluded", stats.Excluded,
		"errors", stats.Errors,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *Scanner) scanSearch(ctx context.Context, search domain.Search, stats *domain.ScanStats) {
	s.appendEvent(ctx, fmt.Sprintf("Scan: %s", search.Name), domain.LevelInfo)

	listings, err := s.source.FetchListings(ctx, search)
	if err != nil {
		s.logger.Warn("fetch failed", "search", search.Name, "error", err)
		stats.Errors++
	}
	stats.Fetched += len(listings)

	excluded := make(map[string]struct{})
	for _, id := range search.ExcludedCategoryIDs() {
		excluded[id] = struct{}{}
	}

	newCount := 0
	for i := range listings {
		l := &listings[i]
		if _, skip := excluded[l.CategoryID]; skip {
			stats.Excluded++
			continue
		}

		changed, err := s.listings.Upsert(ctx, l)
		if err != nil {
			s.logger.Warn("upsert failed", "search", search.Name, "lbc_id", l.LbcID, "error", err)
			stats.Errors++
			continue
		}
		if !changed {
			continue
		}

		newCount++
		if s.pub != nil {
			if err := s.pub.Publish(ctx, l); err != nil {
				s.logger.Warn("publish failed", "lbc_id", l.LbcID, "error", err)
			} else {
				stats.Published++
			}
		}
	}
	stats.Changed += newCount

	if newCount > 0 {
		s.appendEvent(ctx, fmt.Sprintf("%d news: %s", newCount, search.Name), domain.LevelSuccess)
	}

	// The stamp moves even when the fetch failed or returned nothing.
	if err := s.searches.TouchLastChecked(ctx, search.ID); err != nil {
		s.logger.Warn("update last_checked failed", "search", search.Name, "error", err)
		stats.Errors++
	}
}

func (s *Scanner) appendEvent(ctx context.Context, message, level string) {
	if err := s.events.Append(ctx, message, level); err != nil {
		s.logger.Warn("append db log", "error", err)
	}
}

func (s *Scanner) searchDelay() time.Duration {
	if s.cfg.MaxSearchDelay <= s.cfg.MinSearchDelay {
		return s.cfg.MinSearchDelay
	}
	return s.cfg.MinSearchDelay + rand.N(s.cfg.MaxSearchDelay-s.cfg.MinSearchDelay)
}

func wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
