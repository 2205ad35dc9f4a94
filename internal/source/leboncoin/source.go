package leboncoin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ogaillard63/lbcwatch/internal/domain"
)

const searchPath = "/finder/search"

// unknownCity is stored when the API omits the listing's location.
const unknownCity = "Inconnue"

// Config holds Source configuration.
type Config struct {
	BaseURL string
	Limit   int
}

// Source fetches marketplace listings for a search through the resilient
// client and maps them to the domain model.
type Source struct {
	client  *Client
	baseURL string
	limit   int
	logger  *slog.Logger
}

func NewSource(cfg Config, client *Client, logger *slog.Logger) *Source {
	return &Source{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limit:   cfg.Limit,
		logger:  logger.With("source", "leboncoin"),
	}
}

// FetchListings runs one finder/search request for the given search. A failed
// or blocked request yields an empty result; the caller decides whether the
// cycle goes on.
func (s *Source) FetchListings(ctx context.Context, search domain.Search) ([]domain.Listing, error) {
	payload := buildPayload(search, s.limit)

	body, status, err := s.client.Post(ctx, s.baseURL+searchPath, payload)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", search.Name, err)
	}
	if status != http.StatusOK {
		return nil, nil
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("search %q: decode response: %w", search.Name, err)
	}

	return s.transform(search, resp.Ads), nil
}

// buildPayload maps search filters onto the API request. Donation searches
// never carry a price range even when bounds are configured.
func buildPayload(search domain.Search, limit int) searchRequest {
	req := searchRequest{
		Filters: searchFilters{
			Enums:  map[string][]string{"ad_type": {"offer"}},
			Ranges: map[string]rangeBound{},
		},
		Limit:         limit,
		SortBy:        "time",
		SortOrder:     "desc",
		ListingSource: "direct-search",
	}

	if zips := search.ZipcodeList(); len(zips) > 0 {
		loc := &locationFilter{CityZipcodes: make([]cityZipcode, len(zips))}
		for i, z := range zips {
			loc.CityZipcodes[i] = cityZipcode{Zipcode: z}
		}
		req.Filters.Location = loc
	}

	if cat := search.CategoryID(); cat != domain.CategoryAll {
		req.Filters.Category = &categoryFilter{ID: cat}
	}

	if search.IsDonation {
		req.Filters.Enums["donation"] = []string{"1"}
	} else {
		var price rangeBound
		if search.PriceMin.Valid {
			v := int(search.PriceMin.Int64)
			price.Min = &v
		}
		if search.PriceMax.Valid {
			v := int(search.PriceMax.Int64)
			price.Max = &v
		}
		if price.Min != nil || price.Max != nil {
			req.Filters.Ranges["price"] = price
		}
	}

	if search.Keywords != "" {
		req.Filters.Keywords = &keywordsFilter{Text: search.Keywords}
	}

	return req
}

func (s *Source) transform(search domain.Search, ads []ad) []domain.Listing {
	listings := make([]domain.Listing, 0, len(ads))

	for _, a := range ads {
		if a.ListID == 0 || a.Subject == "" {
			s.logger.Debug("skipping incomplete ad", "list_id", a.ListID)
			continue
		}

		l := domain.Listing{
			SearchID:   search.ID,
			LbcID:      strconv.FormatInt(a.ListID, 10),
			Title:      a.Subject,
			URL:        a.URL,
			CategoryID: a.CategoryID,
			Location:   a.Location.City,
			ImageURL:   rewriteImageURL(a.Images.ThumbURL),
		}

		if len(a.Price) > 0 {
			l.Price = a.Price[0]
		}
		if l.Location == "" {
			l.Location = unknownCity
		}

		for _, attr := range a.Attributes {
			if attr.Key == "square" {
				if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
					l.Surface = v
				}
				break
			}
		}

		listings = append(listings, l)
	}

	return listings
}

// rewriteImageURL requests the small-size rendition of a thumbnail.
func rewriteImageURL(u string) string {
	if u == "" {
		return ""
	}
	if strings.Contains(u, "rule=") {
		base, _, _ := strings.Cut(u, "?")
		return base + "?rule=ad-small"
	}
	return u + "?rule=ad-small"
}
