package leboncoin

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogaillard63/lbcwatch/internal/domain"
)

func priceSearch() domain.Search {
	return domain.Search{
		ID:       1,
		Name:     "appart clermont",
		Keywords: "appartement",
		Category: "9",
		Zipcodes: "63000, 63100",
		PriceMin: sql.NullInt64{Int64: 100, Valid: true},
		PriceMax: sql.NullInt64{Int64: 500, Valid: true},
	}
}

func TestBuildPayload_PriceRange(t *testing.T) {
	payload := buildPayload(priceSearch(), 15)

	require.Contains(t, payload.Filters.Ranges, "price")
	price := payload.Filters.Ranges["price"]
	require.NotNil(t, price.Min)
	require.NotNil(t, price.Max)
	assert.Equal(t, 100, *price.Min)
	assert.Equal(t, 500, *price.Max)

	assert.Equal(t, 15, payload.Limit)
	assert.Equal(t, "time", payload.SortBy)
	assert.Equal(t, "desc", payload.SortOrder)
	assert.Equal(t, "direct-search", payload.ListingSource)
	assert.Equal(t, []string{"offer"}, payload.Filters.Enums["ad_type"])
}

func TestBuildPayload_DonationExcludesPriceRange(t *testing.T) {
	search := priceSearch()
	search.IsDonation = true

	payload := buildPayload(search, 15)

	assert.NotContains(t, payload.Filters.Ranges, "price",
		"donation searches must not carry a price filter")
	assert.Equal(t, []string{"1"}, payload.Filters.Enums["donation"])
}

func TestBuildPayload_Category(t *testing.T) {
	search := priceSearch()

	payload := buildPayload(search, 15)
	require.NotNil(t, payload.Filters.Category)
	assert.Equal(t, "9", payload.Filters.Category.ID)

	search.Category = "0"
	payload = buildPayload(search, 15)
	assert.Nil(t, payload.Filters.Category, "category 0 means no category filter")

	search.Category = ""
	payload = buildPayload(search, 15)
	require.NotNil(t, payload.Filters.Category)
	assert.Equal(t, domain.DefaultCategory, payload.Filters.Category.ID)
}

func TestBuildPayload_ZipcodesAndKeywords(t *testing.T) {
	payload := buildPayload(priceSearch(), 15)

	require.NotNil(t, payload.Filters.Location)
	assert.Equal(t, []cityZipcode{{Zipcode: "63000"}, {Zipcode: "63100"}},
		payload.Filters.Location.CityZipcodes)

	require.NotNil(t, payload.Filters.Keywords)
	assert.Equal(t, "appartement", payload.Filters.Keywords.Text)

	empty := domain.Search{}
	payload = buildPayload(empty, 15)
	assert.Nil(t, payload.Filters.Location)
	assert.Nil(t, payload.Filters.Keywords)
}

func TestRewriteImageURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no rule", "https://img.leboncoin.fr/api/v1/images/abc", "https://img.leboncoin.fr/api/v1/images/abc?rule=ad-small"},
		{"existing rule replaced", "https://img.leboncoin.fr/api/v1/images/abc?rule=ad-large", "https://img.leboncoin.fr/api/v1/images/abc?rule=ad-small"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rewriteImageURL(tt.in))
		})
	}
}

func TestTransform(t *testing.T) {
	source := &Source{logger: testLogger()}
	search := priceSearch()

	ads := []ad{
		{
			ListID:     2901234567,
			Subject:    "T2 lumineux",
			URL:        "https://www.leboncoin.fr/ad/ventes_immobilieres/2901234567",
			CategoryID: "9",
			Price:      []int{125000, 125000},
			Attributes: []attribute{{Key: "rooms", Value: "2"}, {Key: "square", Value: "47"}},
			Location:   adLocation{City: "Clermont-Ferrand"},
			Images:     adImages{ThumbURL: "https://img.leboncoin.fr/thumb/abc?rule=ad-thumb"},
		},
		{
			// Missing title, dropped.
			ListID:     2901234568,
			CategoryID: "9",
			Price:      []int{100},
		},
		{
			// No price array, no city.
			ListID:     2901234569,
			Subject:    "donne commode",
			CategoryID: "19",
		},
	}

	listings := source.transform(search, ads)

	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, int64(1), first.SearchID)
	assert.Equal(t, "2901234567", first.LbcID)
	assert.Equal(t, "T2 lumineux", first.Title)
	assert.Equal(t, 125000, first.Price)
	assert.Equal(t, 47.0, first.Surface)
	assert.Equal(t, "Clermont-Ferrand", first.Location)
	assert.Equal(t, "https://img.leboncoin.fr/thumb/abc?rule=ad-small", first.ImageURL)
	assert.False(t, first.IsSeen)

	second := listings[1]
	assert.Equal(t, 0, second.Price)
	assert.Equal(t, unknownCity, second.Location)
	assert.Empty(t, second.ImageURL)
}

func TestFetchListings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		assert.Equal(t, searchPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{
			"total": 2,
			"ads": [
				{"list_id": 101, "subject": "T2 centre", "category_id": "9", "price": [300]},
				{"list_id": 102, "subject": "T3 gare", "category_id": "9", "price": [450]}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/", 5, &recordingEventLog{})
	source := NewSource(Config{BaseURL: server.URL, Limit: 15}, client, testLogger())

	listings, err := source.FetchListings(context.Background(), priceSearch())

	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "101", listings[0].LbcID)
	assert.Equal(t, 450, listings[1].Price)
}

func TestFetchListings_HTTPErrorYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/", 5, &recordingEventLog{})
	source := NewSource(Config{BaseURL: server.URL, Limit: 15}, client, testLogger())

	listings, err := source.FetchListings(context.Background(), priceSearch())

	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestFetchListings_BlockedReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/", 1, &recordingEventLog{})
	source := NewSource(Config{BaseURL: server.URL, Limit: 15}, client, testLogger())

	listings, err := source.FetchListings(context.Background(), priceSearch())

	require.ErrorIs(t, err, ErrBlocked)
	assert.Empty(t, listings)
}
