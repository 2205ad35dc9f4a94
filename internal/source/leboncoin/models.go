package leboncoin

// searchRequest mirrors the finder/search POST payload.
type searchRequest struct {
	Filters       searchFilters `json:"filters"`
	Limit         int           `json:"limit"`
	SortBy        string        `json:"sort_by"`
	SortOrder     string        `json:"sort_order"`
	ListingSource string        `json:"listing_source"`
}

type searchFilters struct {
	Category *categoryFilter       `json:"category,omitempty"`
	Enums    map[string][]string   `json:"enums"`
	Keywords *keywordsFilter       `json:"keywords,omitempty"`
	Location *locationFilter       `json:"location,omitempty"`
	Ranges   map[string]rangeBound `json:"ranges"`
}

type categoryFilter struct {
	ID string `json:"id"`
}

type keywordsFilter struct {
	Text string `json:"text"`
}

type locationFilter struct {
	CityZipcodes []cityZipcode `json:"city_zipcodes"`
}

type cityZipcode struct {
	Zipcode string `json:"zipcode"`
}

type rangeBound struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// searchResponse mirrors the finder/search response body.
type searchResponse struct {
	Total int  `json:"total"`
	Ads   []ad `json:"ads"`
}

type ad struct {
	ListID     int64       `json:"list_id"`
	Subject    string      `json:"subject"`
	URL        string      `json:"url"`
	CategoryID string      `json:"category_id"`
	Price      []int       `json:"price"`
	Attributes []attribute `json:"attributes"`
	Location   adLocation  `json:"location"`
	Images     adImages    `json:"images"`
}

type attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type adLocation struct {
	City string `json:"city"`
}

type adImages struct {
	ThumbURL string `json:"thumb_url"`
}
