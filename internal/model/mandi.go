package model

// Data sources reported on a MandiResponse.
const (
	MandiSourceLive     = "Ministry of Agriculture & Farmers Welfare, Govt. of India"
	MandiSourceFallback = "Representative market data (Govt. source temporarily unavailable)"
)

// MandiRecord is one commodity price observation at a market. Prices are in
// rupees per quintal.
type MandiRecord struct {
	State       string  `json:"state"`
	District    string  `json:"district"`
	Market      string  `json:"market"`
	Commodity   string  `json:"commodity"`
	Variety     string  `json:"variety"`
	Grade       string  `json:"grade"`
	ArrivalDate string  `json:"arrivalDate"`
	MinPrice    float64 `json:"minPrice"`
	MaxPrice    float64 `json:"maxPrice"`
	ModalPrice  float64 `json:"modalPrice"`
}

// MandiQuery filters a mandi price lookup. Empty fields do not filter.
type MandiQuery struct {
	Commodity string `json:"commodity,omitempty"`
	State     string `json:"state,omitempty"`
	Market    string `json:"market,omitempty"`
	District  string `json:"district,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// MandiFilters lists the distinct values present in a result set, sorted.
type MandiFilters struct {
	States      []string `json:"states"`
	Commodities []string `json:"commodities"`
	Markets     []string `json:"markets"`
}

// MandiResponse is the body returned by the mandi endpoint.
type MandiResponse struct {
	Records     []MandiRecord `json:"records"`
	Total       int           `json:"total"`
	Count       int           `json:"count"`
	Filters     MandiFilters  `json:"filters"`
	Source      string        `json:"source"`
	LastUpdated string        `json:"lastUpdated"`
	Live        bool          `json:"live"`
}
