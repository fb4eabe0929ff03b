// Package datagov reads commodity price records from the Open Government
// Data platform (data.gov.in).
package datagov

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://api.data.gov.in/resource"

	// MandiResourceID is the "current daily price of various commodities
	// from various markets" dataset.
	MandiResourceID = "9ef84268-d588-465a-a308-a864a43d0070"
)

// Client queries a data.gov.in resource.
type Client interface {
	Records(ctx context.Context, req RecordsRequest) (*RecordsResponse, error)
}

// RecordsRequest filters a resource query. Empty filters are not sent.
type RecordsRequest struct {
	Commodity string
	State     string
	Market    string
	District  string
	Limit     int
	Offset    int
}

// RecordsResponse is the decoded resource payload.
type RecordsResponse struct {
	Total       int
	Count       int
	UpdatedDate string
	Records     []Record
}

// Record is one mandi price row. Prices arrive as strings or numbers and
// are normalized to float64.
type Record struct {
	State       string
	District    string
	Market      string
	Commodity   string
	Variety     string
	Grade       string
	ArrivalDate string
	MinPrice    float64
	MaxPrice    float64
	ModalPrice  float64
}

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("datagov: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithResourceID overrides the dataset queried.
func WithResourceID(id string) Option {
	return func(c *httpClient) {
		c.resourceID = id
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	resourceID string
	http       *http.Client
}

// NewClient creates a data.gov.in client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		resourceID: MandiResourceID,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Records(ctx context.Context, req RecordsRequest) (*RecordsResponse, error) {
	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(req.Limit))
	params.Set("offset", strconv.Itoa(req.Offset))
	for name, v := range map[string]string{
		"commodity": req.Commodity,
		"state":     req.State,
		"market":    req.Market,
		"district":  req.District,
	} {
		if v != "" {
			params.Set("filters["+name+"]", v)
		}
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, c.resourceID, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "datagov: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "datagov: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "datagov: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if !gjson.ValidBytes(body) {
		return nil, eris.New("datagov: response is not valid JSON")
	}

	return parseRecords(body), nil
}

func parseRecords(body []byte) *RecordsResponse {
	root := gjson.ParseBytes(body)
	out := &RecordsResponse{
		Total:       int(root.Get("total").Int()),
		Count:       int(root.Get("count").Int()),
		UpdatedDate: root.Get("updated_date").String(),
	}
	root.Get("records").ForEach(func(_, r gjson.Result) bool {
		out.Records = append(out.Records, Record{
			State:       r.Get("state").String(),
			District:    r.Get("district").String(),
			Market:      r.Get("market").String(),
			Commodity:   r.Get("commodity").String(),
			Variety:     r.Get("variety").String(),
			Grade:       r.Get("grade").String(),
			ArrivalDate: r.Get("arrival_date").String(),
			MinPrice:    r.Get("min_price").Float(),
			MaxPrice:    r.Get("max_price").Float(),
			ModalPrice:  r.Get("modal_price").Float(),
		})
		return true
	})
	return out
}
