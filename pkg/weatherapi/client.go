// Package weatherapi is a minimal client for the WeatherAPI.com forecast endpoint.
package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api.weatherapi.com/v1"

// Client fetches forecasts from WeatherAPI.com.
type Client interface {
	Forecast(ctx context.Context, req ForecastRequest) (*ForecastResponse, error)
}

// ForecastRequest is the query for GET /forecast.json.
type ForecastRequest struct {
	Query  string // "lat,lon", city name or PIN code
	Days   int
	Alerts bool
	AQI    bool
}

// ForecastResponse is the raw forecast.json payload.
type ForecastResponse struct {
	Location Location `json:"location"`
	Current  Current  `json:"current"`
	Forecast struct {
		ForecastDay []ForecastDay `json:"forecastday"`
	} `json:"forecast"`
	Alerts struct {
		Alert []Alert `json:"alert"`
	} `json:"alerts"`
}

// Location is the raw location block.
type Location struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Localtime string  `json:"localtime"`
}

// Condition is the raw condition block. Icon URLs are protocol-relative.
type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

// Current is the raw current-conditions block.
type Current struct {
	TempC      float64   `json:"temp_c"`
	FeelsLikeC float64   `json:"feelslike_c"`
	Humidity   float64   `json:"humidity"`
	WindKPH    float64   `json:"wind_kph"`
	WindDir    string    `json:"wind_dir"`
	PressureMB float64   `json:"pressure_mb"`
	UV         float64   `json:"uv"`
	Cloud      float64   `json:"cloud"`
	Condition  Condition `json:"condition"`
	IsDay      int       `json:"is_day"`
}

// ForecastDay is one raw forecastday entry.
type ForecastDay struct {
	Date string `json:"date"`
	Day  struct {
		MaxTempC          float64   `json:"maxtemp_c"`
		MinTempC          float64   `json:"mintemp_c"`
		AvgTempC          float64   `json:"avgtemp_c"`
		MaxWindKPH        float64   `json:"maxwind_kph"`
		TotalPrecipMM     float64   `json:"totalprecip_mm"`
		AvgHumidity       float64   `json:"avghumidity"`
		DailyChanceOfRain float64   `json:"daily_chance_of_rain"`
		Condition         Condition `json:"condition"`
		UV                float64   `json:"uv"`
	} `json:"day"`
	Astro struct {
		Sunrise   string `json:"sunrise"`
		Sunset    string `json:"sunset"`
		MoonPhase string `json:"moon_phase"`
	} `json:"astro"`
	Hour []Hour `json:"hour"`
}

// Hour is one raw hourly entry.
type Hour struct {
	Time         string    `json:"time"`
	TempC        float64   `json:"temp_c"`
	Condition    Condition `json:"condition"`
	ChanceOfRain float64   `json:"chance_of_rain"`
	Humidity     float64   `json:"humidity"`
	WindKPH      float64   `json:"wind_kph"`
	FeelsLikeC   float64   `json:"feelslike_c"`
}

// Alert is one raw weather alert.
type Alert struct {
	Headline  string `json:"headline"`
	Severity  string `json:"severity"`
	Event     string `json:"event"`
	Effective string `json:"effective"`
	Expires   string `json:"expires"`
	Desc      string `json:"desc"`
}

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("weatherapi: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a WeatherAPI.com client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Forecast(ctx context.Context, req ForecastRequest) (*ForecastResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", req.Query)
	params.Set("days", strconv.Itoa(req.Days))
	params.Set("aqi", yesNo(req.AQI))
	params.Set("alerts", yesNo(req.Alerts))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast.json?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "weatherapi: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "weatherapi: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "weatherapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ForecastResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "weatherapi: unmarshal response")
	}
	if missing := missingBlocks(body); len(missing) > 0 {
		return nil, eris.Errorf("weatherapi: response missing %s", strings.Join(missing, ", "))
	}

	return &result, nil
}

// missingBlocks lists the required top-level blocks absent from body.
func missingBlocks(body []byte) []string {
	var missing []string
	for _, path := range []string{"location", "current"} {
		if !gjson.GetBytes(body, path).IsObject() {
			missing = append(missing, path)
		}
	}
	if !gjson.GetBytes(body, "forecast.forecastday").IsArray() {
		missing = append(missing, "forecast.forecastday")
	}
	return missing
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
