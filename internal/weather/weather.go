// Package weather fetches forecasts from WeatherAPI.com and reshapes them into
// the model.Weather form served by the API.
package weather

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agrimate/internal/config"
	"github.com/sells-group/agrimate/internal/metrics"
	"github.com/sells-group/agrimate/internal/model"
	"github.com/sells-group/agrimate/internal/resilience"
	"github.com/sells-group/agrimate/pkg/weatherapi"
)

// Error messages returned to API callers.
const (
	MsgNotConfigured = "Weather API key not configured."
	MsgFetchFailed   = "Failed to fetch weather data."
)

const (
	forecastDays    = 5
	defaultLocation = "New Delhi"
	defaultTimeout  = 10 * time.Second
)

// Query selects the forecast location. Lat and Lon are used only when both
// are set; City is used next; otherwise the default location applies.
type Query struct {
	Lat  string
	Lon  string
	City string
}

// Service returns normalized forecasts.
type Service struct {
	client          weatherapi.Client
	defaultLocation string
	timeout         time.Duration
	now             func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClient replaces the WeatherAPI client.
func WithClient(c weatherapi.Client) Option {
	return func(s *Service) {
		s.client = c
	}
}

// WithClock sets the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service from cfg. With no API key the service is built but
// every Forecast call returns a ConfigError.
func New(cfg config.WeatherConfig, opts ...Option) *Service {
	s := &Service{
		defaultLocation: cfg.DefaultLocation,
		timeout:         time.Duration(cfg.TimeoutSecs) * time.Second,
		now:             time.Now,
	}
	if s.defaultLocation == "" {
		s.defaultLocation = defaultLocation
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if cfg.Key != "" {
		var clientOpts []weatherapi.Option
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, weatherapi.WithBaseURL(cfg.BaseURL))
		}
		s.client = weatherapi.NewClient(cfg.Key, clientOpts...)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location resolves q into the WeatherAPI query string.
func (s *Service) Location(q Query) string {
	if q.Lat != "" && q.Lon != "" {
		return q.Lat + "," + q.Lon
	}
	if city := strings.TrimSpace(q.City); city != "" {
		return city
	}
	return s.defaultLocation
}

// Forecast fetches and normalizes the 5-day forecast for q.
func (s *Service) Forecast(ctx context.Context, q Query) (*model.Weather, error) {
	if s.client == nil {
		return nil, resilience.NewConfigError(MsgNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	loc := s.Location(q)
	start := time.Now()
	raw, err := s.client.Forecast(ctx, weatherapi.ForecastRequest{
		Query:  loc,
		Days:   forecastDays,
		Alerts: true,
	})
	metrics.UpstreamDuration.WithLabelValues("weather").Observe(time.Since(start).Seconds())
	if err != nil {
		zap.L().Warn("weather: forecast failed", zap.String("location", loc), zap.Error(err))
		var apiErr *weatherapi.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.NewUpstreamError(eris.Wrapf(err, "weather: forecast %q", loc), apiErr.StatusCode)
		}
		return nil, resilience.NewUpstreamError(eris.Wrapf(err, "weather: forecast %q", loc), 0)
	}
	if raw.Location.Name == "" || len(raw.Forecast.ForecastDay) == 0 {
		return nil, resilience.NewUpstreamError(eris.Errorf("weather: incomplete forecast for %q", loc), 0)
	}

	return Normalize(raw, s.now()), nil
}

// Normalize reshapes a raw forecast. Icon URLs are made absolute.
func Normalize(raw *weatherapi.ForecastResponse, now time.Time) *model.Weather {
	w := &model.Weather{
		Location: model.Location{
			Name:      raw.Location.Name,
			Region:    raw.Location.Region,
			Country:   raw.Location.Country,
			Lat:       raw.Location.Lat,
			Lon:       raw.Location.Lon,
			Localtime: raw.Location.Localtime,
		},
		Current: model.CurrentWeather{
			Temperature: raw.Current.TempC,
			FeelsLike:   raw.Current.FeelsLikeC,
			Humidity:    raw.Current.Humidity,
			WindSpeed:   raw.Current.WindKPH,
			WindDir:     raw.Current.WindDir,
			Pressure:    raw.Current.PressureMB,
			UV:          raw.Current.UV,
			Cloud:       raw.Current.Cloud,
			Condition:   condition(raw.Current.Condition),
			IsDay:       raw.Current.IsDay == 1,
		},
		Forecast:    make([]model.ForecastDay, 0, len(raw.Forecast.ForecastDay)),
		Alerts:      make([]model.WeatherAlert, 0, len(raw.Alerts.Alert)),
		LastUpdated: now.UTC().Format(time.RFC3339),
	}

	for _, d := range raw.Forecast.ForecastDay {
		day := model.ForecastDay{
			Date:        d.Date,
			MaxTemp:     d.Day.MaxTempC,
			MinTemp:     d.Day.MinTempC,
			AvgTemp:     d.Day.AvgTempC,
			MaxWind:     d.Day.MaxWindKPH,
			TotalPrecip: d.Day.TotalPrecipMM,
			AvgHumidity: d.Day.AvgHumidity,
			RainChance:  d.Day.DailyChanceOfRain,
			Condition:   condition(d.Day.Condition),
			UV:          d.Day.UV,
			Astro: model.Astro{
				Sunrise:   d.Astro.Sunrise,
				Sunset:    d.Astro.Sunset,
				MoonPhase: d.Astro.MoonPhase,
			},
			Hourly: make([]model.HourlySlot, 0, len(d.Hour)),
		}
		for _, h := range d.Hour {
			day.Hourly = append(day.Hourly, model.HourlySlot{
				Time:       h.Time,
				Temp:       h.TempC,
				Condition:  model.Condition{Text: h.Condition.Text, Icon: absoluteIcon(h.Condition.Icon)},
				RainChance: h.ChanceOfRain,
				Humidity:   h.Humidity,
				Wind:       h.WindKPH,
				FeelsLike:  h.FeelsLikeC,
			})
		}
		w.Forecast = append(w.Forecast, day)
	}

	for _, a := range raw.Alerts.Alert {
		w.Alerts = append(w.Alerts, model.WeatherAlert{
			Headline:  a.Headline,
			Severity:  a.Severity,
			Event:     a.Event,
			Effective: a.Effective,
			Expires:   a.Expires,
			Desc:      a.Desc,
		})
	}

	return w
}

// Snapshot extracts the fields the yield analysis uses. RainChance is today's
// forecast chance of rain, or 0 when the forecast is empty.
func Snapshot(w *model.Weather) *model.WeatherSnapshot {
	snap := &model.WeatherSnapshot{
		Temperature: w.Current.Temperature,
		Humidity:    w.Current.Humidity,
		WindSpeed:   w.Current.WindSpeed,
		Condition:   w.Current.Condition.Text,
		Location:    w.Location.Name + ", " + w.Location.Region,
	}
	if len(w.Forecast) > 0 {
		snap.RainChance = w.Forecast[0].RainChance
	}
	return snap
}

// CacheControl is the response header value for a forecast kept maxAgeSecs.
func CacheControl(maxAgeSecs int) string {
	return "public, max-age=" + strconv.Itoa(maxAgeSecs)
}

func condition(c weatherapi.Condition) model.Condition {
	return model.Condition{Text: c.Text, Icon: absoluteIcon(c.Icon), Code: c.Code}
}

func absoluteIcon(icon string) string {
	if strings.HasPrefix(icon, "//") {
		return "https:" + icon
	}
	return icon
}
