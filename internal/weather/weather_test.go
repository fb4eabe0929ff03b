package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agrimate/internal/config"
	"github.com/sells-group/agrimate/internal/resilience"
	"github.com/sells-group/agrimate/pkg/weatherapi"
)

const forecastJSON = `{
  "location": {"name": "Karnal", "region": "Haryana", "country": "India", "lat": 29.69, "lon": 76.98, "localtime": "2026-10-16 11:00"},
  "current": {"temp_c": 29.0, "feelslike_c": 30.5, "humidity": 55, "wind_kph": 12.2, "wind_dir": "W", "pressure_mb": 1010, "uv": 6, "cloud": 10,
              "condition": {"text": "Sunny", "icon": "//cdn.weatherapi.com/weather/64x64/day/113.png", "code": 1000}, "is_day": 1},
  "forecast": {"forecastday": [
    {"date": "2026-10-16",
     "day": {"maxtemp_c": 32.0, "mintemp_c": 18.5, "avgtemp_c": 25.0, "maxwind_kph": 15.0, "totalprecip_mm": 1.2, "avghumidity": 50, "daily_chance_of_rain": 35,
             "condition": {"text": "Patchy rain possible", "icon": "//cdn.weatherapi.com/weather/64x64/day/176.png", "code": 1063}, "uv": 7},
     "astro": {"sunrise": "06:25 AM", "sunset": "05:45 PM", "moon_phase": "Full Moon"},
     "hour": [{"time": "2026-10-16 12:00", "temp_c": 30.1, "condition": {"text": "Sunny", "icon": "//cdn.weatherapi.com/weather/64x64/day/113.png"},
               "chance_of_rain": 10, "humidity": 48, "wind_kph": 11.0, "feelslike_c": 31.0}]},
    {"date": "2026-10-17", "day": {"maxtemp_c": 31.0, "daily_chance_of_rain": 80, "condition": {"text": "Rain", "icon": "//cdn.weatherapi.com/r.png"}}}
  ]},
  "alerts": {"alert": [{"headline": "Thunderstorm warning", "severity": "Severe", "event": "Storm", "effective": "e", "expires": "x", "desc": "Take shelter"}]}
}`

var fixedNow = time.Date(2026, 10, 16, 5, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(config.WeatherConfig{Key: "wx-key", BaseURL: ts.URL}, WithClock(func() time.Time { return fixedNow }))
}

func TestLocation(t *testing.T) {
	s := New(config.WeatherConfig{})

	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"lat and lon", Query{Lat: "30.9", Lon: "75.8", City: "Pune"}, "30.9,75.8"},
		{"lat only falls to city", Query{Lat: "30.9", City: "Pune"}, "Pune"},
		{"city", Query{City: " Nashik "}, "Nashik"},
		{"default", Query{}, "New Delhi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Location(tt.q))
		})
	}
}

func TestLocation_ConfiguredDefault(t *testing.T) {
	s := New(config.WeatherConfig{DefaultLocation: "Indore"})
	assert.Equal(t, "Indore", s.Location(Query{}))
}

func TestForecast_NoKey(t *testing.T) {
	s := New(config.WeatherConfig{})

	_, err := s.Forecast(context.Background(), Query{City: "Pune"})
	require.Error(t, err)
	assert.True(t, resilience.IsConfigError(err))
	assert.Equal(t, MsgNotConfigured, err.Error())
}

func TestForecast_Normalizes(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "29.69,76.98", q.Get("q"))
		assert.Equal(t, "5", q.Get("days"))
		assert.Equal(t, "yes", q.Get("alerts"))
		assert.Equal(t, "no", q.Get("aqi"))
		w.Write([]byte(forecastJSON)) //nolint:errcheck
	})

	got, err := s.Forecast(context.Background(), Query{Lat: "29.69", Lon: "76.98"})
	require.NoError(t, err)

	assert.Equal(t, "Karnal", got.Location.Name)
	assert.Equal(t, "Haryana", got.Location.Region)
	assert.InDelta(t, 29.0, got.Current.Temperature, 0.001)
	assert.InDelta(t, 12.2, got.Current.WindSpeed, 0.001)
	assert.True(t, got.Current.IsDay)
	assert.Equal(t, "https://cdn.weatherapi.com/weather/64x64/day/113.png", got.Current.Condition.Icon)
	assert.Equal(t, 1000, got.Current.Condition.Code)

	require.Len(t, got.Forecast, 2)
	day := got.Forecast[0]
	assert.Equal(t, "2026-10-16", day.Date)
	assert.InDelta(t, 35, day.RainChance, 0.001)
	assert.Equal(t, "https://cdn.weatherapi.com/weather/64x64/day/176.png", day.Condition.Icon)
	assert.Equal(t, "Full Moon", day.Astro.MoonPhase)
	require.Len(t, day.Hourly, 1)
	assert.Equal(t, "https://cdn.weatherapi.com/weather/64x64/day/113.png", day.Hourly[0].Condition.Icon)
	assert.InDelta(t, 31.0, day.Hourly[0].FeelsLike, 0.001)
	assert.Empty(t, got.Forecast[1].Hourly)

	require.Len(t, got.Alerts, 1)
	assert.Equal(t, "Thunderstorm warning", got.Alerts[0].Headline)
	assert.Equal(t, "2026-10-16T05:30:00Z", got.LastUpdated)
}

func TestForecast_UpstreamStatus(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":2008,"message":"API key has been disabled."}}`)) //nolint:errcheck
	})

	_, err := s.Forecast(context.Background(), Query{City: "Pune"})
	require.Error(t, err)
	assert.False(t, resilience.IsConfigError(err))
	assert.True(t, resilience.IsUpstreamUnavailable(err))
	assert.Equal(t, http.StatusForbidden, resilience.StatusCode(err))
}

func TestForecast_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"location only", `{"location":{"name":"New Delhi","region":"Delhi"}}`},
		{"no current", `{"location":{"name":"Karnal"},"forecast":{"forecastday":[{"date":"2026-10-16"}]}}`},
		{"no forecast", `{"location":{"name":"Karnal"},"current":{"temp_c":29}}`},
		{"no location", `{"current":{"temp_c":29},"forecast":{"forecastday":[{"date":"2026-10-16"}]}}`},
		{"empty forecast days", `{"location":{"name":"Karnal"},"current":{"temp_c":29},"forecast":{"forecastday":[]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body)) //nolint:errcheck
			})

			got, err := s.Forecast(context.Background(), Query{})
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, resilience.IsUpstreamUnavailable(err))
			assert.False(t, resilience.IsConfigError(err))
		})
	}
}

type blockingClient struct {
	calls atomic.Int32
}

func (b *blockingClient) Forecast(ctx context.Context, _ weatherapi.ForecastRequest) (*weatherapi.ForecastResponse, error) {
	b.calls.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestForecast_Timeout(t *testing.T) {
	fake := &blockingClient{}
	s := New(config.WeatherConfig{}, WithClient(fake))
	s.timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := s.Forecast(context.Background(), Query{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, resilience.IsUpstreamUnavailable(err))
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestSnapshot(t *testing.T) {
	var raw weatherapi.ForecastResponse
	raw.Location.Name = "Karnal"
	raw.Location.Region = "Haryana"
	raw.Current.TempC = 29
	raw.Current.Humidity = 55
	raw.Current.WindKPH = 12
	raw.Current.Condition.Text = "Sunny"

	snap := Snapshot(Normalize(&raw, fixedNow))
	assert.Equal(t, "Karnal, Haryana", snap.Location)
	assert.InDelta(t, 0, snap.RainChance, 0.001)
	assert.Equal(t, "Sunny", snap.Condition)

	raw.Forecast.ForecastDay = []weatherapi.ForecastDay{{}}
	raw.Forecast.ForecastDay[0].Day.DailyChanceOfRain = 60
	snap = Snapshot(Normalize(&raw, fixedNow))
	assert.InDelta(t, 60, snap.RainChance, 0.001)
}

func TestCacheControl(t *testing.T) {
	assert.Equal(t, "public, max-age=600", CacheControl(600))
}
