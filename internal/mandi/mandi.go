// Package mandi serves daily commodity prices from data.gov.in, falling back
// to a representative price table when the live feed is unavailable.
package mandi

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agrimate/internal/cache"
	"github.com/sells-group/agrimate/internal/config"
	"github.com/sells-group/agrimate/internal/metrics"
	"github.com/sells-group/agrimate/internal/model"
	"github.com/sells-group/agrimate/internal/resilience"
	"github.com/sells-group/agrimate/pkg/datagov"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultCacheTTL = 5 * time.Minute
	defaultLimit    = 50
)

// Service answers price queries. It never fails: any problem with the live
// feed yields fallback records.
type Service struct {
	client       datagov.Client
	cache        cache.Cache
	table        *Table
	timeout      time.Duration
	cacheTTL     time.Duration
	defaultLimit int
	now          func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithClient replaces the data.gov.in client.
func WithClient(c datagov.Client) Option {
	return func(s *Service) {
		s.client = c
	}
}

// WithCache stores live responses in c.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithRand sets the jitter source for fallback prices.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		s.rng = rng
	}
}

// WithClock sets the time source for arrival dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTable replaces the fallback table.
func WithTable(t *Table) Option {
	return func(s *Service) {
		s.table = t
	}
}

// New creates a Service. Without an API key only fallback data is served.
func New(cfg config.MandiConfig, opts ...Option) *Service {
	s := &Service{
		cache:        cache.Nop{},
		timeout:      time.Duration(cfg.TimeoutSecs) * time.Second,
		cacheTTL:     time.Duration(cfg.CacheTTLSecs) * time.Second,
		defaultLimit: cfg.DefaultLimit,
		now:          time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = defaultCacheTTL
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = defaultLimit
	}
	if cfg.Key != "" {
		var clientOpts []datagov.Option
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, datagov.WithBaseURL(cfg.BaseURL))
		}
		if cfg.ResourceID != "" {
			clientOpts = append(clientOpts, datagov.WithResourceID(cfg.ResourceID))
		}
		s.client = datagov.NewClient(cfg.Key, clientOpts...)
	}
	for _, o := range opts {
		o(s)
	}
	if s.table == nil {
		s.table = DefaultTable()
	}
	return s
}

// Prices returns records matching q, live when possible.
func (s *Service) Prices(ctx context.Context, q model.MandiQuery) *model.MandiResponse {
	if q.Limit <= 0 {
		q.Limit = s.defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	resp, err := s.live(ctx, q)
	if err == nil {
		return resp
	}
	zap.L().Warn("mandi: live feed unavailable, using fallback data",
		zap.String("commodity", q.Commodity),
		zap.String("state", q.State),
		zap.Int("status", resilience.StatusCode(err)),
		zap.Error(err),
	)
	return s.Fallback(q)
}

// Fallback builds a response from the representative table. Only the
// commodity and state filters apply.
func (s *Service) Fallback(q model.MandiQuery) *model.MandiResponse {
	now := s.now()

	s.mu.Lock()
	records := s.table.Records(q.Commodity, q.State, s.rng, now)
	s.mu.Unlock()

	metrics.MandiResponses.WithLabelValues("fallback").Inc()
	return &model.MandiResponse{
		Records:     nonNil(records),
		Total:       len(records),
		Count:       len(records),
		Filters:     Filters(records),
		Source:      model.MandiSourceFallback,
		LastUpdated: now.UTC().Format(time.RFC3339),
		Live:        false,
	}
}

func (s *Service) live(ctx context.Context, q model.MandiQuery) (*model.MandiResponse, error) {
	if s.client == nil {
		return nil, eris.New("mandi: no API key")
	}

	key := cacheKey(q)
	var cached model.MandiResponse
	if ok, err := cache.GetJSON(ctx, s.cache, key, &cached); err != nil {
		zap.L().Warn("mandi: cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		metrics.MandiResponses.WithLabelValues("cache").Inc()
		return &cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.client.Records(ctx, datagov.RecordsRequest{
		Commodity: q.Commodity,
		State:     q.State,
		Market:    q.Market,
		District:  q.District,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	metrics.UpstreamDuration.WithLabelValues("mandi").Observe(time.Since(start).Seconds())
	if err != nil {
		var apiErr *datagov.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.NewUpstreamError(eris.Wrap(err, "mandi: fetch prices"), apiErr.StatusCode)
		}
		return nil, resilience.NewUpstreamError(eris.Wrap(err, "mandi: fetch prices"), 0)
	}
	if len(raw.Records) == 0 {
		return nil, eris.New("mandi: empty response")
	}

	records := make([]model.MandiRecord, len(raw.Records))
	for i, r := range raw.Records {
		records[i] = model.MandiRecord{
			State:       r.State,
			District:    r.District,
			Market:      r.Market,
			Commodity:   r.Commodity,
			Variety:     r.Variety,
			Grade:       r.Grade,
			ArrivalDate: r.ArrivalDate,
			MinPrice:    r.MinPrice,
			MaxPrice:    r.MaxPrice,
			ModalPrice:  r.ModalPrice,
		}
	}

	resp := &model.MandiResponse{
		Records:     records,
		Total:       orLen(raw.Total, records),
		Count:       orLen(raw.Count, records),
		Filters:     Filters(records),
		Source:      model.MandiSourceLive,
		LastUpdated: raw.UpdatedDate,
		Live:        true,
	}
	if resp.LastUpdated == "" {
		resp.LastUpdated = s.now().UTC().Format(time.RFC3339)
	}

	if err := cache.SetJSON(ctx, s.cache, key, resp, s.cacheTTL); err != nil {
		zap.L().Warn("mandi: cache write failed", zap.String("key", key), zap.Error(err))
	}
	metrics.MandiResponses.WithLabelValues("live").Inc()
	return resp, nil
}

// Filters collects the sorted distinct states, commodities and markets in
// records.
func Filters(records []model.MandiRecord) model.MandiFilters {
	states := map[string]struct{}{}
	commodities := map[string]struct{}{}
	markets := map[string]struct{}{}
	for _, r := range records {
		states[r.State] = struct{}{}
		commodities[r.Commodity] = struct{}{}
		markets[r.Market] = struct{}{}
	}
	return model.MandiFilters{
		States:      sortedKeys(states),
		Commodities: sortedKeys(commodities),
		Markets:     sortedKeys(markets),
	}
}

// Snapshot summarizes records for the yield analysis. It returns nil when
// there are no records.
func Snapshot(records []model.MandiRecord) *model.MarketSnapshot {
	if len(records) == 0 {
		return nil
	}
	snap := &model.MarketSnapshot{
		MinPrice:    records[0].MinPrice,
		MaxPrice:    records[0].MaxPrice,
		RecordCount: len(records),
	}
	var sum float64
	for _, r := range records {
		sum += r.ModalPrice
		if r.MinPrice < snap.MinPrice {
			snap.MinPrice = r.MinPrice
		}
		if r.MaxPrice > snap.MaxPrice {
			snap.MaxPrice = r.MaxPrice
		}
	}
	snap.AvgPrice = roundHalfUp(sum / float64(len(records)))
	return snap
}

func cacheKey(q model.MandiQuery) string {
	return fmt.Sprintf("mandi:%s|%s|%s|%s|%d|%d",
		strings.ToLower(q.Commodity), strings.ToLower(q.State),
		strings.ToLower(q.Market), strings.ToLower(q.District),
		q.Limit, q.Offset)
}

func orLen(n int, records []model.MandiRecord) int {
	if n > 0 {
		return n
	}
	return len(records)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nonNil(records []model.MandiRecord) []model.MandiRecord {
	if records == nil {
		return []model.MandiRecord{}
	}
	return records
}
