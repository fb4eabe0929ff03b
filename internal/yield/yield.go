// Package yield produces crop recommendations by combining live weather,
// mandi prices and a language model's analysis.
package yield

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/agrimate/internal/llm"
	"github.com/sells-group/agrimate/internal/mandi"
	"github.com/sells-group/agrimate/internal/model"
	"github.com/sells-group/agrimate/internal/weather"
)

const marketLimit = 50

// WeatherSource returns a normalized forecast.
type WeatherSource interface {
	Forecast(ctx context.Context, q weather.Query) (*model.Weather, error)
}

// MarketSource returns mandi prices. It never fails.
type MarketSource interface {
	Prices(ctx context.Context, q model.MandiQuery) *model.MandiResponse
}

// Chatter sends a single chat turn.
type Chatter interface {
	Chat(ctx context.Context, message string, history []model.ChatMessage) (llm.Result, error)
}

// Analyzer runs yield analyses.
type Analyzer struct {
	weather WeatherSource
	market  MarketSource
	chat    Chatter
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(w WeatherSource, m MarketSource, c Chatter) *Analyzer {
	return &Analyzer{weather: w, market: m, chat: c}
}

// Analyze fetches weather and market snapshots concurrently, asks the model
// for a recommendation and parses it leniently. Unavailable sources and model
// failures degrade to nil snapshots and default values; Analyze never fails.
func (a *Analyzer) Analyze(ctx context.Context, in model.FarmInput) *model.YieldAnalysis {
	ws, ms := a.snapshots(ctx, in.Crop)

	var raw, provider string
	res, err := a.chat.Chat(ctx, BuildPrompt(in, ws, ms), nil)
	if err != nil {
		zap.L().Warn("yield: analysis unavailable", zap.String("crop", in.Crop), zap.Error(err))
	} else {
		raw, provider = res.Reply, res.Provider
	}

	p := Parse(raw)
	return &model.YieldAnalysis{
		Weather:         ws,
		Market:          ms,
		AIAnalysis:      raw,
		Recommendation:  p.Recommendation,
		SoilMoisture:    p.SoilMoisture,
		YieldProjection: p.YieldProjection,
		FullAnalysis:    p.FullAnalysis,
		Provider:        provider,
	}
}

func (a *Analyzer) snapshots(ctx context.Context, crop string) (*model.WeatherSnapshot, *model.MarketSnapshot) {
	var (
		ws *model.WeatherSnapshot
		ms *model.MarketSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := a.weather.Forecast(gctx, weather.Query{})
		if err != nil {
			zap.L().Warn("yield: weather unavailable", zap.Error(err))
			return nil
		}
		ws = weather.Snapshot(w)
		return nil
	})
	g.Go(func() error {
		resp := a.market.Prices(gctx, model.MandiQuery{Commodity: crop, Limit: marketLimit})
		if resp == nil {
			return nil
		}
		ms = mandi.Snapshot(resp.Records)
		if ms == nil {
			zap.L().Warn("yield: no market records", zap.String("crop", crop))
		}
		return nil
	})
	_ = g.Wait()

	return ws, ms
}
