package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/agrimate/internal/cache"
	"github.com/sells-group/agrimate/internal/conversation"
	"github.com/sells-group/agrimate/internal/llm"
	"github.com/sells-group/agrimate/internal/mandi"
	"github.com/sells-group/agrimate/internal/store"
	"github.com/sells-group/agrimate/internal/weather"
	"github.com/sells-group/agrimate/internal/yield"
)

// appEnv holds the services shared by the serve and CLI commands.
type appEnv struct {
	Chain   *llm.Chain
	Weather *weather.Service
	Mandi   *mandi.Service
	Yield   *yield.Analyzer
	Cache   cache.Cache
	Store   store.KV // nil unless opened with history
	History *conversation.Store
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp builds the provider chain and data services from cfg. With
// withHistory it also opens the conversation store. Callers should defer
// env.Close().
func initApp(ctx context.Context, withHistory bool) (*appEnv, error) {
	env := &appEnv{Cache: initCache(ctx)}

	env.Chain = llm.FromConfig(cfg.LLM)
	env.Weather = weather.New(cfg.Weather)
	env.Mandi = mandi.New(cfg.Mandi, mandi.WithCache(env.Cache))
	env.Yield = yield.NewAnalyzer(env.Weather, env.Mandi, env.Chain)

	if names := env.Chain.Providers(); len(names) > 0 {
		zap.L().Info("llm providers configured", zap.Strings("providers", names))
	} else {
		zap.L().Warn("no llm providers configured; chat requests will fail")
	}

	if withHistory {
		kv, err := store.Open(ctx, cfg.Store)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Store = kv
		env.History = conversation.Open(ctx, kv)
	}

	return env, nil
}

// initCache connects to Redis when configured. Connection failures fall back
// to no caching.
func initCache(ctx context.Context) cache.Cache {
	if cfg.Redis.URL == "" {
		return cache.Nop{}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rc, err := cache.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		zap.L().Warn("redis unavailable, caching disabled", zap.Error(err))
		return cache.Nop{}
	}
	return rc
}
