// Package llm sends chat requests through an ordered list of language model
// providers, returning the first successful reply.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agrimate/internal/config"
	"github.com/sells-group/agrimate/internal/metrics"
	"github.com/sells-group/agrimate/internal/model"
	"github.com/sells-group/agrimate/internal/resilience"
)

const (
	defaultHistoryLimit = 20
	defaultCallTimeout  = 60 * time.Second
)

// Error messages returned to API callers.
const (
	MsgMessageRequired = "Message is required."
	MsgNoProviders     = "No AI API keys configured. Add NVIDIA_API_KEY or GROQ_API_KEY to .env.local"
)

// ErrMessageRequired is returned when the user message is blank.
var ErrMessageRequired = eris.New(MsgMessageRequired)

// ExhaustedError is returned when every provider failed. Err is the last
// provider's failure.
type ExhaustedError struct {
	Err error
}

func (e *ExhaustedError) Error() string {
	msg := "Unknown"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return "All AI providers failed. Last error: " + msg
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Result is a successful completion.
type Result struct {
	Reply    string
	Provider string
}

// Chain tries providers in a fixed order.
type Chain struct {
	providers    []Provider
	system       string
	historyLimit int
	callTimeout  time.Duration
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithSystemInstruction sets the system turn prepended by Chat.
func WithSystemInstruction(s string) ChainOption {
	return func(c *Chain) {
		c.system = s
	}
}

// WithHistoryLimit sets how many prior turns Chat forwards.
func WithHistoryLimit(n int) ChainOption {
	return func(c *Chain) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithCallTimeout bounds each individual provider call.
func WithCallTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// NewChain creates a chain over providers, tried in slice order.
func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		providers:    append([]Provider(nil), providers...),
		system:       SystemInstruction,
		historyLimit: defaultHistoryLimit,
		callTimeout:  defaultCallTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FromConfig builds the production chain: NVIDIA first, then Groq, then
// Anthropic, each only when its key is set.
func FromConfig(cfg config.LLMConfig) *Chain {
	var providers []Provider
	if cfg.NVIDIA.Key != "" {
		providers = append(providers, NewOpenAIProvider(cfg.NVIDIA))
	}
	if cfg.Groq.Key != "" {
		providers = append(providers, NewOpenAIProvider(cfg.Groq))
	}
	if cfg.Anthropic.Key != "" {
		providers = append(providers, NewAnthropicProvider(cfg.Anthropic))
	}
	return NewChain(providers,
		WithHistoryLimit(cfg.HistoryLimit),
		WithCallTimeout(time.Duration(cfg.TimeoutSecs)*time.Second),
	)
}

// Providers returns the provider names in attempt order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Chat answers message in the context of history. The request sent is the
// system instruction, the most recent history turns, then message.
func (c *Chain) Chat(ctx context.Context, message string, history []model.ChatMessage) (Result, error) {
	if strings.TrimSpace(message) == "" {
		return Result{}, ErrMessageRequired
	}
	return c.Complete(ctx, c.BuildMessages(message, history))
}

// BuildMessages assembles the turn list Chat sends.
func (c *Chain) BuildMessages(message string, history []model.ChatMessage) []model.ChatMessage {
	if len(history) > c.historyLimit {
		history = history[len(history)-c.historyLimit:]
	}
	msgs := make([]model.ChatMessage, 0, len(history)+2)
	if c.system != "" {
		msgs = append(msgs, model.ChatMessage{Role: model.RoleSystem, Content: c.system})
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, model.ChatMessage{Role: model.RoleUser, Content: message})
	return msgs
}

// Complete sends msgs to each provider in order until one succeeds. Each
// provider gets exactly one attempt. With no providers it returns a
// ConfigError without making any call.
func (c *Chain) Complete(ctx context.Context, msgs []model.ChatMessage) (Result, error) {
	if len(c.providers) == 0 {
		return Result{}, resilience.NewConfigError(MsgNoProviders)
	}

	var lastErr error
	for _, p := range c.providers {
		zap.L().Debug("llm: trying provider", zap.String("provider", p.Name()))

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		reply, err := p.Complete(callCtx, msgs)
		cancel()

		if err != nil {
			lastErr = err
			metrics.ProviderAttempts.WithLabelValues(p.Name(), "error").Inc()
			zap.L().Warn("llm: provider failed",
				zap.String("provider", p.Name()),
				zap.Int("status", resilience.StatusCode(err)),
				zap.Bool("unavailable", resilience.IsUpstreamUnavailable(err)),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		metrics.ProviderAttempts.WithLabelValues(p.Name(), "success").Inc()
		zap.L().Info("llm: provider responded", zap.String("provider", p.Name()))
		return Result{Reply: StripReasoning(reply), Provider: p.Name()}, nil
	}

	metrics.ChainExhausted.Inc()
	return Result{}, &ExhaustedError{Err: lastErr}
}
