package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agrimate/internal/config"
	"github.com/sells-group/agrimate/internal/metrics"
	"github.com/sells-group/agrimate/internal/model"
	"github.com/sells-group/agrimate/internal/resilience"
	"github.com/sells-group/agrimate/pkg/anthropic"
	"github.com/sells-group/agrimate/pkg/chatcompletion"
)

// maxErrorBody bounds how much of an upstream error body is kept in messages.
const maxErrorBody = 200

// Provider is one chat backend in the chain.
type Provider interface {
	Name() string
	// Complete sends msgs in a single attempt and returns the raw reply text.
	// An empty reply is reported as an error.
	Complete(ctx context.Context, msgs []model.ChatMessage) (string, error)
}

// OpenAIProvider talks to an OpenAI-compatible endpoint (NVIDIA NIM, Groq).
type OpenAIProvider struct {
	cfg    config.ProviderConfig
	client chatcompletion.Client
}

// NewOpenAIProvider builds a provider from its config block.
func NewOpenAIProvider(cfg config.ProviderConfig, opts ...chatcompletion.Option) *OpenAIProvider {
	opts = append([]chatcompletion.Option{
		chatcompletion.WithBaseURL(cfg.BaseURL),
		chatcompletion.WithModel(cfg.Model),
	}, opts...)
	return &OpenAIProvider{cfg: cfg, client: chatcompletion.NewClient(cfg.Key, opts...)}
}

func (p *OpenAIProvider) Name() string { return p.cfg.Name }

func (p *OpenAIProvider) Complete(ctx context.Context, msgs []model.ChatMessage) (string, error) {
	req := chatcompletion.ChatCompletionRequest{
		Model:            p.cfg.Model,
		Messages:         make([]chatcompletion.Message, len(msgs)),
		TopP:             p.cfg.TopP,
		FrequencyPenalty: p.cfg.FrequencyPenalty,
		PresencePenalty:  p.cfg.PresencePenalty,
	}
	for i, m := range msgs {
		req.Messages[i] = chatcompletion.Message{Role: string(m.Role), Content: m.Content}
	}
	if p.cfg.Temperature > 0 {
		temp := p.cfg.Temperature
		req.Temperature = &temp
	}
	if p.cfg.MaxTokens > 0 {
		maxTokens := p.cfg.MaxTokens
		req.MaxTokens = &maxTokens
	}

	start := time.Now()
	resp, err := p.client.ChatCompletion(ctx, req)
	metrics.UpstreamDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	if err != nil {
		var apiErr *chatcompletion.APIError
		if errors.As(err, &apiErr) {
			return "", statusError(p.Name(), apiErr.StatusCode, apiErr.Body)
		}
		return "", transportError(p.Name(), err)
	}

	content := resp.Content()
	if content == "" {
		return "", emptyError(p.Name())
	}
	return content, nil
}

// AnthropicProvider talks to the Anthropic Messages API. System turns are
// folded into the request's system prompt.
type AnthropicProvider struct {
	cfg    config.AnthropicConfig
	client anthropic.Client
}

// NewAnthropicProvider builds a provider from its config block.
func NewAnthropicProvider(cfg config.AnthropicConfig, opts ...anthropic.Option) *AnthropicProvider {
	if cfg.BaseURL != "" {
		opts = append([]anthropic.Option{anthropic.WithBaseURL(cfg.BaseURL)}, opts...)
	}
	return &AnthropicProvider{cfg: cfg, client: anthropic.NewClient(cfg.Key, opts...)}
}

func (p *AnthropicProvider) Name() string { return p.cfg.Name }

func (p *AnthropicProvider) Complete(ctx context.Context, msgs []model.ChatMessage) (string, error) {
	req := anthropic.MessageRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
	}
	var system []string
	for _, m := range msgs {
		if m.Role == model.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, anthropic.Message{Role: string(m.Role), Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")
	if p.cfg.Temperature > 0 {
		temp := p.cfg.Temperature
		req.Temperature = &temp
	}

	start := time.Now()
	resp, err := p.client.CreateMessage(ctx, req)
	metrics.UpstreamDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	if err != nil {
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			return "", statusError(p.Name(), apiErr.StatusCode, apiErr.Body)
		}
		return "", transportError(p.Name(), err)
	}

	content := resp.Text()
	if content == "" {
		return "", emptyError(p.Name())
	}
	return content, nil
}

func statusError(name string, status int, body string) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return resilience.NewUpstreamError(fmt.Errorf("%s error %d: %s", name, status, body), status)
}

func transportError(name string, err error) error {
	return resilience.NewUpstreamError(eris.Wrapf(err, "%s request failed", name), 0)
}

func emptyError(name string) error {
	return resilience.NewUpstreamError(fmt.Errorf("%s returned empty response", name), 0)
}
