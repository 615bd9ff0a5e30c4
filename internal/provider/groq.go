package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"codebot/internal/domain"
	"codebot/internal/metrics"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultHTTPTimeout = 120 * time.Second

// Groq implements domain.Completer for Groq's OpenAI-compatible chat API.
// One call per Complete; retrying is the Retrier's job.
type Groq struct {
	client openai.Client
	logger *slog.Logger
}

type GroqConfig struct {
	APIKey     string
	APIBase    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, tests inject httptest clients
	Logger     *slog.Logger
}

func NewGroq(cfg GroqConfig) *Groq {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.groq.com/openai/v1"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = pooledHTTPClient(cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.APIBase),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(0),
	)
	return &Groq{
		client: client,
		logger: cfg.Logger.With("component", "groq"),
	}
}

func (g *Groq) Name() string { return "groq" }

// Healthy lists models to verify the key and base URL without spending tokens.
func (g *Groq) Healthy(ctx context.Context) error {
	if _, err := g.client.Models.List(ctx); err != nil {
		return fmt.Errorf("groq not reachable: %w", err)
	}
	return nil
}

// Complete sends the payload once and classifies the outcome. A response
// without choices is a success with empty text.
func (g *Groq) Complete(ctx context.Context, req domain.CompletionRequest) domain.CompletionResult {
	if err := req.Payload.Validate(); err != nil {
		return domain.Fail(domain.UpstreamError, err.Error())
	}

	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: toChatMessages(req.Payload),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	params.Temperature = openai.Float(req.Temperature)

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	metrics.ObserveCompletion(start)
	if err != nil {
		res := classify(err)
		g.logger.Warn("completion call failed",
			"kind", res.Failure.Kind, "detail", res.Failure.Detail,
			"duration", time.Since(start))
		return res
	}

	if len(resp.Choices) == 0 {
		g.logger.Warn("completion returned no choices", "model", req.Model)
		return domain.Success("")
	}
	g.logger.Debug("completion ok",
		"model", req.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start))
	return domain.Success(resp.Choices[0].Message.Content)
}

func toChatMessages(p domain.ConversationPayload) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(p))
	for _, m := range p {
		switch m.Role {
		case domain.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// classify maps an SDK error onto a failure kind. Only rate limiting is
// retryable; everything else, transport errors included, is UpstreamError.
func classify(err error) domain.CompletionResult {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		detail := fmt.Sprintf("HTTP %d", apiErr.StatusCode)
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			detail += ": " + truncate(msg, 200)
		}
		if isRateLimit(apiErr) {
			return domain.Fail(domain.RateLimited, detail)
		}
		return domain.Fail(domain.UpstreamError, detail)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Fail(domain.UpstreamError, err.Error())
	}
	return domain.Fail(domain.UpstreamError, "transport: "+truncate(err.Error(), 200))
}

func isRateLimit(apiErr *openai.Error) bool {
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	switch strings.ToLower(apiErr.Code) {
	case "rate_limit_exceeded", "insufficient_quota":
		return true
	}
	return false
}

// truncate keeps at most n bytes of s without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// pooledHTTPClient keeps a small idle pool; the bot talks to a single host.
func pooledHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
