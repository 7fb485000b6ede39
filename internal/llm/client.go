// Package llm provides the model-client abstraction used by the LLM-backed
// cognitive checks: a single Generate operation with primary/fallback
// provider chaining under one shared deadline, and lenient parsing of model
// output. Callers never see distinct failure types; every failure mode
// collapses to an empty Content and an Err string, because every consumer
// fails open identically.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the per-call deadline applied by checks.
const DefaultTimeout = 30 * time.Second

// ProviderSpec describes one model endpoint. Provider selects the transport:
// "anthropic" uses the native SDK, anything else is treated as an
// OpenAI-chat-completions-compatible HTTP endpoint.
type ProviderSpec struct {
	Provider   string `json:"provider" yaml:"provider"`
	Model      string `json:"model" yaml:"model"`
	BaseURL    string `json:"baseUrl" yaml:"baseUrl"`
	TimeoutSec int    `json:"timeoutSec,omitempty" yaml:"timeoutSec,omitempty"`
	APIKey     string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
}

// ID returns the "<provider>/<model>" identifier used for attribution.
func (s ProviderSpec) ID() string {
	return s.Provider + "/" + s.Model
}

// Response is what every Generate call resolves to, success or not.
type Response struct {
	// Content is the raw model text; empty when the call failed.
	Content string
	// Model identifies which provider actually answered. When both providers
	// fail it names the primary, for attribution.
	Model string
	// Tokens is the provider's total token accounting, 0 when absent.
	Tokens int
	// DurationMS spans from the first attempt to this response, including
	// time burned on a failed primary before the fallback answered.
	DurationMS int64
	// Err is non-empty iff the call failed on every provider.
	Err string
}

// Failed reports whether the call produced no usable content.
func (r Response) Failed() bool {
	return r.Err != ""
}

// provider is one concrete transport.
type provider interface {
	id() string
	generate(ctx context.Context, systemPrompt, userPrompt string) (content string, tokens int, err error)
}

// Client chains a primary and an optional fallback provider. A semaphore
// bounds concurrent calls and a rate limiter spaces them out, so a host that
// embeds several orchestrators cannot stampede the endpoint.
type Client struct {
	primary  provider
	fallback provider
	timeout  time.Duration
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
}

// Options tunes client-level throttling.
type Options struct {
	// MaxConcurrent bounds in-flight Generate calls (default 2).
	MaxConcurrent int64
	// RequestsPerMinute spaces calls out (default 30).
	RequestsPerMinute float64
}

// NewClient builds a client from provider specs. The fallback spec may be
// zero, in which case only the primary is attempted.
func NewClient(primary, fallback ProviderSpec, opts Options) *Client {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 30
	}
	c := &Client{
		primary: newProvider(primary),
		timeout: DefaultTimeout,
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60.0), 1),
	}
	if primary.TimeoutSec > 0 {
		c.timeout = time.Duration(primary.TimeoutSec) * time.Second
	}
	if fallback.Model != "" {
		c.fallback = newProvider(fallback)
	}
	return c
}

func newProvider(spec ProviderSpec) provider {
	if spec.Provider == "anthropic" {
		return newAnthropicProvider(spec)
	}
	return newOpenAIProvider(spec)
}

// Generate sends the prompts to the primary provider and, on any failure,
// retries once against the fallback with the same prompts and the same
// deadline. There is no third attempt. The call either resolves with content
// or resolves with an error inside the timeout; it never hangs past it.
// timeout <= 0 means the client's configured per-call timeout: the primary
// descriptor's timeoutSec, or DefaultTimeout when unset.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, timeout time.Duration) Response {
	if timeout <= 0 {
		timeout = c.timeout
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return failedResponse(c.primary.id(), start, fmt.Sprintf("acquiring call slot: %v", err))
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return failedResponse(c.primary.id(), start, fmt.Sprintf("rate limit wait: %v", err))
	}

	content, tokens, primaryErr := c.primary.generate(ctx, systemPrompt, userPrompt)
	if primaryErr == nil {
		return Response{
			Content:    content,
			Model:      c.primary.id(),
			Tokens:     tokens,
			DurationMS: millisSince(start),
		}
	}
	slog.Warn("primary LLM provider failed", "provider", c.primary.id(), "error", primaryErr)

	if c.fallback == nil {
		return failedResponse(c.primary.id(), start, fmt.Sprintf("%s: %v", c.primary.id(), primaryErr))
	}

	content, tokens, fallbackErr := c.fallback.generate(ctx, systemPrompt, userPrompt)
	if fallbackErr == nil {
		return Response{
			Content:    content,
			Model:      c.fallback.id(),
			Tokens:     tokens,
			DurationMS: millisSince(start),
		}
	}
	slog.Warn("fallback LLM provider failed", "provider", c.fallback.id(), "error", fallbackErr)

	return failedResponse(c.primary.id(), start, fmt.Sprintf("%s: %v; %s: %v",
		c.primary.id(), primaryErr, c.fallback.id(), fallbackErr))
}

func failedResponse(model string, start time.Time, errMsg string) Response {
	return Response{
		Model:      model,
		DurationMS: millisSince(start),
		Err:        errMsg,
	}
}

// millisSince rounds sub-millisecond calls up to 1ms so duration accounting
// stays strictly positive.
func millisSince(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms <= 0 {
		return 1
	}
	return ms
}
