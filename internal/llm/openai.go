package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-doctranslate/internal/apierr"
	"github.com/alnah/go-doctranslate/internal/logger"
)

// OpenAI defaults.
const (
	DefaultModel = "gpt-4o-mini"

	defaultMaxRetries  = 3
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultHTTPTimeout = 5 * time.Minute
)

// chatCompleter is the subset of *openai.Client used here.
// Tests inject fakes through it.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Completer     = (*OpenAI)(nil)
	_ chatCompleter = (*openai.Client)(nil)
)

// OpenAI completes requests through an OpenAI-compatible chat completion API.
// Transient failures are retried with exponential backoff.
type OpenAI struct {
	client     chatCompleter
	model      string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        logger.Logger
}

// Option configures an OpenAI completer.
type Option func(*OpenAI)

// WithModel sets the model used when a Request does not name one.
func WithModel(model string) Option {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(o *OpenAI) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) Option {
	return func(o *OpenAI) {
		if base > 0 {
			o.baseDelay = base
		}
		if max > 0 {
			o.maxDelay = max
		}
	}
}

// WithLogger sets the logger used for retry events.
func WithLogger(l logger.Logger) Option {
	return func(o *OpenAI) {
		if l != nil {
			o.log = l
		}
	}
}

// withClient replaces the underlying client (for testing).
func withClient(c chatCompleter) Option {
	return func(o *OpenAI) {
		o.client = c
	}
}

// NewClient builds a go-openai client. An empty baseURL uses api.openai.com.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	return openai.NewClientWithConfig(cfg)
}

// NewOpenAI creates a completer over client.
func NewOpenAI(client *openai.Client, opts ...Option) *OpenAI {
	o := &OpenAI{
		client:     client,
		model:      DefaultModel,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Model returns the default model of this completer.
func (o *OpenAI) Model() string {
	return o.model
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, r Request) (string, error) {
	req := o.buildRequest(r)

	cfg := apierr.RetryConfig{
		MaxRetries: o.maxRetries,
		BaseDelay:  o.baseDelay,
		MaxDelay:   o.maxDelay,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			o.log.Warn("retrying completion", "model", req.Model, "attempt", attempt, "delay", delay, "err", err)
		},
	}

	return apierr.Retry(ctx, cfg, func() (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices in response: %w", apierr.ErrMalformedResponse)
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func (o *OpenAI) buildRequest(r Request) openai.ChatCompletionRequest {
	model := r.Model
	if model == "" {
		model = o.model
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: r.Prompt},
	}
	if r.Input != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: r.Input})
	}

	req := openai.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: r.MaxOutputTokens,
	}
	// Reasoning models reject any temperature other than the default.
	if !isReasoningModel(model) {
		req.Temperature = r.Temperature
	}
	return req
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// classifyError maps go-openai errors to apierr sentinels.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, apiErr.Code, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, string(reqErr.Body), nil, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%v: %w", err, apierr.ErrTimeout)
		}
		return fmt.Errorf("%v: %w", err, apierr.ErrNetwork)
	}
	if errors.Is(err, openai.ErrReasoningModelLimitationsOther) ||
		errors.Is(err, openai.ErrReasoningModelMaxTokensDeprecated) ||
		errors.Is(err, openai.ErrChatCompletionInvalidModel) {
		return fmt.Errorf("%v: %w", err, apierr.ErrBadRequest)
	}
	return err
}

func classifyStatus(status int, msg string, code any, err error) error {
	if msg == "" {
		msg = err.Error()
	}
	switch {
	case status == http.StatusTooManyRequests:
		// Billing problems share 429 with throttling but need user action.
		if code == "insufficient_quota" || strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
			return fmt.Errorf("%s: %w", msg, apierr.ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, apierr.ErrRateLimit)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%s: %w", msg, apierr.ErrQuotaExceeded)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, apierr.ErrAuthFailed)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, apierr.ErrTimeout)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%s: %w", msg, apierr.ErrServer)
	case status == http.StatusBadRequest:
		if code == "context_length_exceeded" ||
			strings.Contains(msg, "context_length") ||
			strings.Contains(msg, "maximum context length") {
			return fmt.Errorf("%s: %w", msg, apierr.ErrContextLength)
		}
		return fmt.Errorf("%s: %w", msg, apierr.ErrBadRequest)
	case status >= http.StatusBadRequest:
		return fmt.Errorf("%s: %w", msg, apierr.ErrBadRequest)
	}
	return err
}
