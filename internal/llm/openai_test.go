package llm_test

// Notes:
// - Black-box tests against an httptest server speaking the chat completion API.
// - The real go-openai client is used so request encoding and error decoding
//   are exercised end to end.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-doctranslate/internal/apierr"
	"github.com/alnah/go-doctranslate/internal/llm"
)

// ---------------------------------------------------------------------------
// Helpers - mock chat completion server
// ---------------------------------------------------------------------------

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
}

func errorResponse(message, code string) map[string]any {
	return map[string]any{
		"error": map[string]any{"message": message, "type": "error", "code": code},
	}
}

type recordedCall struct {
	Model               string
	Temperature         float32
	MaxCompletionTokens int
	Messages            []openai.ChatCompletionMessage
}

type mockResp struct {
	status int
	body   any
}

type mockServer struct {
	*httptest.Server
	mu        sync.Mutex
	calls     []recordedCall
	responses []mockResp
}

func newMockServer(t *testing.T, responses ...mockResp) *mockServer {
	t.Helper()
	m := &mockServer{responses: responses}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		m.calls = append(m.calls, recordedCall{
			Model:               req.Model,
			Temperature:         req.Temperature,
			MaxCompletionTokens: req.MaxCompletionTokens,
			Messages:            req.Messages,
		})
		resp := mockResp{status: http.StatusOK, body: chatResponse("default")}
		if len(m.responses) > 0 {
			resp = m.responses[0]
			if len(m.responses) > 1 {
				m.responses = m.responses[1:]
			}
		}
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_ = json.NewEncoder(w).Encode(resp.body)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockServer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockServer) lastCall() recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return recordedCall{}
	}
	return m.calls[len(m.calls)-1]
}

func newCompleter(m *mockServer, opts ...llm.Option) *llm.OpenAI {
	client := llm.NewClient("test-key", m.URL+"/v1")
	opts = append([]llm.Option{llm.WithRetryDelays(time.Millisecond, time.Millisecond)}, opts...)
	return llm.NewOpenAI(client, opts...)
}

// ---------------------------------------------------------------------------
// Complete
// ---------------------------------------------------------------------------

func TestOpenAI_Complete(t *testing.T) {
	t.Parallel()

	t.Run("sends prompt as system and input as user", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t, mockResp{http.StatusOK, chatResponse("Hallo Welt")})
		c := newCompleter(srv)

		got, err := c.Complete(context.Background(), llm.Request{
			Prompt:      "Translate to German.",
			Input:       "Hello world",
			Temperature: 0.2,
		})
		if err != nil {
			t.Fatalf("Complete() unexpected error: %v", err)
		}
		if got != "Hallo Welt" {
			t.Errorf("Complete() = %q, want %q", got, "Hallo Welt")
		}

		call := srv.lastCall()
		if call.Model != llm.DefaultModel {
			t.Errorf("model = %q, want %q", call.Model, llm.DefaultModel)
		}
		if len(call.Messages) != 2 {
			t.Fatalf("sent %d messages, want 2", len(call.Messages))
		}
		if call.Messages[0].Role != openai.ChatMessageRoleSystem || call.Messages[0].Content != "Translate to German." {
			t.Errorf("system message = %+v", call.Messages[0])
		}
		if call.Messages[1].Role != openai.ChatMessageRoleUser || call.Messages[1].Content != "Hello world" {
			t.Errorf("user message = %+v", call.Messages[1])
		}
		if call.Temperature != 0.2 {
			t.Errorf("temperature = %v, want 0.2", call.Temperature)
		}
	})

	t.Run("empty input sends a single system message", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t)
		c := newCompleter(srv)

		if _, err := c.Complete(context.Background(), llm.Request{Prompt: "Write an email.", MaxOutputTokens: 4000}); err != nil {
			t.Fatalf("Complete() unexpected error: %v", err)
		}
		call := srv.lastCall()
		if len(call.Messages) != 1 {
			t.Errorf("sent %d messages, want 1", len(call.Messages))
		}
		if call.MaxCompletionTokens != 4000 {
			t.Errorf("max_completion_tokens = %d, want 4000", call.MaxCompletionTokens)
		}
	})

	t.Run("request model overrides default", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t)
		c := newCompleter(srv, llm.WithModel("gpt-4o"))

		if c.Model() != "gpt-4o" {
			t.Errorf("Model() = %q, want gpt-4o", c.Model())
		}
		if _, err := c.Complete(context.Background(), llm.Request{Prompt: "p", Input: "x", Model: "gpt-4.1"}); err != nil {
			t.Fatalf("Complete() unexpected error: %v", err)
		}
		if got := srv.lastCall().Model; got != "gpt-4.1" {
			t.Errorf("model = %q, want gpt-4.1", got)
		}
	})

	t.Run("reasoning model omits temperature", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t)
		c := newCompleter(srv)

		if _, err := c.Complete(context.Background(), llm.Request{Prompt: "p", Input: "x", Model: "o4-mini", Temperature: 0.2}); err != nil {
			t.Fatalf("Complete() unexpected error: %v", err)
		}
		if got := srv.lastCall().Temperature; got != 0 {
			t.Errorf("temperature = %v, want omitted", got)
		}
	})
}

func TestOpenAI_Complete_Retry(t *testing.T) {
	t.Parallel()

	t.Run("transient errors are retried until success", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t,
			mockResp{http.StatusTooManyRequests, errorResponse("slow down", "rate_limit_exceeded")},
			mockResp{http.StatusBadGateway, errorResponse("upstream", "")},
			mockResp{http.StatusOK, chatResponse("ok")},
		)
		c := newCompleter(srv)

		got, err := c.Complete(context.Background(), llm.Request{Prompt: "p", Input: "x"})
		if err != nil {
			t.Fatalf("Complete() unexpected error: %v", err)
		}
		if got != "ok" {
			t.Errorf("Complete() = %q, want ok", got)
		}
		if n := srv.callCount(); n != 3 {
			t.Errorf("server saw %d calls, want 3", n)
		}
	})

	t.Run("retries are bounded", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t, mockResp{http.StatusServiceUnavailable, errorResponse("down", "")})
		c := newCompleter(srv, llm.WithMaxRetries(2))

		_, err := c.Complete(context.Background(), llm.Request{Prompt: "p", Input: "x"})
		if !errors.Is(err, apierr.ErrServer) {
			t.Errorf("Complete() error = %v, want ErrServer", err)
		}
		if n := srv.callCount(); n != 3 {
			t.Errorf("server saw %d calls, want 3 (1 + 2 retries)", n)
		}
	})

	t.Run("permanent errors surface immediately", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t, mockResp{http.StatusUnauthorized, errorResponse("Incorrect API key", "invalid_api_key")})
		c := newCompleter(srv)

		_, err := c.Complete(context.Background(), llm.Request{Prompt: "p", Input: "x"})
		if !errors.Is(err, apierr.ErrAuthFailed) {
			t.Errorf("Complete() error = %v, want ErrAuthFailed", err)
		}
		if n := srv.callCount(); n != 1 {
			t.Errorf("server saw %d calls, want 1", n)
		}
	})

	t.Run("empty choices is malformed", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t, mockResp{http.StatusOK, map[string]any{"id": "x", "choices": []any{}}})
		c := newCompleter(srv)

		_, err := c.Complete(context.Background(), llm.Request{Prompt: "p", Input: "x"})
		if !errors.Is(err, apierr.ErrMalformedResponse) {
			t.Errorf("Complete() error = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		t.Parallel()
		srv := newMockServer(t, mockResp{http.StatusTooManyRequests, errorResponse("slow down", "")})
		c := newCompleter(srv, llm.WithRetryDelays(time.Hour, time.Hour))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.Complete(ctx, llm.Request{Prompt: "p", Input: "x"})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Complete() error = %v, want context.DeadlineExceeded", err)
		}
	})
}

// ---------------------------------------------------------------------------
// classifyError
// ---------------------------------------------------------------------------

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	apiErr := func(status int, msg string, code any) error {
		return &openai.APIError{HTTPStatusCode: status, Message: msg, Code: code}
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limit", apiErr(429, "Rate limit reached", "rate_limit_exceeded"), apierr.ErrRateLimit},
		{"quota by code", apiErr(429, "You exceeded your current plan", "insufficient_quota"), apierr.ErrQuotaExceeded},
		{"quota by message", apiErr(429, "check your billing details", nil), apierr.ErrQuotaExceeded},
		{"payment required", apiErr(402, "pay", nil), apierr.ErrQuotaExceeded},
		{"unauthorized", apiErr(401, "bad key", nil), apierr.ErrAuthFailed},
		{"request timeout", apiErr(408, "slow", nil), apierr.ErrTimeout},
		{"gateway timeout", apiErr(504, "slow", nil), apierr.ErrTimeout},
		{"server error", apiErr(500, "boom", nil), apierr.ErrServer},
		{"bad gateway", apiErr(502, "boom", nil), apierr.ErrServer},
		{"context length by code", apiErr(400, "too long", "context_length_exceeded"), apierr.ErrContextLength},
		{"context length by message", apiErr(400, "This model's maximum context length is 128000 tokens", nil), apierr.ErrContextLength},
		{"bad request", apiErr(400, "invalid param", nil), apierr.ErrBadRequest},
		{"not found", apiErr(404, "no such model", "model_not_found"), apierr.ErrBadRequest},
		{"raw body 503", &openai.RequestError{HTTPStatusCode: 503, Body: []byte("<html>down</html>")}, apierr.ErrServer},
		{"deadline", context.DeadlineExceeded, apierr.ErrTimeout},
		{"net timeout", fmt.Errorf("dial: %w", timeoutErr{}), apierr.ErrTimeout},
		{"net failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, apierr.ErrNetwork},
		{"invalid model", openai.ErrChatCompletionInvalidModel, apierr.ErrBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := llm.ClassifyError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		if got := llm.ClassifyError(nil); got != nil {
			t.Errorf("ClassifyError(nil) = %v, want nil", got)
		}
	})

	t.Run("cancellation passes through", func(t *testing.T) {
		t.Parallel()
		got := llm.ClassifyError(context.Canceled)
		if !errors.Is(got, context.Canceled) || apierr.IsProvider(got) {
			t.Errorf("ClassifyError(Canceled) = %v, want bare context.Canceled", got)
		}
	})
}

func TestIsReasoningModel(t *testing.T) {
	t.Parallel()

	for model, want := range map[string]bool{
		"gpt-4o-mini": false,
		"gpt-4.1":     false,
		"o1-mini":     true,
		"o3":          true,
		"o4-mini":     true,
		"gpt-5-mini":  true,
	} {
		if got := llm.IsReasoningModel(model); got != want {
			t.Errorf("IsReasoningModel(%q) = %v, want %v", model, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Injected client
// ---------------------------------------------------------------------------

type fakeChat struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	last := req.Messages[len(req.Messages)-1].Content
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "echo:" + last}}},
	}, nil
}

func TestOpenAI_WithClient(t *testing.T) {
	t.Parallel()

	fake := &fakeChat{}
	c := llm.NewOpenAI(nil, llm.WithClient(fake))

	got, err := c.Complete(context.Background(), llm.Request{Prompt: "p", Input: "hi"})
	if err != nil {
		t.Fatalf("Complete() unexpected error: %v", err)
	}
	if got != "echo:hi" {
		t.Errorf("Complete() = %q, want echo:hi", got)
	}
}
