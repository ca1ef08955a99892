package cli

import (
	"context"
	"strings"
	"sync"

	"github.com/alnah/go-doctranslate/internal/chunk"
	"github.com/alnah/go-doctranslate/internal/config"
	"github.com/alnah/go-doctranslate/internal/llm"
	"github.com/alnah/go-doctranslate/internal/logger"
	"github.com/alnah/go-doctranslate/internal/memo"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return testConfig(), nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock CompleterFactory + Completer
// ---------------------------------------------------------------------------

type mockCompleterFactory struct {
	completer *mockCompleter

	mu       sync.Mutex
	apiKeys  []string
	baseURLs []string
}

func (m *mockCompleterFactory) NewCompleter(apiKey, baseURL string, _ logger.Logger) llm.Completer {
	m.mu.Lock()
	m.apiKeys = append(m.apiKeys, apiKey)
	m.baseURLs = append(m.baseURLs, baseURL)
	m.mu.Unlock()

	if m.completer == nil {
		m.completer = &mockCompleter{}
	}
	return m.completer
}

func (m *mockCompleterFactory) APIKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.apiKeys...)
}

func (m *mockCompleterFactory) BaseURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.baseURLs...)
}

// mockCompleter upper-cases the input by default, so outputs are easy to
// recognize. Prompt-only requests (email) return a fixed body.
type mockCompleter struct {
	CompleteFunc func(ctx context.Context, r llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
}

func (m *mockCompleter) Complete(ctx context.Context, r llm.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, r)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, r)
	}
	if r.Input == "" {
		return "  Sehr geehrte Damen und Herren  \n", nil
	}
	return strings.ToUpper(r.Input), nil
}

func (m *mockCompleter) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// ---------------------------------------------------------------------------
// Mock TokenizerFactory
// ---------------------------------------------------------------------------

// runeTokenizer maps every rune to one token id.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids, nil
}

func (runeTokenizer) Decode(ids []int) (string, error) {
	runes := make([]rune, len(ids))
	for i, id := range ids {
		runes[i] = rune(id)
	}
	return string(runes), nil
}

func (runeTokenizer) Name() string { return "runes" }

var _ chunk.Tokenizer = runeTokenizer{}

type mockTokenizerFactory struct {
	Err error

	mu     sync.Mutex
	models []string
}

func (m *mockTokenizerFactory) NewTokenizer(model string) (chunk.Tokenizer, error) {
	m.mu.Lock()
	m.models = append(m.models, model)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return runeTokenizer{}, nil
}

func (m *mockTokenizerFactory) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.models...)
}

// ---------------------------------------------------------------------------
// Mock StoreFactory
// ---------------------------------------------------------------------------

// mockStoreFactory hands out the same store on every open, so tests can
// simulate a persistent cache across runs.
type mockStoreFactory struct {
	store memo.Store
	Err   error

	mu       sync.Mutex
	backends []string
	closes   int
}

func (m *mockStoreFactory) OpenStore(_ context.Context, backend, _ string) (memo.Store, func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backends = append(m.backends, backend)

	closeFn := func() error {
		m.mu.Lock()
		m.closes++
		m.mu.Unlock()
		return nil
	}
	if m.Err != nil {
		return nil, func() error { return nil }, m.Err
	}
	if m.store == nil {
		s, err := memo.NewLRU(64)
		if err != nil {
			return nil, closeFn, err
		}
		m.store = s
	}
	return m.store, closeFn, nil
}

func (m *mockStoreFactory) Backends() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.backends...)
}

func (m *mockStoreFactory) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// ---------------------------------------------------------------------------
// Mock InterruptFactory + Handler
// ---------------------------------------------------------------------------

type mockInterruptHandler struct {
	drain chan struct{}
	once  sync.Once

	mu      sync.Mutex
	stopped bool
}

func newMockInterruptHandler() *mockInterruptHandler {
	return &mockInterruptHandler{drain: make(chan struct{})}
}

func (h *mockInterruptHandler) Drain() <-chan struct{} { return h.drain }

// Interrupt simulates the first Ctrl+C.
func (h *mockInterruptHandler) Interrupt() {
	h.once.Do(func() { close(h.drain) })
}

func (h *mockInterruptHandler) WasInterrupted() bool {
	select {
	case <-h.drain:
		return true
	default:
		return false
	}
}

func (h *mockInterruptHandler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
}

func (h *mockInterruptHandler) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

type mockInterruptFactory struct {
	handler *mockInterruptHandler
}

func (m *mockInterruptFactory) NewHandler(ctx context.Context) (InterruptHandler, context.Context) {
	if m.handler == nil {
		m.handler = newMockInterruptHandler()
	}
	return m.handler, ctx
}

// Compile-time interface verification.
var (
	_ ConfigLoader     = (*mockConfigLoader)(nil)
	_ CompleterFactory = (*mockCompleterFactory)(nil)
	_ TokenizerFactory = (*mockTokenizerFactory)(nil)
	_ StoreFactory     = (*mockStoreFactory)(nil)
	_ InterruptFactory = (*mockInterruptFactory)(nil)
	_ llm.Completer    = (*mockCompleter)(nil)
)
