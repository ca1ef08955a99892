package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-doctranslate/internal/config"
	"github.com/alnah/go-doctranslate/internal/document"
)

// ---------------------------------------------------------------------------
// syncBuffer - goroutine-safe writer for progress output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ---------------------------------------------------------------------------
// Test environment
// ---------------------------------------------------------------------------

// testConfig mirrors the built-in defaults.
func testConfig() config.Config {
	return config.Config{
		CharBudget:          10000,
		TokenBudget:         5000,
		Parallel:            1,
		PerplexityThreshold: 1500,
		TransformModel:      "gpt-4o-mini",
		ReviewModel:         "gpt-4o-mini",
		Mode:                "translate",
		TargetLang:          "en",
		Cache:               config.CacheMemory,
		LogLevel:            "info",
	}
}

// staticEnv returns a Getenv func backed by vars.
func staticEnv(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

// testEnv bundles an Env with its mocks and captured output.
type testEnv struct {
	env       *Env
	stdout    *syncBuffer
	stderr    *syncBuffer
	config    *mockConfigLoader
	completer *mockCompleter
	factory   *mockCompleterFactory
	tokenizer *mockTokenizerFactory
	store     *mockStoreFactory
	interrupt *mockInterruptFactory
}

// newTestEnv returns an Env with mocks for every external dependency and
// OPENAI_API_KEY set. opts are applied last.
func newTestEnv(opts ...EnvOption) *testEnv {
	te := &testEnv{
		stdout:    &syncBuffer{},
		stderr:    &syncBuffer{},
		config:    &mockConfigLoader{},
		completer: &mockCompleter{},
		tokenizer: &mockTokenizerFactory{},
		store:     &mockStoreFactory{},
		interrupt: &mockInterruptFactory{},
	}
	te.factory = &mockCompleterFactory{completer: te.completer}

	base := []EnvOption{
		WithStdin(strings.NewReader("")),
		WithStdout(te.stdout),
		WithStderr(te.stderr),
		WithGetenv(staticEnv(map[string]string{EnvOpenAIAPIKey: "sk-test"})),
		WithNow(func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) }),
		WithConfigLoader(te.config),
		WithCompleterFactory(te.factory),
		WithTokenizerFactory(te.tokenizer),
		WithStoreFactory(te.store),
		WithInterruptFactory(te.interrupt),
		WithExtractor(document.TextExtractor{}),
	}
	te.env = NewEnv(append(base, opts...)...)
	return te
}

// testSettings returns settings for a translation of input into German.
func testSettings(t *testing.T, input string) docSettings {
	t.Helper()
	s, err := resolveDocSettings(input, testConfig(), docFlags{target: "de"}, func(name string) bool {
		return name == "lang"
	})
	if err != nil {
		t.Fatalf("resolveDocSettings() unexpected error: %v", err)
	}
	return s
}

// writeTextFile writes content to name inside a temp dir and returns its path.
func writeTextFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
