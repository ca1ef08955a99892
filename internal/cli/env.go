package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alnah/go-doctranslate/internal/chunk"
	"github.com/alnah/go-doctranslate/internal/config"
	"github.com/alnah/go-doctranslate/internal/document"
	"github.com/alnah/go-doctranslate/internal/interrupt"
	"github.com/alnah/go-doctranslate/internal/llm"
	"github.com/alnah/go-doctranslate/internal/logger"
	"github.com/alnah/go-doctranslate/internal/memo"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time
	Logger logger.Logger

	// Factories for domain objects
	ConfigLoader     ConfigLoader
	CompleterFactory CompleterFactory
	TokenizerFactory TokenizerFactory
	StoreFactory     StoreFactory
	InterruptFactory InterruptFactory
	Extractor        document.Extractor
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// CompleterFactory creates LLM completers.
type CompleterFactory interface {
	NewCompleter(apiKey, baseURL string, log logger.Logger) llm.Completer
}

// TokenizerFactory creates the tokenizer used to size sub-chunks for a model.
type TokenizerFactory interface {
	NewTokenizer(model string) (chunk.Tokenizer, error)
}

// StoreFactory opens the memo store for a cache backend.
// The returned close function is never nil.
type StoreFactory interface {
	OpenStore(ctx context.Context, backend, redisURL string) (memo.Store, func() error, error)
}

// InterruptHandler is the part of interrupt.Handler used by commands.
type InterruptHandler interface {
	Drain() <-chan struct{}
	WasInterrupted() bool
	Stop()
}

// InterruptFactory installs a signal handler for the duration of a command.
type InterruptFactory interface {
	NewHandler(ctx context.Context) (InterruptHandler, context.Context)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdin sets the stdin reader.
func WithStdin(r io.Reader) EnvOption {
	return func(e *Env) {
		e.Stdin = r
	}
}

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(l logger.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithCompleterFactory sets the completer factory.
func WithCompleterFactory(f CompleterFactory) EnvOption {
	return func(e *Env) {
		e.CompleterFactory = f
	}
}

// WithTokenizerFactory sets the tokenizer factory.
func WithTokenizerFactory(f TokenizerFactory) EnvOption {
	return func(e *Env) {
		e.TokenizerFactory = f
	}
}

// WithStoreFactory sets the memo store factory.
func WithStoreFactory(f StoreFactory) EnvOption {
	return func(e *Env) {
		e.StoreFactory = f
	}
}

// WithInterruptFactory sets the interrupt handler factory.
func WithInterruptFactory(f InterruptFactory) EnvOption {
	return func(e *Env) {
		e.InterruptFactory = f
	}
}

// WithExtractor sets the document text extractor.
func WithExtractor(x document.Extractor) EnvOption {
	return func(e *Env) {
		e.Extractor = x
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdin:            os.Stdin,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Getenv:           os.Getenv,
		Now:              time.Now,
		Logger:           logger.Discard(),
		ConfigLoader:     &defaultConfigLoader{},
		CompleterFactory: &defaultCompleterFactory{},
		TokenizerFactory: &defaultTokenizerFactory{},
		StoreFactory:     &defaultStoreFactory{},
		InterruptFactory: &defaultInterruptFactory{},
		Extractor:        document.TextExtractor{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// log returns the Env logger, never nil.
func (e *Env) log() logger.Logger {
	if e.Logger == nil {
		return logger.Discard()
	}
	return e.Logger
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultCompleterFactory implements CompleterFactory using OpenAI.
type defaultCompleterFactory struct{}

func (defaultCompleterFactory) NewCompleter(apiKey, baseURL string, log logger.Logger) llm.Completer {
	return llm.NewOpenAI(llm.NewClient(apiKey, baseURL), llm.WithLogger(log))
}

// defaultTokenizerFactory implements TokenizerFactory using tiktoken.
type defaultTokenizerFactory struct{}

func (defaultTokenizerFactory) NewTokenizer(model string) (chunk.Tokenizer, error) {
	return chunk.NewTiktoken(model)
}

// defaultStoreFactory implements StoreFactory over the memo stores.
type defaultStoreFactory struct{}

func (defaultStoreFactory) OpenStore(ctx context.Context, backend, redisURL string) (memo.Store, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case config.CacheNone:
		return memo.NopStore{}, noop, nil
	case config.CacheRedis:
		s, err := memo.OpenRedis(ctx, redisURL)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		s, err := memo.NewLRU(0)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}
}

// defaultInterruptFactory implements InterruptFactory with real signals.
type defaultInterruptFactory struct{}

func (defaultInterruptFactory) NewHandler(ctx context.Context) (InterruptHandler, context.Context) {
	return interrupt.NewHandler(ctx)
}

// Compile-time interface verification.
var (
	_ ConfigLoader     = (*defaultConfigLoader)(nil)
	_ CompleterFactory = (*defaultCompleterFactory)(nil)
	_ TokenizerFactory = (*defaultTokenizerFactory)(nil)
	_ StoreFactory     = (*defaultStoreFactory)(nil)
	_ InterruptFactory = (*defaultInterruptFactory)(nil)
	_ InterruptHandler = (*interrupt.Handler)(nil)
)
