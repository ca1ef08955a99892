package memo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/alnah/go-doctranslate/internal/logger"
	"github.com/alnah/go-doctranslate/internal/transform"
)

// Memoizer wraps a transform so each distinct (scope, text) pair reaches the
// underlying function at most once while its result stays cached.
// Concurrent calls for the same key share one underlying call.
type Memoizer struct {
	store Store
	scope string
	fn    transform.Func
	group singleflight.Group
	log   logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Memoizer.
type Option func(*Memoizer)

// WithLogger sets the logger for cache events.
func WithLogger(l logger.Logger) Option {
	return func(m *Memoizer) {
		if l != nil {
			m.log = l
		}
	}
}

// New memoizes fn in store. scope must capture every input besides the text
// that affects the output (mode, target language, model).
func New(store Store, scope string, fn transform.Func, opts ...Option) *Memoizer {
	if store == nil {
		store = NopStore{}
	}
	m := &Memoizer{store: store, scope: scope, fn: fn, log: logger.Discard()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key derives the store key for text in scope.
func Key(scope, text string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + text))
	return "seg:" + hex.EncodeToString(sum[:])
}

// Func returns the memoized transform.
func (m *Memoizer) Func() transform.Func {
	return m.Transform
}

// Transform returns the cached output for text or computes and stores it.
// Store failures degrade to a direct call; they never fail the transform.
func (m *Memoizer) Transform(ctx context.Context, text string) (string, error) {
	key := Key(m.scope, text)

	if v, err := m.store.Get(ctx, key); err == nil {
		m.hits.Add(1)
		m.log.Debug("memo hit", "key", key[:16])
		return v, nil
	} else if !errors.Is(err, ErrNotFound) {
		m.log.Warn("memo lookup failed", "err", err)
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// A call for the same key may have completed since the lookup above.
		if v, err := m.store.Get(ctx, key); err == nil {
			m.hits.Add(1)
			return v, nil
		}
		m.misses.Add(1)
		out, err := m.fn(ctx, text)
		if err != nil {
			return "", err
		}
		if err := m.store.Set(ctx, key, out); err != nil {
			m.log.Warn("memo store failed", "err", err)
		}
		return out, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Stats reports cache hits and underlying calls since creation.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats returns a snapshot of the counters.
func (m *Memoizer) Stats() Stats {
	return Stats{Hits: m.hits.Load(), Misses: m.misses.Load()}
}
