// Package interrupt turns Ctrl+C into a two-stage stop for long document runs:
// the first signal drains (no new segments are issued, in-flight ones finish),
// a second signal within a short window cancels everything.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// abortWindow is the time window for a second Ctrl+C to trigger abort.
const abortWindow = 2 * time.Second

const (
	drainMessage = "\nStopping after in-flight segments. Press Ctrl+C again to abort."
	abortMessage = "\nAborted."
)

// Handler manages graceful interrupt handling with double Ctrl+C detection.
type Handler struct {
	mu        sync.Mutex
	lastDrain time.Time
	drained   bool
	aborted   bool
	stopped   bool
	drainCh   chan struct{}
	cancel    context.CancelFunc
	done      chan struct{} // Signals listen goroutine to exit

	nowFunc func() time.Time
	stderr  io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh   <-chan os.Signal
	NowFunc func() time.Time
	// Stderr must be safe for concurrent writes.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// The returned context is canceled on abort or when parent is done.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return newHandler(parent, Options{SigCh: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	return newHandler(parent, opts)
}

func newHandler(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	nowFunc := opts.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		drainCh: make(chan struct{}),
		cancel:  cancel,
		done:    make(chan struct{}),
		nowFunc: nowFunc,
		stderr:  stderr,
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if h.handle() {
				return
			}
		}
	}
}

// handle processes one signal and reports whether listening should end.
func (h *Handler) handle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return true
	}
	now := h.nowFunc()

	if !h.drained {
		h.drained = true
		h.lastDrain = now
		close(h.drainCh)
		fmt.Fprintln(h.stderr, drainMessage)
		return false
	}

	// A late second signal restarts the window instead of aborting.
	if now.Sub(h.lastDrain) > abortWindow {
		h.lastDrain = now
		fmt.Fprintln(h.stderr, drainMessage)
		return false
	}

	h.aborted = true
	h.cancel()
	fmt.Fprintln(h.stderr, abortMessage)
	return true
}

// Drain returns a channel closed on the first interrupt.
func (h *Handler) Drain() <-chan struct{} {
	return h.drainCh
}

// WasInterrupted returns true if at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.drained
}

// WasAborted returns true if a second interrupt canceled the context.
func (h *Handler) WasAborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// Stop cleans up the handler. Safe to call more than once.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
	h.cancel()
}
