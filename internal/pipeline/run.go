package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-doctranslate/internal/chunk"
	"github.com/alnah/go-doctranslate/internal/transform"
)

// Run carries the state of one document pass through the pipeline.
// A Run is used by a single Execute call; create a new one per document.
type Run struct {
	ID          string
	Mode        transform.Mode
	Chunks      []chunk.Chunk
	TokenBudget int
	Review      bool

	// Drain, when closed, stops the run from issuing further calls.
	// Calls already in flight complete. Nil never drains.
	Drain <-chan struct{}

	// Results holds one slot per sub-chunk, indexed [chunk][part].
	// Slots are filled as parts complete, so a drained or failed run
	// keeps every finished output in place.
	Results [][]string

	Stats Stats
}

// Stats summarizes the work done by a run.
type Stats struct {
	Chunks   int           // chunks in the run
	Parts    int           // sub-chunks across all chunks
	Issued   int           // first-pass transform calls started
	Reviews  int           // review-pass transform calls made
	Duration time.Duration // wall time of Execute
}

// RunOption configures a Run.
type RunOption func(*Run)

// WithTokenBudget sets the per-call token ceiling for sub-chunks.
func WithTokenBudget(n int) RunOption {
	return func(r *Run) {
		r.TokenBudget = n
	}
}

// WithReviewPass requests the second editorial pass.
func WithReviewPass(review bool) RunOption {
	return func(r *Run) {
		r.Review = review
	}
}

// WithDrain sets the channel whose closing stops the run.
func WithDrain(drain <-chan struct{}) RunOption {
	return func(r *Run) {
		r.Drain = drain
	}
}

// WithID overrides the generated run identifier.
func WithID(id string) RunOption {
	return func(r *Run) {
		if id != "" {
			r.ID = id
		}
	}
}

// NewRun prepares a run over chunks.
func NewRun(mode transform.Mode, chunks []chunk.Chunk, opts ...RunOption) *Run {
	r := &Run{
		ID:          uuid.NewString(),
		Mode:        mode,
		Chunks:      chunks,
		TokenBudget: chunk.DefaultTokenBudget,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Run) drained() bool {
	select {
	case <-r.Drain:
		return true
	default:
		return false
	}
}
