// Package pipeline applies a transform to every token-budgeted segment of a
// chunked document, reassembles the outputs in document order, optionally
// runs an editorial review pass, and scores the result.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-doctranslate/internal/chunk"
	"github.com/alnah/go-doctranslate/internal/logger"
	"github.com/alnah/go-doctranslate/internal/quality"
	"github.com/alnah/go-doctranslate/internal/transform"
)

// Separators used to reassemble outputs.
const (
	PartSeparator  = " "
	ChunkSeparator = "\n\n"
)

// MaxParallel is the upper bound for concurrent transform calls.
const MaxParallel = 10

// Progress reports a completed first-pass call.
type Progress struct {
	RunID string
	Done  int // parts completed so far
	Total int // parts in the run
	Chunk int // 0-based chunk of the completed part
	Part  int // 0-based part within the chunk
}

// Pipeline runs documents through a transform. It holds no per-document
// state and may execute several runs concurrently.
type Pipeline struct {
	tok          chunk.Tokenizer
	fn           transform.Func
	parallel     int
	review       transform.Func
	reviewBudget int
	gate         quality.Gate
	progress     func(Progress)
	log          logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParallel sets how many transform calls may run at once, clamped to
// [1, MaxParallel]. The default of 1 processes parts strictly in order.
func WithParallel(n int) Option {
	return func(p *Pipeline) {
		p.parallel = clampParallel(n)
	}
}

// WithReview sets the second-pass transform and the token ceiling for a
// single review call. Text above the ceiling is reviewed chunk by chunk.
func WithReview(fn transform.Func, tokenBudget int) Option {
	return func(p *Pipeline) {
		p.review = fn
		if tokenBudget > 0 {
			p.reviewBudget = tokenBudget
		}
	}
}

// WithGate sets the quality gate applied to the final text.
func WithGate(g quality.Gate) Option {
	return func(p *Pipeline) {
		p.gate = g
	}
}

// WithProgress registers a callback invoked after each completed part.
// Calls are serialized.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithLogger sets the logger for run events.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a pipeline that splits chunks with tok and applies fn to each part.
func New(tok chunk.Tokenizer, fn transform.Func, opts ...Option) *Pipeline {
	p := &Pipeline{
		tok:          tok,
		fn:           fn,
		parallel:     1,
		reviewBudget: chunk.DefaultTokenBudget,
		gate:         quality.Gate{Threshold: quality.DefaultThreshold},
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxParallel {
		return MaxParallel
	}
	return n
}

// Result is the outcome of a completed run.
type Result struct {
	Text         string         // final document (reviewed when Reviewed is true)
	ChunkOutputs []string       // first-pass output per chunk, in order
	Quality      quality.Report // advisory score of Text
	Reviewed     bool
	Stats        Stats
}

// task is one sub-chunk to transform, addressed by its result slot.
type task struct {
	chunk, part int
	parts       int
	text        string
}

// Execute processes run and returns the assembled document.
//
// Every chunk is split before the first transform call, so tokenizer and
// budget errors cost nothing. Outputs land in run.Results by position; the
// order in which calls complete never affects the assembled text. The first
// failed call stops new calls and is returned with its chunk and part.
// Closing run.Drain stops new calls and returns ErrDrained.
func (p *Pipeline) Execute(ctx context.Context, run *Run) (Result, error) {
	start := time.Now()
	defer func() { run.Stats.Duration = time.Since(start) }()

	if run.Review && p.review == nil {
		return Result{}, ErrNoReviewer
	}

	log := p.log.With("run_id", run.ID, "mode", run.Mode.String())

	tasks, err := p.plan(run)
	if err != nil {
		return Result{}, err
	}
	log.Debug("run planned", "chunks", run.Stats.Chunks, "parts", run.Stats.Parts, "parallel", p.parallel)

	if err := p.transformAll(ctx, run, tasks, log); err != nil {
		return Result{}, err
	}

	outputs := make([]string, len(run.Results))
	for i, parts := range run.Results {
		outputs[i] = strings.Join(parts, PartSeparator)
	}
	text := strings.Join(outputs, ChunkSeparator)

	res := Result{Text: text, ChunkOutputs: outputs}
	if run.Review && strings.TrimSpace(text) != "" {
		reviewed, err := p.reviewText(ctx, run, text)
		if err != nil {
			return Result{}, err
		}
		res.Text = reviewed
		res.Reviewed = true
	}

	res.Quality = p.gate.Check(res.Text)
	if res.Quality.Warning {
		log.Warn("quality gate flagged output", "perplexity", res.Quality.Score, "threshold", res.Quality.Threshold)
	}

	run.Stats.Duration = time.Since(start)
	res.Stats = run.Stats
	log.Debug("run complete", "issued", run.Stats.Issued, "reviews", run.Stats.Reviews, "duration", run.Stats.Duration)
	return res, nil
}

// plan splits every chunk into sub-chunks and allocates the result slots.
func (p *Pipeline) plan(run *Run) ([]task, error) {
	budget := run.TokenBudget
	if budget == 0 {
		budget = chunk.DefaultTokenBudget
	}

	run.Results = make([][]string, len(run.Chunks))
	run.Stats = Stats{Chunks: len(run.Chunks)}

	var tasks []task
	for i, c := range run.Chunks {
		subs, err := chunk.ByTokens(p.tok, c.Text, budget)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(run.Chunks), err)
		}
		run.Results[i] = make([]string, len(subs))
		for _, s := range subs {
			tasks = append(tasks, task{chunk: i, part: s.Index, parts: len(subs), text: s.Text})
		}
	}
	run.Stats.Parts = len(tasks)
	return tasks, nil
}

// transformAll issues tasks in document order through a bounded pool.
func (p *Pipeline) transformAll(ctx context.Context, run *Run, tasks []task, log logger.Logger) error {
	sem := make(chan struct{}, p.parallel)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	done := 0
	drained := false

issue:
	for _, tk := range tasks {
		tk := tk
		// Take a slot before checking drain so a signal that arrives while
		// waiting still prevents this call.
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break issue
		}
		if run.drained() {
			<-sem
			drained = true
			break
		}
		if gctx.Err() != nil {
			<-sem
			break
		}

		run.Stats.Issued++
		g.Go(func() error {
			defer func() { <-sem }()

			out, err := p.fn(gctx, tk.text)
			if err != nil {
				return fmt.Errorf("chunk %d/%d, part %d/%d: %w",
					tk.chunk+1, len(run.Chunks), tk.part+1, tk.parts, err)
			}
			run.Results[tk.chunk][tk.part] = out

			mu.Lock()
			defer mu.Unlock()
			done++
			if p.progress != nil {
				p.progress(Progress{RunID: run.ID, Done: done, Total: len(tasks), Chunk: tk.chunk, Part: tk.part})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("run failed", "err", err, "completed", done, "total", len(tasks))
		return err
	}
	if drained {
		log.Info("run drained", "completed", done, "total", len(tasks))
		return fmt.Errorf("%d/%d parts completed: %w", done, len(tasks), ErrDrained)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// reviewText runs the review transform once over text when it fits the
// review budget, otherwise over each first-pass part in turn so review
// windows line up with the transform windows. A part whose output alone
// exceeds the budget is reviewed in token windows. Blank parts are kept
// as they are.
func (p *Pipeline) reviewText(ctx context.Context, run *Run, text string) (string, error) {
	n, err := chunk.Count(p.tok, text)
	if err != nil {
		return "", fmt.Errorf("review: %w", err)
	}
	if n <= p.reviewBudget {
		return p.reviewOne(ctx, run, text)
	}

	reviewed := make([]string, len(run.Results))
	for i, parts := range run.Results {
		out := make([]string, len(parts))
		for j, part := range parts {
			r, err := p.reviewPart(ctx, run, part)
			if err != nil {
				return "", fmt.Errorf("review chunk %d/%d: %w", i+1, len(run.Results), err)
			}
			out[j] = r
		}
		reviewed[i] = strings.Join(out, PartSeparator)
	}
	return strings.Join(reviewed, ChunkSeparator), nil
}

func (p *Pipeline) reviewPart(ctx context.Context, run *Run, part string) (string, error) {
	if strings.TrimSpace(part) == "" {
		return part, nil
	}
	n, err := chunk.Count(p.tok, part)
	if err != nil {
		return "", err
	}
	if n <= p.reviewBudget {
		return p.reviewOne(ctx, run, part)
	}

	windows, err := chunk.ByTokens(p.tok, part, p.reviewBudget)
	if err != nil {
		return "", err
	}
	out := make([]string, 0, len(windows))
	for _, w := range windows {
		if strings.TrimSpace(w.Text) == "" {
			out = append(out, w.Text)
			continue
		}
		r, err := p.reviewOne(ctx, run, w.Text)
		if err != nil {
			return "", err
		}
		out = append(out, r)
	}
	return strings.Join(out, ""), nil
}

func (p *Pipeline) reviewOne(ctx context.Context, run *Run, text string) (string, error) {
	if run.drained() {
		return "", fmt.Errorf("review: %w", ErrDrained)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	run.Stats.Reviews++
	out, err := p.review(ctx, text)
	if err != nil {
		return "", fmt.Errorf("review: %w", err)
	}
	return out, nil
}
