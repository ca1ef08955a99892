package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-doctranslate/internal/chunk"
	"github.com/alnah/go-doctranslate/internal/config"
	"github.com/alnah/go-doctranslate/internal/document"
	"github.com/alnah/go-doctranslate/internal/export"
	"github.com/alnah/go-doctranslate/internal/format"
	"github.com/alnah/go-doctranslate/internal/lang"
	"github.com/alnah/go-doctranslate/internal/memo"
	"github.com/alnah/go-doctranslate/internal/pipeline"
	"github.com/alnah/go-doctranslate/internal/quality"
	"github.com/alnah/go-doctranslate/internal/transform"
)

// stdinName is the input argument that reads text from stdin.
const stdinName = "-"

// docFlags holds raw flag values for the document commands.
type docFlags struct {
	output      string
	format      string
	mode        string
	target      string
	parallel    int
	review      bool
	cache       string
	model       string
	reviewModel string
	charBudget  int
	tokenBudget int
	threshold   float64
}

// docSettings holds validated settings for one document run.
type docSettings struct {
	input       string
	output      string
	format      export.Format
	mode        transform.Mode
	target      lang.Language
	parallel    int
	review      bool
	cache       string
	redisURL    string
	model       string
	reviewModel string
	charBudget  int
	tokenBudget int
	threshold   float64
	outputDir   string
}

// TranslateCmd creates the translate command.
func TranslateCmd(env *Env) *cobra.Command {
	return documentCmd(env, transform.Translate)
}

// SummarizeCmd creates the summarize command.
func SummarizeCmd(env *Env) *cobra.Command {
	return documentCmd(env, transform.Summarize)
}

// RunCmd creates the run command, which uses the configured mode.
func RunCmd(env *Env) *cobra.Command {
	return documentCmd(env, "")
}

// documentCmd builds a document command. An empty mode adds a --mode flag
// defaulting to the configured mode.
func documentCmd(env *Env, mode string) *cobra.Command {
	var f docFlags

	use, short := "run <file|->", "Translate or summarize a document using the configured mode"
	switch mode {
	case transform.Translate:
		use, short = "translate <file|->", "Translate a document"
	case transform.Summarize:
		use, short = "summarize <file|->", "Summarize a document"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

The document (PDF, DOCX or plain text) is split into chunks of about
char-budget characters, each chunk into parts of at most token-budget tokens.
Every part is sent to the model; outputs are reassembled in document order.
Use "-" to read plain text from stdin.

Outputs are cached per part, so rerunning after a failure or Ctrl+C resumes
where the previous run stopped (use --cache redis to keep the cache across
processes). The first Ctrl+C stops issuing new requests; a second one aborts.`,
		Example: `  doctranslate translate report.pdf -l de
  doctranslate translate contract.docx -l fr -f docx --review
  doctranslate summarize thesis.pdf -p 4 -o summary.txt
  echo "Guten Morgen" | doctranslate translate - -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.ConfigLoader.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			changed := cmd.Flags().Changed
			if mode != "" {
				f.mode = mode
				changed = func(name string) bool { return name == "mode" || cmd.Flags().Changed(name) }
			}
			s, err := resolveDocSettings(args[0], cfg, f, changed)
			if err != nil {
				return err
			}
			return runDocument(cmd.Context(), env, s)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", `Output file path, "-" for stdout (default: <input>.<lang|summary>.<format>)`)
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: txt, docx (default: from --output extension, else txt)")
	if mode == "" {
		cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Transform mode: translate, summarize (default: config mode)")
	}
	cmd.Flags().StringVarP(&f.target, "lang", "l", "", "Target language (ISO 639-1 code, e.g. en, de, pt-BR)")
	cmd.Flags().IntVarP(&f.parallel, "parallel", "p", 1, "Max concurrent API requests (1-10)")
	cmd.Flags().BoolVar(&f.review, "review", false, "Run an editorial review pass over the assembled text")
	cmd.Flags().StringVar(&f.cache, "cache", "", "Cache backend: memory, redis, none")
	cmd.Flags().StringVar(&f.model, "model", "", "Model for the transform pass")
	cmd.Flags().StringVar(&f.reviewModel, "review-model", "", "Model for the review pass")
	cmd.Flags().IntVar(&f.charBudget, "char-budget", 0, "Target chunk size in characters")
	cmd.Flags().IntVar(&f.tokenBudget, "token-budget", 0, "Max tokens per request")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Perplexity above which a quality warning is shown")

	return cmd
}

// resolveDocSettings merges flags over config and validates the result.
// changed reports whether a flag was set explicitly.
func resolveDocSettings(input string, cfg config.Config, f docFlags, changed func(string) bool) (docSettings, error) {
	s := docSettings{
		input:       input,
		output:      f.output,
		parallel:    cfg.Parallel,
		review:      f.review,
		cache:       cfg.Cache,
		redisURL:    cfg.RedisURL,
		model:       cfg.TransformModel,
		reviewModel: cfg.ReviewModel,
		charBudget:  cfg.CharBudget,
		tokenBudget: cfg.TokenBudget,
		threshold:   cfg.PerplexityThreshold,
		outputDir:   config.ExpandPath(cfg.OutputDir),
	}

	modeName, target := cfg.Mode, cfg.TargetLang
	if changed("mode") {
		modeName = f.mode
	}
	if changed("lang") {
		target = f.target
	}
	if changed("parallel") {
		s.parallel = f.parallel
	}
	if changed("cache") {
		s.cache = f.cache
	}
	if changed("model") {
		s.model = f.model
	}
	if changed("review-model") {
		s.reviewModel = f.reviewModel
	}
	if changed("char-budget") {
		s.charBudget = f.charBudget
	}
	if changed("token-budget") {
		s.tokenBudget = f.tokenBudget
	}
	if changed("threshold") {
		s.threshold = f.threshold
	}

	var err error
	if s.mode, err = transform.ParseMode(modeName); err != nil {
		return docSettings{}, err
	}
	if s.target, err = lang.Parse(target); err != nil {
		return docSettings{}, err
	}
	if s.target.IsZero() {
		s.target = lang.English
	}

	switch {
	case f.format != "":
		if s.format, err = export.ParseFormat(f.format); err != nil {
			return docSettings{}, err
		}
	case f.output != "" && f.output != stdinName:
		s.format = export.FormatForPath(f.output)
	default:
		s.format = export.TXT
	}
	if f.output == stdinName && s.format != export.TXT {
		return docSettings{}, ErrStdoutFormat
	}

	switch s.cache {
	case config.CacheMemory, config.CacheRedis, config.CacheNone:
	default:
		return docSettings{}, fmt.Errorf("%w: cache %q (use memory, redis or none)", config.ErrInvalidValue, s.cache)
	}
	if s.cache == config.CacheRedis && s.redisURL == "" {
		return docSettings{}, fmt.Errorf("%w: cache redis requires redis-url (set it with: doctranslate config set redis-url redis://localhost:6379/0)",
			config.ErrInvalidValue)
	}
	if s.charBudget <= 0 || s.tokenBudget <= 0 {
		return docSettings{}, fmt.Errorf("budgets must be positive (char-budget %d, token-budget %d): %w",
			s.charBudget, s.tokenBudget, chunk.ErrInvalidBudget)
	}
	if s.threshold <= 0 {
		s.threshold = quality.DefaultThreshold
	}
	s.parallel = clampParallel(s.parallel)

	return s, nil
}

// clampParallel constrains parallel request count to [1, pipeline.MaxParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > pipeline.MaxParallel {
		return pipeline.MaxParallel
	}
	return n
}

// outputSuffix names the derived output file after the mode.
func outputSuffix(s docSettings) string {
	if s.mode == transform.SummarizeMode {
		return "summary"
	}
	return s.target.String()
}

// resolveOutput returns the output path, or "-" for stdout.
func resolveOutput(s docSettings) string {
	if s.output == stdinName {
		return stdinName
	}
	if s.output != "" {
		return config.ResolveOutputPath(s.output, s.outputDir, "")
	}
	return export.DerivePath(s.input, outputSuffix(s), s.outputDir, s.format)
}

// readInput loads the document named by input, or plain text from stdin.
func readInput(env *Env, input string) (document.Document, error) {
	if input == stdinName {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return document.Document{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return document.Document{Name: "stdin", Format: document.FormatText, Data: data}, nil
	}

	if _, err := os.Stat(input); err != nil {
		if os.IsNotExist(err) {
			return document.Document{}, fmt.Errorf("%w: %s", ErrFileNotFound, input)
		}
		return document.Document{}, fmt.Errorf("cannot access input file: %w", err)
	}
	return document.Read(input)
}

// runDocument executes a translate or summarize run.
// Validation order: input -> output -> API key -> tokenizer -> cache -> extraction.
// Nothing is sent to the model until every step has passed.
func runDocument(ctx context.Context, env *Env, s docSettings) error {
	log := env.log()

	// === VALIDATION (fail-fast) ===

	doc, err := readInput(env, s.input)
	if err != nil {
		return err
	}

	output := resolveOutput(s)
	if output != stdinName {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s: %w", output, export.ErrOutputExists)
		}
	}

	apiKey := env.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}

	tok, err := env.TokenizerFactory.NewTokenizer(s.model)
	if err != nil {
		return err
	}

	store, closeStore, err := env.StoreFactory.OpenStore(ctx, s.cache, s.redisURL)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheUnavailable, s.cache, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("closing cache failed", "err", err)
		}
	}()

	fmt.Fprintf(env.Stderr, "Reading %s (%s, %s)...\n", doc.Name, doc.Format, format.Size(int64(len(doc.Data))))

	units, err := env.Extractor.Extract(ctx, doc)
	if err != nil {
		return err
	}
	chunks := chunk.BySize(units, s.charBudget)
	if len(chunks) == 0 {
		return fmt.Errorf("%s: %w", doc.Name, ErrEmptyDocument)
	}

	// === TRANSFORM ===

	completer := env.CompleterFactory.NewCompleter(apiKey, env.Getenv(EnvOpenAIBaseURL), log)
	tcfg := transform.Config{Mode: s.mode, Target: s.target, Model: s.model}

	docKey := document.CacheKey(doc.Fingerprint(), documentScope(tcfg, s), s.model)
	if cached, err := store.Get(ctx, docKey); err == nil {
		fmt.Fprintln(env.Stderr, "Using cached result for identical document.")
		return finish(env, s, output, cached, quality.Gate{Threshold: s.threshold}.Check(cached))
	} else if !errors.Is(err, memo.ErrNotFound) {
		log.Warn("document cache lookup failed", "err", err)
	}

	first := memo.New(store, tcfg.Scope(), transform.New(completer, tcfg), memo.WithLogger(log))

	opts := []pipeline.Option{
		pipeline.WithParallel(s.parallel),
		pipeline.WithGate(quality.Gate{Threshold: s.threshold}),
		pipeline.WithLogger(log),
		pipeline.WithProgress(progressPrinter(env.Stderr)),
	}
	var review *memo.Memoizer
	if s.review {
		rcfg := transform.Config{Mode: transform.ReviewMode, Target: s.target, Model: s.reviewModel}
		review = memo.New(store, rcfg.Scope(), transform.New(completer, rcfg), memo.WithLogger(log))
		opts = append(opts, pipeline.WithReview(review.Func(), s.tokenBudget))
	}
	p := pipeline.New(tok, first.Func(), opts...)

	handler, runCtx := env.InterruptFactory.NewHandler(ctx)
	defer handler.Stop()

	run := pipeline.NewRun(s.mode, chunks,
		pipeline.WithTokenBudget(s.tokenBudget),
		pipeline.WithReviewPass(s.review),
		pipeline.WithDrain(handler.Drain()),
	)
	log.Info("run started", "run_id", run.ID, "document", doc.Name, "fingerprint", doc.Fingerprint()[:12],
		"mode", s.mode.String(), "target", s.target.String(), "chunks", len(chunks))

	fmt.Fprintf(env.Stderr, "%s %s (%s, model %s)...\n", verb(s.mode), format.Count(len(chunks), "chunk", "chunks"),
		s.target.DisplayName(), s.model)

	res, err := p.Execute(runCtx, run)
	if err != nil {
		if errors.Is(err, pipeline.ErrDrained) {
			stats := first.Stats()
			fmt.Fprintf(env.Stderr, "Stopped after %d new requests (%d cached). Rerun the same command to resume.\n",
				stats.Misses, stats.Hits)
		}
		return fmt.Errorf("%s failed: %w", noun(s.mode), err)
	}

	if err := store.Set(ctx, docKey, res.Text); err != nil {
		log.Warn("document cache store failed", "err", err)
	}

	stats := first.Stats()
	fmt.Fprintf(env.Stderr, "Processed %s in %s (%d requests, %d cached",
		format.Count(res.Stats.Parts, "part", "parts"), format.Elapsed(res.Stats.Duration), stats.Misses, stats.Hits)
	if res.Reviewed {
		fmt.Fprintf(env.Stderr, ", %s", format.Count(res.Stats.Reviews, "review call", "review calls"))
	}
	fmt.Fprintln(env.Stderr, ")")

	return finish(env, s, output, res.Text, res.Quality)
}

// documentScope is the whole-document cache scope: the transform scope plus
// the review pass when requested.
func documentScope(tcfg transform.Config, s docSettings) string {
	scope := tcfg.Scope()
	if s.review {
		rcfg := transform.Config{Mode: transform.ReviewMode, Target: s.target, Model: s.reviewModel}
		scope += "+" + rcfg.Scope()
	}
	return scope
}

// finish prints the quality banner and writes the result.
func finish(env *Env, s docSettings, output, text string, report quality.Report) error {
	warnQuality(env.Stderr, report)

	if output == stdinName {
		_, err := io.WriteString(env.Stdout, text+"\n")
		return err
	}

	data, err := export.Render(text, s.format)
	if err != nil {
		return err
	}
	if err := export.WriteFile(output, data); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	return nil
}

func verb(m transform.Mode) string {
	if m == transform.SummarizeMode {
		return "Summarizing"
	}
	return "Translating"
}

func noun(m transform.Mode) string {
	if m == transform.SummarizeMode {
		return "summary"
	}
	return "translation"
}
