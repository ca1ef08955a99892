package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-doctranslate/internal/document"
	"github.com/alnah/go-doctranslate/internal/quality"
)

// ScoreCmd creates the score command (quality check of an existing text).
func ScoreCmd(env *Env) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "score <file|->",
		Short: "Estimate the quality of a text with trigram perplexity",
		Long: `Estimate the quality of a text with trigram perplexity.

High perplexity hints at garbled or machine-broken output. The score is
advisory; the command exits 0 whether or not the threshold is exceeded.`,
		Example: `  doctranslate score report.de.txt
  doctranslate score --threshold 900 summary.docx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				cfg, err := env.ConfigLoader.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				threshold = cfg.PerplexityThreshold
			}
			return runScore(cmd.Context(), env, args[0], threshold)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", quality.DefaultThreshold, "Perplexity above which the text is flagged")

	return cmd
}

// runScore extracts the text of input and prints its quality report.
func runScore(ctx context.Context, env *Env, input string, threshold float64) error {
	doc, err := readInput(env, input)
	if err != nil {
		return err
	}
	units, err := env.Extractor.Extract(ctx, doc)
	if err != nil {
		return err
	}

	report := quality.Gate{Threshold: threshold}.Check(strings.Join(units, "\n"))
	_, err = fmt.Fprintln(env.Stdout, describeScore(report))
	return err
}

// FingerprintCmd creates the fingerprint command.
func FingerprintCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <file>...",
		Short: "Print the SHA-256 fingerprint used to deduplicate documents",
		Example: `  doctranslate fingerprint report.pdf
  doctranslate fingerprint *.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(env, args)
		},
	}
}

// runFingerprint prints "<sha256>  <name>" per file, like sha256sum.
func runFingerprint(env *Env, paths []string) error {
	for _, p := range paths {
		data, err := os.ReadFile(p) // #nosec G304 -- user-provided input file
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, p)
			}
			return fmt.Errorf("cannot read %s: %w", p, err)
		}
		if _, err := fmt.Fprintf(env.Stdout, "%s  %s\n", document.Fingerprint(data), p); err != nil {
			return err
		}
	}
	return nil
}
