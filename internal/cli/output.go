package cli

import (
	"fmt"
	"io"

	"github.com/alnah/go-doctranslate/internal/format"
	"github.com/alnah/go-doctranslate/internal/pipeline"
	"github.com/alnah/go-doctranslate/internal/quality"
)

// progressPrinter returns a pipeline progress callback that writes status
// lines to w. The pipeline serializes calls, so w needs no locking.
func progressPrinter(w io.Writer) func(pipeline.Progress) {
	return func(p pipeline.Progress) {
		_, _ = fmt.Fprintf(w, "  Part %d/%d done (chunk %d, %s)\n",
			p.Done, p.Total, p.Chunk+1, format.Percent(p.Done, p.Total))
	}
}

// warnQuality writes the advisory quality banner when the gate flagged the text.
// It never blocks writing the output.
func warnQuality(w io.Writer, r quality.Report) {
	if !r.Warning {
		return
	}
	_, _ = fmt.Fprintf(w, "Warning: output may be garbled (perplexity %.0f above threshold %.0f); review it before use\n",
		r.Score, r.Threshold)
}

// describeScore renders a quality report for the score command.
func describeScore(r quality.Report) string {
	if !r.Computable {
		return "perplexity: not computable (fewer than 3 words)"
	}
	verdict := "ok"
	if r.Warning {
		verdict = "above threshold"
	}
	return fmt.Sprintf("perplexity: %.1f (threshold %.0f, %s)", r.Score, r.Threshold, verdict)
}
