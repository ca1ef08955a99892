// Package quality estimates the fluency of finished text with a trigram
// language model fitted on the text itself. The score is a heuristic gate:
// a high value should make a user look twice, never block output.
package quality

import (
	"math"
	"strings"
)

// DefaultThreshold is the perplexity above which a text is flagged for review.
const DefaultThreshold = 1500

type bigram struct{ a, b string }

type trigram struct{ a, b, c string }

// Score returns the add-one smoothed trigram perplexity of text.
//
// Words are whitespace-delimited. For every position i in [2, N) the
// probability of word i given the two before it is
//
//	(count(w[i-2], w[i-1], w[i]) + 1) / (count(w[i-2], w[i-1]) + V)
//
// where V is the number of distinct words. The score is the exponentiated
// mean negative log probability. With fewer than three words there is no
// trigram to score and Score returns (0, false).
func Score(text string) (float64, bool) {
	words := strings.Fields(text)
	n := len(words)
	if n <= 2 {
		return 0, false
	}

	unigrams := make(map[string]int, n)
	bigrams := make(map[bigram]int, n)
	trigrams := make(map[trigram]int, n)

	for i, w := range words {
		unigrams[w]++
		if i >= 1 {
			bigrams[bigram{words[i-1], w}]++
		}
		if i >= 2 {
			trigrams[trigram{words[i-2], words[i-1], w}]++
		}
	}

	v := float64(len(unigrams))
	var nll float64
	for i := 2; i < n; i++ {
		tri := float64(trigrams[trigram{words[i-2], words[i-1], words[i]}] + 1)
		bi := float64(bigrams[bigram{words[i-2], words[i-1]}]) + v
		nll -= math.Log(tri / bi)
	}

	return math.Exp(nll / float64(n-2)), true
}

// Report is the outcome of a quality check.
type Report struct {
	Score      float64
	Computable bool // false when the text has fewer than three words
	Threshold  float64
	Warning    bool // Computable and Score > Threshold
}

// Gate flags texts whose perplexity exceeds Threshold.
// The zero value uses DefaultThreshold.
type Gate struct {
	Threshold float64
}

// Check scores text and reports whether it should be reviewed by a human.
func (g Gate) Check(text string) Report {
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	score, ok := Score(text)
	return Report{
		Score:      score,
		Computable: ok,
		Threshold:  threshold,
		Warning:    ok && score > threshold,
	}
}
