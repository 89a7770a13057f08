package sentiment

import (
	"github.com/grassmudhorses/vader-go/lexicon"
	"github.com/grassmudhorses/vader-go/sentitext"

	"sibyl/internal/domain/market"
)

// Classification thresholds on the mean compound polarity. Strict
// inequalities: exactly +/-0.1 stays neutral.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// Classifier maps batches of text snippets to a discrete sentiment label
// using VADER lexical polarity scoring. Stateless and safe for concurrent use.
type Classifier struct{}

// NewClassifier creates a sentiment classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Score returns the compound polarity of a single text in [-1, 1]
func (c *Classifier) Score(text string) float64 {
	parsed := sentitext.Parse(text, lexicon.DefaultLexicon)
	return sentitext.PolarityScore(parsed).Compound
}

// Classify averages the compound polarity of all items and thresholds the
// result. Empty input classifies neutral.
func (c *Classifier) Classify(items []string) market.SentimentLabel {
	if len(items) == 0 {
		return market.SentimentNeutral
	}

	var sum float64
	for _, item := range items {
		sum += c.Score(item)
	}
	avg := sum / float64(len(items))

	return LabelForScore(avg)
}

// LabelForScore maps a mean polarity score to its label
func LabelForScore(avg float64) market.SentimentLabel {
	switch {
	case avg > positiveThreshold:
		return market.SentimentPositive
	case avg < negativeThreshold:
		return market.SentimentNegative
	default:
		return market.SentimentNeutral
	}
}
