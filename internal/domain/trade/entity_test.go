package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/domain/market"
	"sibyl/pkg/errors"
)

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"BUY", "SELL", "HOLD"} {
		action, err := ParseAction(raw)
		require.NoError(t, err)
		assert.Equal(t, Action(raw), action)
	}

	for _, raw := range []string{"", "buy", "SHORT", "LONG"} {
		_, err := ParseAction(raw)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrDecisionFormat))
	}
}

func TestUnverifiable(t *testing.T) {
	v := Unverifiable()

	assert.True(t, v.IsValid)
	assert.Equal(t, "verification unavailable", v.Verdict)
	assert.NotNil(t, v.Issues)
	assert.Empty(t, v.Issues)
}

func TestNewRecord_CombinesEvidenceInOrder(t *testing.T) {
	snapshot := &market.Snapshot{
		Price:           42000,
		NewsItems:       []string{"n1", "n2"},
		SocialItems:     []string{"s1"},
		NewsSentiment:   market.SentimentPositive,
		SocialSentiment: market.SentimentNegative,
		CapturedAt:      time.Now().UTC(),
	}
	decision := Decision{Action: ActionBuy, Confidence: 0.7, Rationale: "r"}

	record := NewRecord(snapshot, decision, Unverifiable(), 12.5)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, []string{"n1", "n2", "s1"}, record.Evidence)
	assert.Equal(t, ActionBuy, record.Decision)
	require.NotNil(t, record.ProfitLoss)
	assert.Equal(t, 12.5, *record.ProfitLoss)
	assert.Equal(t, market.SentimentPositive, record.NewsSentiment)
	assert.Equal(t, market.SentimentNegative, record.SocialSentiment)
}

func TestStats_AccuracyPercentage(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.AccuracyPercentage())
	assert.Equal(t, 50.0, Stats{TotalTrades: 4, SuccessfulTrades: 2}.AccuracyPercentage())
	assert.Equal(t, 100.0, Stats{TotalTrades: 3, SuccessfulTrades: 3}.AccuracyPercentage())
}
