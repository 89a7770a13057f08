package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/domain/market"
	"sibyl/internal/domain/trade"
	"sibyl/pkg/errors"
)

const validDecisionJSON = `{
	"chain_of_thought": {
		"market_analysis": "Momentum trending up with rising volume",
		"risk_assessment": "Moderate downside risk",
		"reasoning_steps": ["momentum positive", "sentiment positive", "enter position"]
	},
	"trading_decision": {
		"action": "BUY",
		"confidence": 0.85,
		"reasoning": "Technical and sentiment signals align"
	}
}`

func TestParseDecision_Valid(t *testing.T) {
	decision, err := ParseDecision(validDecisionJSON)
	require.NoError(t, err)

	assert.Equal(t, trade.ActionBuy, decision.Action)
	assert.Equal(t, 0.85, decision.Confidence)
	assert.Equal(t, "Technical and sentiment signals align", decision.Rationale)
	assert.Len(t, decision.ChainOfThought.ReasoningSteps, 3)
}

func TestParseDecision_MarkdownFencedJSON(t *testing.T) {
	fenced := "```json\n" + validDecisionJSON + "\n```"

	decision, err := ParseDecision(fenced)
	require.NoError(t, err)
	assert.Equal(t, trade.ActionBuy, decision.Action)
}

func TestParseDecision_LowercaseActionNormalized(t *testing.T) {
	decision, err := ParseDecision(`{
		"chain_of_thought": {"market_analysis": "a", "risk_assessment": "b", "reasoning_steps": []},
		"trading_decision": {"action": " sell ", "confidence": 0.5, "reasoning": "r"}
	}`)
	require.NoError(t, err)
	assert.Equal(t, trade.ActionSell, decision.Action)
}

func TestParseDecision_ConfidenceClamped(t *testing.T) {
	decision, err := ParseDecision(`{
		"chain_of_thought": {"market_analysis": "a", "risk_assessment": "b", "reasoning_steps": []},
		"trading_decision": {"action": "HOLD", "confidence": 1.7, "reasoning": "r"}
	}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, decision.Confidence)

	decision, err = ParseDecision(`{
		"chain_of_thought": {"market_analysis": "a", "risk_assessment": "b", "reasoning_steps": []},
		"trading_decision": {"action": "HOLD", "confidence": -0.3, "reasoning": "r"}
	}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, decision.Confidence)
}

func TestParseDecision_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I think you should buy"},
		{"empty", ""},
		{"missing trading_decision", `{"chain_of_thought": {"market_analysis": "a"}}`},
		{"missing chain_of_thought", `{"trading_decision": {"action": "BUY", "confidence": 0.5, "reasoning": "r"}}`},
		{"missing action", `{"chain_of_thought": {}, "trading_decision": {"confidence": 0.5, "reasoning": "r"}}`},
		{"missing confidence", `{"chain_of_thought": {}, "trading_decision": {"action": "BUY", "reasoning": "r"}}`},
		{"missing reasoning", `{"chain_of_thought": {}, "trading_decision": {"action": "BUY", "confidence": 0.5}}`},
		{"unknown action", `{"chain_of_thought": {}, "trading_decision": {"action": "SHORT", "confidence": 0.5, "reasoning": "r"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDecision(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrDecisionFormat), "expected ErrDecisionFormat, got %v", err)
		})
	}
}

func TestParseVerification_Valid(t *testing.T) {
	verification, err := ParseVerification(`{
		"is_valid": false,
		"verdict": "Confidence unsupported by evidence",
		"issues": ["momentum contradicts decision"]
	}`)
	require.NoError(t, err)

	assert.False(t, verification.IsValid)
	assert.Equal(t, "Confidence unsupported by evidence", verification.Verdict)
	assert.Len(t, verification.Issues, 1)
}

func TestParseVerification_NilIssuesBecomesEmpty(t *testing.T) {
	verification, err := ParseVerification(`{"is_valid": true, "verdict": "ok"}`)
	require.NoError(t, err)
	assert.NotNil(t, verification.Issues)
	assert.Empty(t, verification.Issues)
}

func TestParseVerification_Malformed(t *testing.T) {
	for _, raw := range []string{
		"looks fine to me",
		`{"verdict": "ok"}`,
		`{"is_valid": true}`,
	} {
		_, err := ParseVerification(raw)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrVerificationFormat))
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

func TestBrief_ContainsMarketAndPortfolio(t *testing.T) {
	snapshot := &market.Snapshot{
		Price:           48000,
		Volume:          3000000,
		MomentumIndex:   61.5,
		NewsItems:       []string{"ETF inflows continue"},
		SocialItems:     []string{"hodling strong"},
		NewsSentiment:   market.SentimentPositive,
		SocialSentiment: market.SentimentNeutral,
	}
	portfolio := PortfolioState{CashBalance: 1000, HeldAssetAmount: 0}

	brief := Brief(snapshot, portfolio)

	assert.Contains(t, brief, "$48000.00")
	assert.Contains(t, brief, "ETF inflows continue")
	assert.Contains(t, brief, "hodling strong")
	assert.Contains(t, brief, "$1000.00 cash")
}
