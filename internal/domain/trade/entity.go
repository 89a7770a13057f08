package trade

import (
	"time"

	"github.com/google/uuid"

	"sibyl/internal/domain/market"
	"sibyl/pkg/errors"
)

// Action is the closed set of decisions the pipeline can apply
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ParseAction validates a raw action string from the decision model
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionBuy, ActionSell, ActionHold:
		return Action(raw), nil
	default:
		return "", errors.Wrapf(errors.ErrDecisionFormat, "unknown action %q", raw)
	}
}

// ChainOfThought is the structured reasoning attached to a decision
type ChainOfThought struct {
	MarketAnalysis string   `json:"market_analysis"`
	RiskAssessment string   `json:"risk_assessment"`
	ReasoningSteps []string `json:"reasoning_steps"`
}

// Decision is the typed output of the decision model
type Decision struct {
	Action         Action         `json:"action"`
	Confidence     float64        `json:"confidence"` // [0,1]
	Rationale      string         `json:"reasoning"`
	ChainOfThought ChainOfThought `json:"chain_of_thought"`
}

// Verification is the verifier's advisory verdict on a decision
type Verification struct {
	IsValid bool     `json:"is_valid"`
	Verdict string   `json:"verdict"`
	Issues  []string `json:"issues"`
}

// Unverifiable is the verdict substituted when the verifier's response
// cannot be parsed; verification is advisory and never blocks a trade
func Unverifiable() Verification {
	return Verification{
		IsValid: true,
		Verdict: "verification unavailable",
		Issues:  []string{},
	}
}

// Record is the persisted outcome of one decision cycle. Created once,
// never mutated.
type Record struct {
	ID              string                `json:"id" db:"id"`
	Timestamp       time.Time             `json:"timestamp" db:"timestamp"`
	Price           float64               `json:"price" db:"price"`
	Decision        Action                `json:"decision" db:"decision"`
	Confidence      float64               `json:"confidence" db:"confidence"`
	Rationale       string                `json:"reasoning" db:"reasoning"`
	Evidence        []string              `json:"evidence" db:"-"`
	IsValid         bool                  `json:"is_valid" db:"is_valid"`
	Verdict         string                `json:"verdict" db:"verdict"`
	ProfitLoss      *float64              `json:"profit_loss" db:"profit_loss"`
	ChainOfThought  *ChainOfThought       `json:"chain_of_thought" db:"-"`
	NewsSentiment   market.SentimentLabel `json:"news_sentiment" db:"news_sentiment"`
	SocialSentiment market.SentimentLabel `json:"social_sentiment" db:"social_sentiment"`
}

// NewRecord assembles a trade record from one cycle's outputs
func NewRecord(snapshot *market.Snapshot, decision Decision, verification Verification, profitLoss float64) *Record {
	pl := profitLoss
	cot := decision.ChainOfThought

	evidence := make([]string, 0, len(snapshot.NewsItems)+len(snapshot.SocialItems))
	evidence = append(evidence, snapshot.NewsItems...)
	evidence = append(evidence, snapshot.SocialItems...)

	return &Record{
		ID:              uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		Price:           snapshot.Price,
		Decision:        decision.Action,
		Confidence:      decision.Confidence,
		Rationale:       decision.Rationale,
		Evidence:        evidence,
		IsValid:         verification.IsValid,
		Verdict:         verification.Verdict,
		ProfitLoss:      &pl,
		ChainOfThought:  &cot,
		NewsSentiment:   snapshot.NewsSentiment,
		SocialSentiment: snapshot.SocialSentiment,
	}
}

// Stats aggregates trade performance for the metrics endpoint
type Stats struct {
	TotalTrades      int        `json:"total_trades" db:"total_trades"`
	SuccessfulTrades int        `json:"successful_trades" db:"successful_trades"`
	TotalProfitLoss  float64    `json:"total_profit_loss" db:"total_profit_loss"`
	LastTradeTime    *time.Time `json:"last_trade_time" db:"last_trade_time"`
}

// AccuracyPercentage is successful/total*100, zero when no trades exist
func (s Stats) AccuracyPercentage() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.SuccessfulTrades) / float64(s.TotalTrades) * 100
}
