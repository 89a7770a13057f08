package trading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sibyl/internal/adapters/ai"
	"sibyl/internal/domain/market"
	"sibyl/internal/domain/trade"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

const decisionSystemPrompt = `You are a crypto trading decision assistant. Always respond with structured JSON output containing your chain of thought reasoning and final trading decision.

Analyze the provided market data including price, volume, momentum index, news, and social posts. Make a trading decision based on technical analysis and sentiment.

Format your response as valid JSON:
{
  "chain_of_thought": {
    "market_analysis": "your technical analysis here",
    "risk_assessment": "risk evaluation",
    "reasoning_steps": ["step 1", "step 2", "step 3"]
  },
  "trading_decision": {
    "action": "BUY|SELL|HOLD",
    "confidence": 0.85,
    "reasoning": "final decision reasoning"
  }
}

Rules:
- Only respond with valid JSON
- Confidence must be between 0.0 and 1.0
- Action must be exactly BUY, SELL, or HOLD
- Base decisions on provided data only`

const verificationSystemPrompt = `You are a crypto trading decision verifier. Review the trading decision and evidence to determine if it is valid.

Check for:
- Logical consistency between evidence and decision
- No hallucinated facts
- Reasonable confidence levels
- Sound reasoning

Format your response as valid JSON:
{
  "is_valid": true,
  "verdict": "Reasoning is sound and well-supported",
  "issues": []
}

Only respond with valid JSON.`

// Engine asks the decision model for a structured trading decision and
// decodes it strictly. Any response that does not match the required schema
// is an ErrDecisionFormat; the engine never guesses a default action.
type Engine struct {
	chat ai.Chat
	log  *logger.Logger
}

// NewEngine creates a decision engine over the given chat model
func NewEngine(chat ai.Chat) *Engine {
	return &Engine{
		chat: chat,
		log:  logger.Get().With("component", "decision_engine"),
	}
}

// Brief renders the market snapshot and portfolio into the model's input
func Brief(snapshot *market.Snapshot, portfolio PortfolioState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current Market Data:\n")
	fmt.Fprintf(&b, "- Price: $%.2f\n", snapshot.Price)
	fmt.Fprintf(&b, "- Volume: %.2f\n", snapshot.Volume)
	fmt.Fprintf(&b, "- Momentum Index: %.1f\n", snapshot.MomentumIndex)
	fmt.Fprintf(&b, "- News: %s\n", strings.Join(snapshot.NewsItems, "; "))
	fmt.Fprintf(&b, "- Social: %s\n", strings.Join(snapshot.SocialItems, "; "))
	fmt.Fprintf(&b, "- News sentiment: %s, social sentiment: %s\n", snapshot.NewsSentiment, snapshot.SocialSentiment)
	fmt.Fprintf(&b, "\nCurrent Portfolio: $%.2f cash, %.6f units held\n", portfolio.CashBalance, portfolio.HeldAssetAmount)
	fmt.Fprintf(&b, "\nProvide your trading decision based on this data.\n")
	return b.String()
}

// decisionResponse mirrors the required response schema. Pointer fields
// distinguish missing keys from zero values.
type decisionResponse struct {
	ChainOfThought *struct {
		MarketAnalysis *string  `json:"market_analysis"`
		RiskAssessment *string  `json:"risk_assessment"`
		ReasoningSteps []string `json:"reasoning_steps"`
	} `json:"chain_of_thought"`
	TradingDecision *struct {
		Action     *string  `json:"action"`
		Confidence *float64 `json:"confidence"`
		Reasoning  *string  `json:"reasoning"`
	} `json:"trading_decision"`
}

// Decide runs one decision call and returns the typed decision
func (e *Engine) Decide(ctx context.Context, brief string) (trade.Decision, error) {
	raw, err := e.chat.Complete(ctx, decisionSystemPrompt, brief)
	if err != nil {
		return trade.Decision{}, err
	}
	return ParseDecision(raw)
}

// ParseDecision strictly decodes the model's response into a Decision
func ParseDecision(raw string) (trade.Decision, error) {
	var resp decisionResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return trade.Decision{}, errors.Wrapf(errors.ErrDecisionFormat, "decode decision: %v", err)
	}

	if resp.TradingDecision == nil {
		return trade.Decision{}, errors.Wrapf(errors.ErrDecisionFormat, "missing trading_decision")
	}
	if resp.ChainOfThought == nil {
		return trade.Decision{}, errors.Wrapf(errors.ErrDecisionFormat, "missing chain_of_thought")
	}

	td := resp.TradingDecision
	if td.Action == nil {
		return trade.Decision{}, errors.Wrapf(errors.ErrDecisionFormat, "missing trading_decision.action")
	}
	if td.Confidence == nil {
		return trade.Decision{}, errors.Wrapf(errors.ErrDecisionFormat, "missing trading_decision.confidence")
	}
	if td.Reasoning == nil {
		return trade.Decision{}, errors.Wrapf(errors.ErrDecisionFormat, "missing trading_decision.reasoning")
	}

	action, err := trade.ParseAction(strings.ToUpper(strings.TrimSpace(*td.Action)))
	if err != nil {
		return trade.Decision{}, err
	}

	confidence := *td.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	cot := trade.ChainOfThought{ReasoningSteps: resp.ChainOfThought.ReasoningSteps}
	if resp.ChainOfThought.MarketAnalysis != nil {
		cot.MarketAnalysis = *resp.ChainOfThought.MarketAnalysis
	}
	if resp.ChainOfThought.RiskAssessment != nil {
		cot.RiskAssessment = *resp.ChainOfThought.RiskAssessment
	}
	if cot.ReasoningSteps == nil {
		cot.ReasoningSteps = []string{}
	}

	return trade.Decision{
		Action:         action,
		Confidence:     confidence,
		Rationale:      *td.Reasoning,
		ChainOfThought: cot,
	}, nil
}

// Verifier asks the verification model to judge a decision. Verification is
// advisory: a response that cannot be parsed degrades to an unverifiable
// verdict instead of failing the cycle.
type Verifier struct {
	chat ai.Chat
	log  *logger.Logger
}

// NewVerifier creates a decision verifier over the given chat model
func NewVerifier(chat ai.Chat) *Verifier {
	return &Verifier{
		chat: chat,
		log:  logger.Get().With("component", "decision_verifier"),
	}
}

// Verify judges the decision against the evidence that produced it
func (v *Verifier) Verify(ctx context.Context, decision trade.Decision, brief string) trade.Verification {
	input := fmt.Sprintf(
		"Trading Decision: %s (confidence %.2f): %s\nMarket Evidence:\n%s\nChain of Thought: %s | %s | steps: %s\n\nVerify if this decision is valid and well-reasoned.",
		decision.Action, decision.Confidence, decision.Rationale,
		brief,
		decision.ChainOfThought.MarketAnalysis,
		decision.ChainOfThought.RiskAssessment,
		strings.Join(decision.ChainOfThought.ReasoningSteps, "; "),
	)

	raw, err := v.chat.Complete(ctx, verificationSystemPrompt, input)
	if err != nil {
		v.log.Warnf("Verification call failed, continuing unverified: %v", err)
		return trade.Unverifiable()
	}

	verification, err := ParseVerification(raw)
	if err != nil {
		v.log.Warnf("Verification response unparseable, continuing unverified: %v", err)
		return trade.Unverifiable()
	}
	return verification
}

// ParseVerification decodes the verifier's response
func ParseVerification(raw string) (trade.Verification, error) {
	var resp struct {
		IsValid *bool    `json:"is_valid"`
		Verdict *string  `json:"verdict"`
		Issues  []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return trade.Verification{}, errors.Wrapf(errors.ErrVerificationFormat, "decode verification: %v", err)
	}
	if resp.IsValid == nil || resp.Verdict == nil {
		return trade.Verification{}, errors.Wrapf(errors.ErrVerificationFormat, "missing required keys")
	}

	issues := resp.Issues
	if issues == nil {
		issues = []string{}
	}
	return trade.Verification{
		IsValid: *resp.IsValid,
		Verdict: *resp.Verdict,
		Issues:  issues,
	}, nil
}

// stripFences removes a surrounding markdown code fence, which models emit
// despite JSON-only instructions
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
