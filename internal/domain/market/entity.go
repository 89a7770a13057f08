package market

import "time"

// SentimentLabel classifies aggregate text polarity
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Snapshot is a point-in-time view of the market used for one decision cycle.
// Immutable once constructed.
type Snapshot struct {
	Price          float64        `json:"price"`
	Volume         float64        `json:"volume"`
	MomentumIndex  float64        `json:"momentum_index"` // bounded [0,100], RSI-like
	NewsItems      []string       `json:"news"`
	SocialItems    []string       `json:"social"`
	NewsSentiment  SentimentLabel `json:"news_sentiment"`
	SocialSentiment SentimentLabel `json:"social_sentiment"`
	CapturedAt     time.Time      `json:"timestamp"`
}

// PricePoint is one entry in the rolling price history
type PricePoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Price         float64   `json:"price"`
	Volume        float64   `json:"volume"`
	MomentumIndex float64   `json:"momentum_index"`
}

// PortfolioPoint is one entry in the rolling portfolio history
type PortfolioPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	TotalValue      float64   `json:"total_value"`
	CashBalance     float64   `json:"cash_balance"`
	HeldAssetAmount float64   `json:"held_asset_amount"`
	HeldAssetValue  float64   `json:"held_asset_value"`
}

// SentimentPoint is one entry in the rolling sentiment timeline.
// Sample slices carry at most three items each.
type SentimentPoint struct {
	Timestamp       time.Time      `json:"timestamp"`
	NewsSentiment   SentimentLabel `json:"news_sentiment"`
	SocialSentiment SentimentLabel `json:"social_sentiment"`
	SampleNews      []string       `json:"sample_news"`
	SampleSocial    []string       `json:"sample_social"`
}
