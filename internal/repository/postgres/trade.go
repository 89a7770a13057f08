package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"sibyl/internal/domain/market"
	"sibyl/internal/domain/trade"
	"sibyl/pkg/errors"
)

// Compile-time check
var _ trade.Repository = (*TradeRepository)(nil)

// TradeRepository implements trade.Repository using sqlx
type TradeRepository struct {
	db *sqlx.DB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sqlx.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// tradeRow mirrors the trade_records table; evidence and chain_of_thought
// are JSONB columns
type tradeRow struct {
	ID              string          `db:"id"`
	Timestamp       time.Time       `db:"timestamp"`
	Price           float64         `db:"price"`
	Decision        string          `db:"decision"`
	Confidence      float64         `db:"confidence"`
	Reasoning       string          `db:"reasoning"`
	Evidence        json.RawMessage `db:"evidence"`
	IsValid         bool            `db:"is_valid"`
	Verdict         string          `db:"verdict"`
	ProfitLoss      *float64        `db:"profit_loss"`
	ChainOfThought  json.RawMessage `db:"chain_of_thought"`
	NewsSentiment   string          `db:"news_sentiment"`
	SocialSentiment string          `db:"social_sentiment"`
}

func (row *tradeRow) toRecord() (*trade.Record, error) {
	record := &trade.Record{
		ID:              row.ID,
		Timestamp:       row.Timestamp,
		Price:           row.Price,
		Decision:        trade.Action(row.Decision),
		Confidence:      row.Confidence,
		Rationale:       row.Reasoning,
		IsValid:         row.IsValid,
		Verdict:         row.Verdict,
		ProfitLoss:      row.ProfitLoss,
		NewsSentiment:   market.SentimentLabel(row.NewsSentiment),
		SocialSentiment: market.SentimentLabel(row.SocialSentiment),
	}

	if len(row.Evidence) > 0 {
		if err := json.Unmarshal(row.Evidence, &record.Evidence); err != nil {
			return nil, errors.Wrap(err, "decode evidence")
		}
	}
	if len(row.ChainOfThought) > 0 && string(row.ChainOfThought) != "null" {
		var cot trade.ChainOfThought
		if err := json.Unmarshal(row.ChainOfThought, &cot); err != nil {
			return nil, errors.Wrap(err, "decode chain of thought")
		}
		record.ChainOfThought = &cot
	}

	return record, nil
}

// Insert persists a new trade record
func (r *TradeRepository) Insert(ctx context.Context, record *trade.Record) error {
	evidence, err := json.Marshal(record.Evidence)
	if err != nil {
		return errors.Wrap(err, "encode evidence")
	}

	var cot []byte
	if record.ChainOfThought != nil {
		cot, err = json.Marshal(record.ChainOfThought)
		if err != nil {
			return errors.Wrap(err, "encode chain of thought")
		}
	}

	query := `
		INSERT INTO trade_records (
			id, timestamp, price, decision, confidence, reasoning,
			evidence, is_valid, verdict, profit_loss, chain_of_thought,
			news_sentiment, social_sentiment
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.Timestamp, record.Price, record.Decision,
		record.Confidence, record.Rationale, evidence, record.IsValid,
		record.Verdict, record.ProfitLoss, cot,
		record.NewsSentiment, record.SocialSentiment,
	)

	return err
}

// GetByID retrieves a trade record by ID
func (r *TradeRepository) GetByID(ctx context.Context, id string) (*trade.Record, error) {
	var row tradeRow

	query := `SELECT * FROM trade_records WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "trade %s", id)
		}
		return nil, err
	}

	return row.toRecord()
}

// Latest retrieves the most recent trade record
func (r *TradeRepository) Latest(ctx context.Context) (*trade.Record, error) {
	var row tradeRow

	query := `SELECT * FROM trade_records ORDER BY timestamp DESC LIMIT 1`

	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(errors.ErrNotFound, "no trades recorded")
		}
		return nil, err
	}

	return row.toRecord()
}

// List retrieves the most recent trade records, newest first
func (r *TradeRepository) List(ctx context.Context, limit int) ([]*trade.Record, error) {
	var rows []tradeRow

	query := `SELECT * FROM trade_records ORDER BY timestamp DESC LIMIT $1`

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	return toRecords(rows)
}

// ListSince retrieves trade records at or after a cutoff, oldest first
func (r *TradeRepository) ListSince(ctx context.Context, cutoff time.Time) ([]*trade.Record, error) {
	var rows []tradeRow

	query := `
		SELECT * FROM trade_records
		WHERE timestamp >= $1
		ORDER BY timestamp ASC`

	if err := r.db.SelectContext(ctx, &rows, query, cutoff); err != nil {
		return nil, err
	}

	return toRecords(rows)
}

// CountSince counts trade records at or after a cutoff
func (r *TradeRepository) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int

	query := `SELECT COUNT(*) FROM trade_records WHERE timestamp >= $1`

	if err := r.db.GetContext(ctx, &count, query, cutoff); err != nil {
		return 0, err
	}

	return count, nil
}

// Stats aggregates trade performance across all records. A trade counts as
// successful when its recorded profit_loss is positive.
func (r *TradeRepository) Stats(ctx context.Context) (*trade.Stats, error) {
	var stats trade.Stats

	query := `
		SELECT
			COUNT(*) as total_trades,
			COALESCE(SUM(CASE WHEN profit_loss > 0 THEN 1 ELSE 0 END), 0) as successful_trades,
			COALESCE(SUM(profit_loss), 0) as total_profit_loss,
			MAX(timestamp) as last_trade_time
		FROM trade_records`

	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, err
	}

	return &stats, nil
}

func toRecords(rows []tradeRow) ([]*trade.Record, error) {
	records := make([]*trade.Record, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
