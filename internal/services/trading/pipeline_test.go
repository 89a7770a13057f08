package trading

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/domain/market"
	"sibyl/internal/domain/settings"
	"sibyl/internal/domain/trade"
	"sibyl/internal/history"
	"sibyl/pkg/errors"
)

// mockChat returns canned responses for decision and verification calls
type mockChat struct {
	responses []string
	errs      []error
	calls     int
}

func (m *mockChat) Complete(ctx context.Context, system, user string) (string, error) {
	i := m.calls
	m.calls++
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], err
	}
	return "", err
}

// staticProvider returns a fixed snapshot
type staticProvider struct {
	snapshot *market.Snapshot
}

func (s *staticProvider) Capture(ctx context.Context) *market.Snapshot {
	return s.snapshot
}

// memTradeRepo is an in-memory trade.Repository for pipeline tests
type memTradeRepo struct {
	mu      sync.Mutex
	records []*trade.Record
}

func (m *memTradeRepo) Insert(ctx context.Context, record *trade.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memTradeRepo) GetByID(ctx context.Context, id string) (*trade.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (m *memTradeRepo) Latest(ctx context.Context) (*trade.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil, errors.ErrNotFound
	}
	return m.records[len(m.records)-1], nil
}

func (m *memTradeRepo) List(ctx context.Context, limit int) ([]*trade.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*trade.Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memTradeRepo) ListSince(ctx context.Context, cutoff time.Time) ([]*trade.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*trade.Record
	for _, r := range m.records {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memTradeRepo) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	records, _ := m.ListSince(ctx, cutoff)
	return len(records), nil
}

func (m *memTradeRepo) Stats(ctx context.Context) (*trade.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &trade.Stats{TotalTrades: len(m.records)}
	for _, r := range m.records {
		if r.ProfitLoss != nil {
			stats.TotalProfitLoss += *r.ProfitLoss
			if *r.ProfitLoss > 0 {
				stats.SuccessfulTrades++
			}
		}
	}
	return stats, nil
}

func (m *memTradeRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type staticSettings struct {
	s *settings.Settings
}

func (s *staticSettings) Get(ctx context.Context) (*settings.Settings, error) {
	return s.s, nil
}

func testSnapshot() *market.Snapshot {
	return &market.Snapshot{
		Price:           50000,
		Volume:          2500000,
		MomentumIndex:   55,
		NewsItems:       []string{"headline one"},
		SocialItems:     []string{"post one"},
		NewsSentiment:   market.SentimentNeutral,
		SocialSentiment: market.SentimentNeutral,
		CapturedAt:      time.Now().UTC(),
	}
}

const validVerificationJSON = `{"is_valid": true, "verdict": "sound", "issues": []}`

func TestPipeline_RunCycle_BuyDecision(t *testing.T) {
	chat := &mockChat{responses: []string{validDecisionJSON, validVerificationJSON}}
	repo := &memTradeRepo{}
	ledger := NewLedger(1000, history.NewDefaultStore())

	p := NewPipeline(
		&staticProvider{snapshot: testSnapshot()},
		NewEngine(chat), NewVerifier(chat),
		ledger, repo, nil, nil, nil,
	)

	record, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, trade.ActionBuy, record.Decision)
	assert.Equal(t, 50000.0, record.Price)
	assert.True(t, record.IsValid)
	assert.Equal(t, []string{"headline one", "post one"}, record.Evidence)
	assert.Equal(t, 1, repo.count())

	state := ledger.State()
	assert.Equal(t, 0.0, state.CashBalance)
	assert.Equal(t, 0.02, state.HeldAssetAmount)
}

func TestPipeline_RunCycle_MalformedDecisionHasNoSideEffects(t *testing.T) {
	chat := &mockChat{responses: []string{"definitely buy, trust me"}}
	repo := &memTradeRepo{}
	ledger := NewLedger(1000, history.NewDefaultStore())

	p := NewPipeline(
		&staticProvider{snapshot: testSnapshot()},
		NewEngine(chat), NewVerifier(chat),
		ledger, repo, nil, nil, nil,
	)

	_, err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDecisionFormat))

	// No record persisted, no portfolio mutation
	assert.Equal(t, 0, repo.count())
	assert.Equal(t, 1000.0, ledger.State().CashBalance)
}

func TestPipeline_RunCycle_UnparseableVerificationDegrades(t *testing.T) {
	chat := &mockChat{responses: []string{validDecisionJSON, "looks good to me!"}}
	repo := &memTradeRepo{}

	p := NewPipeline(
		&staticProvider{snapshot: testSnapshot()},
		NewEngine(chat), NewVerifier(chat),
		NewLedger(1000, history.NewDefaultStore()), repo, nil, nil, nil,
	)

	record, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, record.IsValid)
	assert.Equal(t, "verification unavailable", record.Verdict)
	assert.Equal(t, 1, repo.count())
}

func TestPipeline_RunCycle_NoEngineFails(t *testing.T) {
	p := NewPipeline(
		&staticProvider{snapshot: testSnapshot()},
		nil, nil,
		NewLedger(1000, history.NewDefaultStore()), &memTradeRepo{}, nil, nil, nil,
	)

	_, err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoDecisionProvider))
}

func TestPipeline_RunReducedCycle_RecordsHold(t *testing.T) {
	repo := &memTradeRepo{}
	ledger := NewLedger(1000, history.NewDefaultStore())

	p := NewPipeline(
		&staticProvider{snapshot: testSnapshot()},
		nil, nil, ledger, repo, nil, nil, nil,
	)

	record, err := p.RunReducedCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, trade.ActionHold, record.Decision)
	assert.Equal(t, 0.5, record.Confidence)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 1000.0, ledger.State().CashBalance)
}

func TestPipeline_DailyTradeCapBlocksCycle(t *testing.T) {
	capped := settings.Default()
	capped.MaxTradesPerDay = 2

	repo := &memTradeRepo{}
	p := NewPipeline(
		&staticProvider{snapshot: testSnapshot()},
		nil, nil,
		NewLedger(1000, history.NewDefaultStore()), repo,
		&staticSettings{s: capped}, nil, nil,
	)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := p.RunReducedCycle(ctx)
		require.NoError(t, err)
	}

	_, err := p.RunReducedCycle(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTradeCapReached))
	assert.Equal(t, 2, repo.count())
}
