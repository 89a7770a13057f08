package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markcheno/go-talib"

	"sibyl/internal/adapters/config"
	"sibyl/internal/domain/market"
	"sibyl/internal/history"
	"sibyl/internal/sentiment"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

const (
	coingeckoURL   = "https://api.coingecko.com/api/v3/simple/price"
	cryptopanicURL = "https://cryptopanic.com/api/v1/posts/"

	rsiPeriod = 14

	// sentiment points carry at most this many sample texts per source
	sampleCap = 3
)

// Fallback values used when an upstream source fails. Source failures are
// logged and recovered locally; Capture never fails outward.
var (
	fallbackNews = []string{
		"Bitcoin ETF approval expected this quarter",
		"Major institutional adoption continues",
		"Market volatility increases amid regulatory concerns",
		"Whale activity detected on major exchanges",
		"DeFi integration driving new use cases",
	}

	fallbackSocial = []string{
		"Large BTC transfer to exchange wallets observed",
		"Crypto market showing strong fundamentals",
		"Technical indicators suggest trend reversal",
		"Institutional buying pressure increasing",
		"Market sentiment remains cautiously optimistic",
	}
)

// SnapshotCache caches the latest snapshot between refresh ticks
type SnapshotCache interface {
	Get(ctx context.Context) (*market.Snapshot, bool)
	Set(ctx context.Context, snapshot *market.Snapshot)
}

// Provider captures point-in-time market snapshots from external sources.
// It is the sole writer of the price and sentiment history buffers.
type Provider struct {
	cfg        config.MarketConfig
	httpClient *http.Client
	classifier *sentiment.Classifier
	hist       *history.Store
	cache      SnapshotCache
	log        *logger.Logger
}

// NewProvider creates a market snapshot provider
func NewProvider(cfg config.MarketConfig, classifier *sentiment.Classifier, hist *history.Store, cache SnapshotCache) *Provider {
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		classifier: classifier,
		hist:       hist,
		cache:      cache,
		log:        logger.Get().With("component", "market_provider"),
	}
}

// Capture builds one market snapshot. Each upstream source degrades to its
// fallback on timeout, non-200 response, or malformed payload; the snapshot
// itself is always produced. Every capture, also one served from the cache,
// appends one price point and one sentiment point to the rolling history.
func (p *Provider) Capture(ctx context.Context) *market.Snapshot {
	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx); ok {
			p.record(cached)
			return cached
		}
	}

	snapshot := p.build(ctx)
	p.record(snapshot)

	if p.cache != nil {
		p.cache.Set(ctx, snapshot)
	}

	return snapshot
}

// Peek returns the current full snapshot without appending to the rolling
// history. A cached snapshot is served as is; otherwise the sources are
// queried the same way Capture queries them.
func (p *Provider) Peek(ctx context.Context) *market.Snapshot {
	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx); ok {
			return cached
		}
	}
	return p.build(ctx)
}

// build queries every source, degrading each one to its fallback on failure
func (p *Provider) build(ctx context.Context) *market.Snapshot {
	price, volume, change, err := p.fetchTicker(ctx)
	if err != nil {
		p.log.Warnf("Price source failed, using fallback: %v", err)
		price = 45000 + float64(rand.Intn(10001)-5000)
		volume = 0.5 + rand.Float64()*1.5
		change = 0
	}

	news, err := p.fetchNews(ctx)
	if err != nil {
		p.log.Warnf("News source failed, using fallback: %v", err)
		news = sample(fallbackNews, p.cfg.HeadlinesPerCycle)
	}

	// No live social feed is wired; the curated set stands in for it the same
	// way the fallbacks do for the other sources.
	social := sample(fallbackSocial, p.cfg.HeadlinesPerCycle)

	return &market.Snapshot{
		Price:           price,
		Volume:          volume,
		MomentumIndex:   p.momentumIndex(change),
		NewsItems:       news,
		SocialItems:     social,
		NewsSentiment:   p.classifier.Classify(news),
		SocialSentiment: p.classifier.Classify(social),
		CapturedAt:      time.Now().UTC(),
	}
}

// record appends the snapshot's price and sentiment observations, stamped at
// observation time so repeated cache hits stay distinct in the history
func (p *Provider) record(snapshot *market.Snapshot) {
	now := time.Now().UTC()
	p.hist.AppendPrice(market.PricePoint{
		Timestamp:     now,
		Price:         snapshot.Price,
		Volume:        snapshot.Volume,
		MomentumIndex: snapshot.MomentumIndex,
	})
	p.hist.AppendSentiment(market.SentimentPoint{
		Timestamp:       now,
		NewsSentiment:   snapshot.NewsSentiment,
		SocialSentiment: snapshot.SocialSentiment,
		SampleNews:      head(snapshot.NewsItems, sampleCap),
		SampleSocial:    head(snapshot.SocialItems, sampleCap),
	})
}

// momentumIndex derives the bounded [0,100] momentum proxy. With a warm price
// buffer it is a real RSI; before that it is derived from the 24h change as
// clamp(50 + change/2, 0, 100).
func (p *Provider) momentumIndex(change24h float64) float64 {
	closes := p.closes()
	if len(closes) > rsiPeriod {
		rsi := talib.Rsi(closes, rsiPeriod)
		if v := rsi[len(rsi)-1]; v > 0 {
			return v
		}
	}
	return clamp(50+change24h/2, 0, 100)
}

func (p *Provider) closes() []float64 {
	points := p.hist.Prices()
	closes := make([]float64, len(points))
	for i, pt := range points {
		closes[i] = pt.Price
	}
	return closes
}

// fetchTicker returns price, 24h volume and 24h change percentage from CoinGecko
func (p *Provider) fetchTicker(ctx context.Context) (price, volume, change float64, err error) {
	q := url.Values{}
	q.Set("ids", p.cfg.Asset)
	q.Set("vs_currencies", p.cfg.VsCurrency)
	q.Set("include_24hr_vol", "true")
	q.Set("include_24hr_change", "true")

	body, err := p.get(ctx, coingeckoURL+"?"+q.Encode())
	if err != nil {
		return 0, 0, 0, err
	}

	var payload map[string]map[string]float64
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, 0, 0, errors.Wrap(err, "decode coingecko response")
	}

	asset, ok := payload[p.cfg.Asset]
	if !ok {
		return 0, 0, 0, errors.Wrapf(errors.ErrExternal, "asset %q missing from coingecko response", p.cfg.Asset)
	}

	price, ok = asset[p.cfg.VsCurrency]
	if !ok || price <= 0 {
		return 0, 0, 0, errors.Wrapf(errors.ErrExternal, "no %s price in coingecko response", p.cfg.VsCurrency)
	}

	volume = asset[p.cfg.VsCurrency+"_24h_vol"]
	change = asset[p.cfg.VsCurrency+"_24h_change"]
	return price, volume, change, nil
}

// CryptoPanic API response structures
type cryptoPanicResponse struct {
	Results []cryptoPanicArticle `json:"results"`
}

type cryptoPanicArticle struct {
	Title string `json:"title"`
}

// fetchNews fetches recent headlines from CryptoPanic
func (p *Provider) fetchNews(ctx context.Context) ([]string, error) {
	u := cryptopanicURL
	params := url.Values{}
	if len(p.cfg.NewsCurrencies) > 0 {
		params.Set("currencies", strings.Join(p.cfg.NewsCurrencies, ","))
	}
	if p.cfg.NewsAPIKey != "" {
		params.Set("auth_token", p.cfg.NewsAPIKey)
	}
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}

	body, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var response cryptoPanicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "decode cryptopanic response")
	}

	headlines := make([]string, 0, len(response.Results))
	for _, article := range response.Results {
		if article.Title != "" {
			headlines = append(headlines, article.Title)
		}
	}
	if len(headlines) == 0 {
		return nil, errors.Wrapf(errors.ErrExternal, "no headlines in cryptopanic response")
	}

	if len(headlines) > p.cfg.HeadlinesPerCycle {
		headlines = headlines[:p.cfg.HeadlinesPerCycle]
	}
	return headlines, nil
}

func (p *Provider) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", "Sibyl Trading Agent/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// sample returns up to n items picked at random without replacement
func sample(items []string, n int) []string {
	if n >= len(items) {
		out := make([]string, len(items))
		copy(out, items)
		return out
	}
	idx := rand.Perm(len(items))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, items[i])
	}
	return out
}

func head(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
