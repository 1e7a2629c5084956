package collector

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
	"github.com/chainpulse/chainpulse/pkg/retrier"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

var coinGeckoIDs = map[string]string{
	"BTC-USD":   "bitcoin",
	"ETH-USD":   "ethereum",
	"ADA-USD":   "cardano",
	"MATIC-USD": "matic-network",
	"SOL-USD":   "solana",
	"LINK-USD":  "chainlink",
}

type coinGeckoMarket struct {
	CurrentPrice             float64  `json:"current_price"`
	TotalVolume              float64  `json:"total_volume"`
	PriceChangePercentage24H *float64 `json:"price_change_percentage_24h"`
	High24H                  *float64 `json:"high_24h"`
	Low24H                   *float64 `json:"low_24h"`
}

// CoinGeckoAdapter fetches snapshots from the CoinGecko REST API and
// synthesizes candles from retained snapshots. CoinGecko rate limits
// aggressively, so 429 handling matters most here.
type CoinGeckoAdapter struct {
	client  *resty.Client
	retrier *retrier.Retrier
	history *snapshotHistory
	logger  *zap.Logger
}

func NewCoinGeckoAdapter(timeout time.Duration, logger *zap.Logger) *CoinGeckoAdapter {
	return &CoinGeckoAdapter{
		client:  newRESTClient(coinGeckoBaseURL, timeout),
		retrier: newRESTRetrier(),
		history: newSnapshotHistory(),
		logger:  logger,
	}
}

func (a *CoinGeckoAdapter) Name() string { return "coingecko" }

func (a *CoinGeckoAdapter) Initialize(ctx context.Context) error {
	return a.TestConnection(ctx)
}

func (a *CoinGeckoAdapter) TestConnection(ctx context.Context) error {
	var out struct {
		GeckoSays string `json:"gecko_says"`
	}
	return getJSON(ctx, a.client, a.retrier, "/ping", nil, &out)
}

func (a *CoinGeckoAdapter) Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	id, ok := coinGeckoIDs[symbol]
	if !ok {
		return domain.MarketSnapshot{}, errors.Wrapf(domain.ErrUnsupportedSymbol, "coingecko has no mapping for %s", symbol)
	}

	var out []coinGeckoMarket
	params := map[string]string{"vs_currency": "usd", "ids": id}
	if err := getJSON(ctx, a.client, a.retrier, "/coins/markets", params, &out); err != nil {
		return domain.MarketSnapshot{}, err
	}
	if len(out) == 0 {
		return domain.MarketSnapshot{}, errors.Wrapf(domain.ErrConnectivity, "coingecko returned no market for %s", id)
	}

	m := out[0]
	price := decimal.NewFromFloat(m.CurrentPrice)
	high, low := price, price
	if m.High24H != nil {
		high = decimal.NewFromFloat(*m.High24H)
	}
	if m.Low24H != nil {
		low = decimal.NewFromFloat(*m.Low24H)
	}
	var change float64
	if m.PriceChangePercentage24H != nil {
		change = *m.PriceChangePercentage24H
	}

	snapshot := domain.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		Volume:    decimal.NewFromFloat(m.TotalVolume),
		Change24h: change,
		High24h:   high,
		Low24h:    low,
		Timestamp: time.Now().UTC(),
	}
	a.history.record(snapshot)

	return snapshot, nil
}

func (a *CoinGeckoAdapter) Candles(_ context.Context, symbol, _ string, limit int) ([]domain.Candle, error) {
	return a.history.candles(symbol, limit)
}

func (a *CoinGeckoAdapter) Close() error { return nil }
