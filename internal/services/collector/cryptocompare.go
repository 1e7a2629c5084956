package collector

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
	"github.com/chainpulse/chainpulse/pkg/retrier"
)

const cryptoCompareBaseURL = "https://min-api.cryptocompare.com"

type cryptoCompareQuote struct {
	Price        float64 `json:"PRICE"`
	Volume24Hour float64 `json:"VOLUME24HOURTO"`
	ChangePct24H float64 `json:"CHANGEPCT24HOUR"`
	High24Hour   float64 `json:"HIGH24HOUR"`
	Low24Hour    float64 `json:"LOW24HOUR"`
}

type cryptoCompareFull struct {
	Raw map[string]map[string]cryptoCompareQuote `json:"RAW"`
}

// CryptoCompareAdapter fetches snapshots from the CryptoCompare REST API
// and synthesizes candles from retained snapshots.
type CryptoCompareAdapter struct {
	client  *resty.Client
	retrier *retrier.Retrier
	history *snapshotHistory
	logger  *zap.Logger
}

func NewCryptoCompareAdapter(timeout time.Duration, logger *zap.Logger) *CryptoCompareAdapter {
	return &CryptoCompareAdapter{
		client:  newRESTClient(cryptoCompareBaseURL, timeout),
		retrier: newRESTRetrier(),
		history: newSnapshotHistory(),
		logger:  logger,
	}
}

func (a *CryptoCompareAdapter) Name() string { return "cryptocompare" }

func (a *CryptoCompareAdapter) Initialize(ctx context.Context) error {
	return a.TestConnection(ctx)
}

func (a *CryptoCompareAdapter) TestConnection(ctx context.Context) error {
	var out map[string]float64
	params := map[string]string{"fsym": "BTC", "tsyms": "USD"}
	return getJSON(ctx, a.client, a.retrier, "/data/price", params, &out)
}

func (a *CryptoCompareAdapter) Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	base := cryptoCompareBase(symbol)
	if base == "" {
		return domain.MarketSnapshot{}, errors.Wrapf(domain.ErrUnsupportedSymbol, "cryptocompare has no mapping for %s", symbol)
	}

	var out cryptoCompareFull
	params := map[string]string{"fsyms": base, "tsyms": "USD"}
	if err := getJSON(ctx, a.client, a.retrier, "/data/pricemultifull", params, &out); err != nil {
		return domain.MarketSnapshot{}, err
	}

	quote, ok := out.Raw[base]["USD"]
	if !ok {
		return domain.MarketSnapshot{}, errors.Wrapf(domain.ErrConnectivity, "cryptocompare returned no quote for %s", base)
	}

	snapshot := domain.MarketSnapshot{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(quote.Price),
		Volume:    decimal.NewFromFloat(quote.Volume24Hour),
		Change24h: quote.ChangePct24H,
		High24h:   decimal.NewFromFloat(quote.High24Hour),
		Low24h:    decimal.NewFromFloat(quote.Low24Hour),
		Timestamp: time.Now().UTC(),
	}
	a.history.record(snapshot)

	return snapshot, nil
}

func (a *CryptoCompareAdapter) Candles(_ context.Context, symbol, _ string, limit int) ([]domain.Candle, error) {
	return a.history.candles(symbol, limit)
}

func (a *CryptoCompareAdapter) Close() error { return nil }

func cryptoCompareBase(symbol string) string {
	base, _, found := strings.Cut(symbol, "-")
	if !found {
		return ""
	}
	return base
}
