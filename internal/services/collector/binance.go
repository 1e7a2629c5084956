package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
	"github.com/chainpulse/chainpulse/pkg/retrier"
)

// binanceTooManyRequests is the API error code Binance returns when the
// request weight limit is exceeded.
const binanceTooManyRequests = -1003

var binanceSymbols = map[string]string{
	"BTC-USD":   "BTCUSDT",
	"ETH-USD":   "ETHUSDT",
	"ADA-USD":   "ADAUSDT",
	"MATIC-USD": "MATICUSDT",
	"SOL-USD":   "SOLUSDT",
	"LINK-USD":  "LINKUSDT",
}

// BinanceAdapter fetches snapshots and native candles from the Binance
// spot REST API.
type BinanceAdapter struct {
	client  *binance.Client
	retrier *retrier.Retrier
	logger  *zap.Logger
}

func NewBinanceAdapter(client *binance.Client, logger *zap.Logger) *BinanceAdapter {
	return &BinanceAdapter{client: client, retrier: newRESTRetrier(), logger: logger}
}

func (a *BinanceAdapter) Name() string { return "binance" }

func (a *BinanceAdapter) Initialize(ctx context.Context) error {
	return a.TestConnection(ctx)
}

func (a *BinanceAdapter) TestConnection(ctx context.Context) error {
	return a.retrier.Do(ctx, func(ctx context.Context) error {
		if err := a.client.NewPingService().Do(ctx); err != nil {
			return classifyBinanceErr(err)
		}
		return nil
	})
}

func (a *BinanceAdapter) Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	venueSymbol, ok := binanceSymbols[symbol]
	if !ok {
		return domain.MarketSnapshot{}, errors.Wrapf(domain.ErrUnsupportedSymbol, "binance has no mapping for %s", symbol)
	}

	stats, err := retrier.DoWithData(a.retrier, ctx, func(ctx context.Context) ([]*binance.PriceChangeStats, error) {
		res, err := a.client.NewListPriceChangeStatsService().Symbol(venueSymbol).Do(ctx)
		if err != nil {
			return nil, classifyBinanceErr(err)
		}
		return res, nil
	})
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	if len(stats) == 0 {
		return domain.MarketSnapshot{}, errors.Wrapf(domain.ErrConnectivity, "binance returned no ticker for %s", venueSymbol)
	}

	t := stats[0]
	price, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse last price %q", t.LastPrice)
	}
	volume, err := decimal.NewFromString(t.QuoteVolume)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse quote volume %q", t.QuoteVolume)
	}
	high, err := decimal.NewFromString(t.HighPrice)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse high price %q", t.HighPrice)
	}
	low, err := decimal.NewFromString(t.LowPrice)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse low price %q", t.LowPrice)
	}
	change, err := decimal.NewFromString(t.PriceChangePercent)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse price change %q", t.PriceChangePercent)
	}

	return domain.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Change24h: change.InexactFloat64(),
		High24h:   high,
		Low24h:    low,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *BinanceAdapter) Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	venueSymbol, ok := binanceSymbols[symbol]
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnsupportedSymbol, "binance has no mapping for %s", symbol)
	}

	klines, err := retrier.DoWithData(a.retrier, ctx, func(ctx context.Context) ([]*binance.Kline, error) {
		res, err := a.client.NewKlinesService().
			Symbol(venueSymbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		if err != nil {
			return nil, classifyBinanceErr(err)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(klines))
	for i, k := range klines {
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
		}
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse volume at index %d", i)
		}

		candles = append(candles, domain.Candle{
			Timestamp: time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}

	return candles, nil
}

func (a *BinanceAdapter) Close() error { return nil }

func classifyBinanceErr(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == binanceTooManyRequests {
		return errors.Wrap(domain.ErrRateLimited, apiErr.Message)
	}
	return errors.Wrap(domain.ErrConnectivity, err.Error())
}
