package collector

import (
	"context"
	"sort"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
	"github.com/chainpulse/chainpulse/pkg/retrier"
)

const bybitCategory = "spot"

var bybitSymbols = map[string]string{
	"BTC-USD":   "BTCUSDT",
	"ETH-USD":   "ETHUSDT",
	"ADA-USD":   "ADAUSDT",
	"MATIC-USD": "MATICUSDT",
	"SOL-USD":   "SOLUSDT",
	"LINK-USD":  "LINKUSDT",
}

var bybitIntervals = map[string]bybit.Interval{
	"1m":  bybit.Interval1,
	"5m":  bybit.Interval5,
	"15m": bybit.Interval15,
	"1h":  bybit.Interval60,
	"4h":  bybit.Interval240,
	"1d":  bybit.IntervalD,
}

// BybitAdapter fetches snapshots and native candles from the Bybit v5
// spot REST API.
type BybitAdapter struct {
	client  *bybit.Client
	retrier *retrier.Retrier
	logger  *zap.Logger
}

func NewBybitAdapter(client *bybit.Client, logger *zap.Logger) *BybitAdapter {
	return &BybitAdapter{client: client, retrier: newRESTRetrier(), logger: logger}
}

func (a *BybitAdapter) Name() string { return "bybit" }

func (a *BybitAdapter) Initialize(ctx context.Context) error {
	return a.TestConnection(ctx)
}

func (a *BybitAdapter) TestConnection(ctx context.Context) error {
	symbol := bybit.SymbolV5("BTCUSDT")
	return a.retrier.Do(ctx, func(context.Context) error {
		_, err := a.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
			Category: bybitCategory,
			Symbol:   &symbol,
		})
		if err != nil {
			return classifyBybitErr(err)
		}
		return nil
	})
}

func (a *BybitAdapter) Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	venueSymbol, ok := bybitSymbols[symbol]
	if !ok {
		return domain.MarketSnapshot{}, errors.Wrapf(domain.ErrUnsupportedSymbol, "bybit has no mapping for %s", symbol)
	}

	s := bybit.SymbolV5(venueSymbol)
	result, err := retrier.DoWithData(a.retrier, ctx, func(context.Context) (*bybit.V5GetTickersResponse, error) {
		res, err := a.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
			Category: bybitCategory,
			Symbol:   &s,
		})
		if err != nil {
			return nil, classifyBybitErr(err)
		}
		return res, nil
	})
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	if len(result.Result.Spot.List) == 0 {
		return domain.MarketSnapshot{}, errors.Wrapf(domain.ErrConnectivity, "bybit returned no ticker for %s", venueSymbol)
	}

	t := result.Result.Spot.List[0]
	price, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse last price %q", t.LastPrice)
	}
	volume, err := decimal.NewFromString(t.Volume24H)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse volume %q", t.Volume24H)
	}
	high, err := decimal.NewFromString(t.HighPrice24H)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse high price %q", t.HighPrice24H)
	}
	low, err := decimal.NewFromString(t.LowPrice24H)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse low price %q", t.LowPrice24H)
	}
	changeFraction, err := strconv.ParseFloat(t.Price24HPcnt, 64)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrapf(err, "failed to parse price change %q", t.Price24HPcnt)
	}

	return domain.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Change24h: changeFraction * 100,
		High24h:   high,
		Low24h:    low,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *BybitAdapter) Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	venueSymbol, ok := bybitSymbols[symbol]
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnsupportedSymbol, "bybit has no mapping for %s", symbol)
	}
	venueInterval, ok := bybitIntervals[interval]
	if !ok {
		return nil, errors.Errorf("bybit does not support interval %s", interval)
	}

	klines, err := retrier.DoWithData(a.retrier, ctx, func(context.Context) (*bybit.V5GetKlineResponse, error) {
		res, err := a.client.V5().Market().GetKline(bybit.V5GetKlineParam{
			Category: bybitCategory,
			Symbol:   bybit.SymbolV5(venueSymbol),
			Interval: venueInterval,
			Limit:    &limit,
		})
		if err != nil {
			return nil, classifyBybitErr(err)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if len(klines.Result.List) == 0 {
		return nil, errors.Wrapf(domain.ErrInsufficientData, "bybit returned no klines for %s", venueSymbol)
	}

	candles := make([]domain.Candle, 0, len(klines.Result.List))
	for i, k := range klines.Result.List {
		startMs, err := strconv.ParseInt(k.StartTime, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}
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
			Timestamp: time.Unix(0, startMs*int64(time.Millisecond)),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}

	// bybit returns klines newest first
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	return candles, nil
}

func (a *BybitAdapter) Close() error { return nil }

// classifyBybitErr maps the SDK's v5 rate-limit error (ret codes
// 10006/10018) onto the retryable sentinel.
func classifyBybitErr(err error) error {
	var rateErr *bybit.RateLimitV5Error
	if errors.As(err, &rateErr) {
		return errors.Wrap(domain.ErrRateLimited, err.Error())
	}
	return errors.Wrap(domain.ErrConnectivity, err.Error())
}
