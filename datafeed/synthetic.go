package datafeed

import (
	"math"
	"math/rand"
	"time"

	"github.com/rustyeddy/quantsim/market"
)

// SyntheticConfig shapes a generated random-walk series. The walk is
// geometric: per-bar log returns are drawn as Drift + Volatility×N(0,1).
type SyntheticConfig struct {
	Bars       int
	Start      time.Time
	Timeframe  market.Timeframe
	StartPrice float64
	Drift      float64
	Volatility float64
	BaseVolume float64
	Seed       int64
}

// Synthetic generates a gap-free candle series from cfg. The same seed
// always yields the same series, which keeps replay tests honest.
func Synthetic(cfg SyntheticConfig) market.Series {
	if cfg.Bars <= 0 {
		return nil
	}
	if cfg.Timeframe == 0 {
		cfg.Timeframe = market.M5
	}
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = 0.002
	}
	if cfg.BaseVolume <= 0 {
		cfg.BaseVolume = 10
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	tf := time.Duration(cfg.Timeframe)

	candles := make([]market.Candle, cfg.Bars)
	price := cfg.StartPrice
	for i := range candles {
		open := price
		close := open * math.Exp(cfg.Drift+cfg.Volatility*rng.NormFloat64())

		high := math.Max(open, close) * (1 + cfg.Volatility*math.Abs(rng.NormFloat64())/2)
		low := math.Min(open, close) * (1 - cfg.Volatility*math.Abs(rng.NormFloat64())/2)

		candles[i] = market.Candle{
			Time:   cfg.Start.Add(time.Duration(i) * tf),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: cfg.BaseVolume * (0.5 + rng.Float64()),
		}
		price = close
	}

	s, err := market.NewSeries(candles)
	if err != nil {
		// Timestamps are constructed strictly ascending; this cannot happen.
		panic(err)
	}
	return s
}
