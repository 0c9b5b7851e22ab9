package market

import (
	"fmt"
	"time"
)

// Candle represents one OHLCV (Open, High, Low, Close, Volume) bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// NewCandleMs builds a Candle from a millisecond epoch timestamp, the way
// exchange kline feeds deliver them.
func NewCandleMs(ms int64, o, h, l, c, v float64) Candle {
	return Candle{
		Time:   time.UnixMilli(ms).UTC(),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: v,
	}
}

// Series is an ordered run of candles at one timeframe. Use NewSeries to get
// the ordering/duplicate guarantees; a Series built by hand is trusted as-is.
type Series []Candle

// NewSeries validates that candles are strictly ascending by timestamp with no
// duplicates and returns them as a Series.
func NewSeries(candles []Candle) (Series, error) {
	if len(candles) == 0 {
		return nil, ErrEmptySeries
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return nil, fmt.Errorf("market: candle %d (%s) not after candle %d (%s): %w",
				i, candles[i].Time, i-1, candles[i-1].Time, ErrUnorderedSeries)
		}
	}
	return Series(candles), nil
}

// Start returns the timestamp of the first candle.
func (s Series) Start() time.Time { return s[0].Time }

// End returns the timestamp of the last candle.
func (s Series) End() time.Time { return s[len(s)-1].Time }
