package datafeed

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/rustyeddy/quantsim/market"
)

// LoadKlinesJSON reads a Binance-style kline dump: a JSON array of rows, each
// row an array whose first six elements are
// [open_time_ms, open, high, low, close, volume]. Numeric fields may be JSON
// numbers or strings, as the exchange emits both.
func LoadKlinesJSON(path string) (market.Series, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("datafeed: read %s: %w", path, err)
	}
	s, err := ParseKlines(body)
	if err != nil {
		return nil, fmt.Errorf("datafeed: %s: %w", path, err)
	}
	return s, nil
}

// ParseKlines decodes kline rows from raw JSON bytes.
func ParseKlines(body []byte) (market.Series, error) {
	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, fmt.Errorf("kline payload is not an array")
	}

	rows := result.Array()
	candles := make([]market.Candle, 0, len(rows))
	for i, v := range rows {
		row := v.Array()
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d has %d fields, need 6", i, len(row))
		}
		candles = append(candles, market.NewCandleMs(
			row[0].Int(),
			row[1].Float(),
			row[2].Float(),
			row[3].Float(),
			row[4].Float(),
			row[5].Float(),
		))
	}
	return market.NewSeries(candles)
}
