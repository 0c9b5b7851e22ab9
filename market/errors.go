package market

import "errors"

var (
	// ErrEmptySeries is returned when an operation needs at least one candle.
	ErrEmptySeries = errors.New("market: empty candle series")

	// ErrUnorderedSeries is returned when candles are not strictly ascending.
	ErrUnorderedSeries = errors.New("market: candles out of order")

	// ErrIndexOutOfRange is returned for a context index outside the base series.
	ErrIndexOutOfRange = errors.New("market: base index out of range")

	// ErrBadTimeframe is returned for a tier set the aligner cannot build.
	ErrBadTimeframe = errors.New("market: invalid timeframe set")
)
