package regime

import "github.com/rustyeddy/quantsim/market"

// Tag labels the current market character. The simulation loop treats tags
// as opaque; only the router's regime table gives them meaning.
type Tag string

const (
	Unknown  Tag = ""
	Trending Tag = "trending"
	Ranging  Tag = "ranging"
	Volatile Tag = "volatile"
)

// Classifier tags a market regime from a candle window, typically the H1
// tier of the rolling context. Implementations must be pure with respect to
// the window: same candles, same tag.
type Classifier interface {
	Analyze(window []market.Candle) Tag
}
