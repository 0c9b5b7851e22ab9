package strategies

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/sim"
)

// Noop does nothing. Useful as a placeholder and in tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }
func (Noop) Kind() string { return "noop" }

func (Noop) Analyze(market.RollingContext) error { return nil }

func (Noop) GenerateSignal([]market.Candle, sim.Balance) (*Signal, error) {
	return nil, nil
}

func (Noop) OpenPosition(*Signal, decimal.Decimal) (string, error) {
	return "", nil
}

func (Noop) UpdatePositions(decimal.Decimal, []market.Candle) ([]Exit, error) {
	return nil, nil
}

func (Noop) ClosePosition(string, string, decimal.Decimal) error { return nil }

func (Noop) Reset() {}
