package strategies

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/sim"
)

// Direction of a signal or position: +1 long, -1 short.
type Direction int8

const (
	Long  Direction = +1
	Short Direction = -1
)

func (d Direction) String() string {
	if d == Long {
		return "long"
	}
	return "short"
}

// Signal is a strategy's request to enter the market.
type Signal struct {
	Direction  Direction
	Entry      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Confidence float64
}

// Exit is a strategy's request to flatten one of its open positions.
type Exit struct {
	PositionID string
	Reason     string
}

// Strategy is the contract the simulation loop drives. Implementations own
// their indicator and position state; the loop owns order placement and
// balance bookkeeping.
//
// Analyze refreshes internal indicators from the multi-timeframe context.
// GenerateSignal may return (nil, nil) when there is nothing to do.
// OpenPosition registers a new position and returns its id; the loop records
// a matching handle and keeps it until ClosePosition.
// UpdatePositions is called every bar, even while the strategy is routed
// inactive, so open positions can always reach their exits.
type Strategy interface {
	Name() string
	Kind() string

	Analyze(rc market.RollingContext) error
	GenerateSignal(base []market.Candle, bal sim.Balance) (*Signal, error)

	OpenPosition(sig *Signal, cost decimal.Decimal) (string, error)
	UpdatePositions(price decimal.Decimal, base []market.Candle) ([]Exit, error)
	ClosePosition(id, reason string, price decimal.Decimal) error

	Reset()
}
