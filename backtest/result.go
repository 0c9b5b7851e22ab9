package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/quantsim/regime"
	"github.com/rustyeddy/quantsim/sim"
	"github.com/rustyeddy/quantsim/strategies"
)

// EquityPoint is one active bar's portfolio snapshot. The curve is
// append-only with strictly ascending timestamps, one point per active bar.
type EquityPoint struct {
	Time   time.Time
	Price  decimal.Decimal
	Value  decimal.Decimal
	Active []string
	Regime regime.Tag
}

// TradeRecord is one round trip: entry fill to exit fill.
type TradeRecord struct {
	ID         int
	Strategy   string
	Direction  strategies.Direction
	Amount     decimal.Decimal
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Fees       decimal.Decimal
	PnL        decimal.Decimal
	Reason     string
}

// StrategyFault records one failed strategy call. Faults never abort the
// run; they mean "no output this bar" for that strategy only.
type StrategyFault struct {
	Strategy string
	Bar      int
	Call     string
	Err      string
}

// Counters aggregates routing and gating activity over a run.
type Counters struct {
	RegimeEvals    int
	RegimeCounts   map[regime.Tag]int
	RouteChanges   int
	CooldownBlocks int
	RiskRejections int
}

// RunResult is the terminal outcome of one symbol's simulation. It is built
// once at run end; a run either yields a fully populated result or an error,
// never a partial result.
type RunResult struct {
	Symbol         string
	InitialCapital decimal.Decimal
	FinalValue     decimal.Decimal
	ReturnPct      float64

	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct float64

	Balance sim.Balance

	Trades      []TradeRecord
	Equity      []EquityPoint
	StrategyPnL map[string]decimal.Decimal

	Counters Counters

	// HaltBar is the first bar index at which the risk gate halted, -1 if it
	// never did. A halt blocks new entries only.
	HaltBar    int
	HaltReason string

	Faults []StrategyFault

	WarmupBars int
	TotalBars  int
}

// TotalReturn is the signed quote-currency gain over the run.
func (r *RunResult) TotalReturn() decimal.Decimal {
	return r.FinalValue.Sub(r.InitialCapital)
}

// Profitable reports whether the run ended above its starting capital.
func (r *RunResult) Profitable() bool {
	return r.FinalValue.GreaterThan(r.InitialCapital)
}
