package risk

import "github.com/shopspring/decimal"

// Gate is the pre-trade check and kill-switch contract the simulation loop
// consumes. The loop calls CheckTrade before every entry and UpdateBalance
// once per bar with the marked portfolio value. A halted gate blocks new
// entries only; it never forces existing positions closed.
type Gate interface {
	InitializeBalance(capital decimal.Decimal)
	UpdateBalance(value decimal.Decimal)

	// CheckTrade decides whether a new entry of orderValue is acceptable
	// given current open exposure and available balance.
	CheckTrade(orderValue, exposure, available decimal.Decimal) bool

	// ResetPeriod starts a new accounting period (e.g. a trading day).
	ResetPeriod()

	Halted() bool
	HaltReason() string
}
