package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Policy holds the limits enforced by BasicGate.
type Policy struct {
	// MaxOrderPct caps one order's value as a fraction of portfolio value.
	MaxOrderPct float64
	// MaxExposurePct caps total open exposure as a fraction of portfolio value.
	MaxExposurePct float64
	// MaxDrawdownPct halts new entries once peak-to-current drawdown
	// exceeds it.
	MaxDrawdownPct float64
	// MaxPeriodLossPct halts new entries until ResetPeriod once the loss
	// since the period start exceeds it. Zero disables the check.
	MaxPeriodLossPct float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxOrderPct:      0.25,
		MaxExposurePct:   0.50,
		MaxDrawdownPct:   0.20,
		MaxPeriodLossPct: 0.05,
	}
}

// BasicGate is a reference Gate: exposure caps plus drawdown and period-loss
// circuit breakers. Downstream systems plug in richer engines behind the
// same interface.
type BasicGate struct {
	policy Policy

	current     decimal.Decimal
	peak        decimal.Decimal
	periodStart decimal.Decimal

	halted     bool
	haltReason string
}

func NewBasicGate(policy Policy) *BasicGate {
	return &BasicGate{policy: policy}
}

func (g *BasicGate) InitializeBalance(capital decimal.Decimal) {
	g.current = capital
	g.peak = capital
	g.periodStart = capital
	g.halted = false
	g.haltReason = ""
}

func (g *BasicGate) UpdateBalance(value decimal.Decimal) {
	g.current = value
	if value.GreaterThan(g.peak) {
		g.peak = value
	}
	if g.halted {
		return
	}

	if g.policy.MaxDrawdownPct > 0 && g.peak.IsPositive() {
		dd, _ := g.peak.Sub(value).Div(g.peak).Float64()
		if dd > g.policy.MaxDrawdownPct {
			g.halted = true
			g.haltReason = fmt.Sprintf("drawdown %.2f%% exceeds max %.2f%%",
				100*dd, 100*g.policy.MaxDrawdownPct)
			return
		}
	}

	if g.policy.MaxPeriodLossPct > 0 && g.periodStart.IsPositive() {
		loss, _ := g.periodStart.Sub(value).Div(g.periodStart).Float64()
		if loss > g.policy.MaxPeriodLossPct {
			g.halted = true
			g.haltReason = fmt.Sprintf("period loss %.2f%% exceeds max %.2f%%",
				100*loss, 100*g.policy.MaxPeriodLossPct)
		}
	}
}

func (g *BasicGate) CheckTrade(orderValue, exposure, available decimal.Decimal) bool {
	if g.halted {
		return false
	}
	if !orderValue.IsPositive() || orderValue.GreaterThan(available) {
		return false
	}
	if g.policy.MaxOrderPct > 0 {
		limit := g.current.Mul(decimal.NewFromFloat(g.policy.MaxOrderPct))
		if orderValue.GreaterThan(limit) {
			return false
		}
	}
	if g.policy.MaxExposurePct > 0 {
		limit := g.current.Mul(decimal.NewFromFloat(g.policy.MaxExposurePct))
		if exposure.Add(orderValue).GreaterThan(limit) {
			return false
		}
	}
	return true
}

// ResetPeriod rebaselines the period-loss breaker and clears a period-loss
// halt. A drawdown halt stays until balances are re-initialized.
func (g *BasicGate) ResetPeriod() {
	g.periodStart = g.current
	if g.halted && g.policy.MaxDrawdownPct > 0 && g.peak.IsPositive() {
		dd, _ := g.peak.Sub(g.current).Div(g.peak).Float64()
		if dd > g.policy.MaxDrawdownPct {
			return // still in drawdown, halt stands
		}
	}
	g.halted = false
	g.haltReason = ""
}

func (g *BasicGate) Halted() bool       { return g.halted }
func (g *BasicGate) HaltReason() string { return g.haltReason }
