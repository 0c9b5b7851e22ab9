package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestBasicGateExposureLimits(t *testing.T) {
	g := NewBasicGate(Policy{MaxOrderPct: 0.25, MaxExposurePct: 0.5})
	g.InitializeBalance(d(10000))

	assert.True(t, g.CheckTrade(d(2000), d(0), d(10000)))
	assert.False(t, g.CheckTrade(d(3000), d(0), d(10000)), "single order over 25%")
	assert.False(t, g.CheckTrade(d(2000), d(4000), d(10000)), "total exposure over 50%")
	assert.False(t, g.CheckTrade(d(2000), d(0), d(1000)), "order over available")
	assert.False(t, g.CheckTrade(d(0), d(0), d(10000)), "zero-value order")
}

func TestBasicGateDrawdownHalt(t *testing.T) {
	g := NewBasicGate(Policy{MaxDrawdownPct: 0.2})
	g.InitializeBalance(d(10000))

	g.UpdateBalance(d(9000))
	assert.False(t, g.Halted())

	g.UpdateBalance(d(7500))
	assert.True(t, g.Halted())
	assert.Contains(t, g.HaltReason(), "drawdown")
	assert.False(t, g.CheckTrade(d(100), d(0), d(7500)))

	// Still under water, ResetPeriod does not lift a drawdown halt.
	g.ResetPeriod()
	assert.True(t, g.Halted())
}

func TestBasicGatePeriodLossHaltClearsOnReset(t *testing.T) {
	g := NewBasicGate(Policy{MaxPeriodLossPct: 0.05})
	g.InitializeBalance(d(10000))

	g.UpdateBalance(d(9400))
	assert.True(t, g.Halted())
	assert.Contains(t, g.HaltReason(), "period loss")

	g.ResetPeriod()
	assert.False(t, g.Halted())
	assert.True(t, g.CheckTrade(d(100), d(0), d(9400)))
}

func TestBasicGateNewPeakRaisesBaseline(t *testing.T) {
	g := NewBasicGate(Policy{MaxDrawdownPct: 0.2})
	g.InitializeBalance(d(10000))

	g.UpdateBalance(d(15000))
	g.UpdateBalance(d(12500))
	assert.False(t, g.Halted(), "16.7%% off the new peak")

	g.UpdateBalance(d(11900))
	assert.True(t, g.Halted(), "20.7%% off the 15000 peak")
}
