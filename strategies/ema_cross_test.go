package strategies

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/sim"
)

func rcFromCloses(closes []float64) market.RollingContext {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	window := make([]market.Candle, len(closes))
	for i, v := range closes {
		window[i] = market.Candle{
			Time: start.Add(time.Duration(i) * 5 * time.Minute),
			Open: v, High: v, Low: v, Close: v, Volume: 1,
		}
	}
	return market.RollingContext{
		Tiers:   []market.Timeframe{market.M5},
		Windows: map[market.Timeframe][]market.Candle{market.M5: window},
	}
}

func TestEMACrossSignalsOnFreshCross(t *testing.T) {
	s := NewEMACross(EMACrossConfig{FastPeriod: 2, SlowPeriod: 4, StopPct: 0.02, RR: 2})

	// Falling closes: fast below slow.
	down := make([]float64, 20)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	require.NoError(t, s.Analyze(rcFromCloses(down)))

	sig, err := s.GenerateSignal(rcFromCloses(down).Base(), sim.Balance{})
	require.NoError(t, err)
	assert.Nil(t, sig, "no cross yet, just a first observation")

	// Sharp reversal pulls the fast EMA above the slow one.
	up := append(append([]float64{}, down...), 95, 105, 115, 125, 135)
	require.NoError(t, s.Analyze(rcFromCloses(up)))

	sig, err = s.GenerateSignal(rcFromCloses(up).Base(), sim.Balance{})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, Long, sig.Direction)
	assert.True(t, sig.Entry.Equal(decimal.NewFromFloat(135)))
	assert.True(t, sig.StopLoss.LessThan(sig.Entry))
	assert.True(t, sig.TakeProfit.GreaterThan(sig.Entry))

	// The cross is consumed; no second signal without a new cross.
	sig, err = s.GenerateSignal(rcFromCloses(up).Base(), sim.Balance{})
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestEMACrossStopAndTakeExits(t *testing.T) {
	s := NewEMACross(EMACrossConfig{FastPeriod: 2, SlowPeriod: 4, StopPct: 0.10, RR: 1})

	id, err := s.OpenPosition(&Signal{
		Direction:  Long,
		Entry:      decimal.NewFromInt(100),
		StopLoss:   decimal.NewFromInt(90),
		TakeProfit: decimal.NewFromInt(110),
	}, decimal.NewFromInt(1000))
	require.NoError(t, err)

	exits, err := s.UpdatePositions(decimal.NewFromInt(95), nil)
	require.NoError(t, err)
	assert.Empty(t, exits)

	exits, err = s.UpdatePositions(decimal.NewFromInt(89), nil)
	require.NoError(t, err)
	require.Len(t, exits, 1)
	assert.Equal(t, id, exits[0].PositionID)
	assert.Equal(t, "stop-loss", exits[0].Reason)

	require.NoError(t, s.ClosePosition(id, exits[0].Reason, decimal.NewFromInt(89)))
	assert.Error(t, s.ClosePosition(id, "again", decimal.NewFromInt(89)))

	// Take-profit side.
	id, err = s.OpenPosition(&Signal{
		Direction:  Long,
		Entry:      decimal.NewFromInt(100),
		StopLoss:   decimal.NewFromInt(90),
		TakeProfit: decimal.NewFromInt(110),
	}, decimal.NewFromInt(1000))
	require.NoError(t, err)

	exits, err = s.UpdatePositions(decimal.NewFromInt(111), nil)
	require.NoError(t, err)
	require.Len(t, exits, 1)
	assert.Equal(t, "take-profit", exits[0].Reason)
	require.NoError(t, s.ClosePosition(id, exits[0].Reason, decimal.NewFromInt(111)))
}

func TestEMACrossShortDisabledByDefault(t *testing.T) {
	s := NewEMACross(EMACrossConfig{FastPeriod: 2, SlowPeriod: 4, StopPct: 0.02, RR: 2})

	up := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	require.NoError(t, s.Analyze(rcFromCloses(up)))

	down := append(append([]float64{}, up...), 125, 115, 105, 95, 85)
	require.NoError(t, s.Analyze(rcFromCloses(down)))

	sig, err := s.GenerateSignal(rcFromCloses(down).Base(), sim.Balance{})
	require.NoError(t, err)
	assert.Nil(t, sig, "short signals suppressed unless AllowShort")
}
