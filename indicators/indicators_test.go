package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/market"
)

func closes(vals ...float64) []market.Candle {
	out := make([]market.Candle, len(vals))
	for i, v := range vals {
		out[i] = market.Candle{Open: v, High: v, Low: v, Close: v}
	}
	return out
}

func TestSimpleMA(t *testing.T) {
	ma := NewMA(3)
	assert.False(t, ma.Ready())
	assert.Zero(t, ma.Value())

	for _, c := range closes(1, 2, 3) {
		ma.Update(c)
	}
	require.True(t, ma.Ready())
	assert.InDelta(t, 2.0, ma.Value(), 1e-9)

	ma.Update(closes(7)[0])
	assert.InDelta(t, 4.0, ma.Value(), 1e-9, "window slides, (2+3+7)/3")

	ma.Reset()
	assert.False(t, ma.Ready())
}

func TestEMASeededWithSMA(t *testing.T) {
	ema := NewEMA(3)
	for _, c := range closes(2, 4, 6) {
		ema.Update(c)
	}
	require.True(t, ema.Ready())
	assert.InDelta(t, 4.0, ema.Value(), 1e-9, "seed is the SMA")

	// multiplier = 2/(3+1) = 0.5; next value = (8-4)*0.5 + 4 = 6
	ema.Update(closes(8)[0])
	assert.InDelta(t, 6.0, ema.Value(), 1e-9)
}

func TestATRWilderSmoothing(t *testing.T) {
	a := NewATR(2)
	assert.Equal(t, 3, a.Warmup())

	bars := []market.Candle{
		{Open: 10, High: 11, Low: 9, Close: 10},
		{Open: 10, High: 12, Low: 10, Close: 11}, // TR = 2
		{Open: 11, High: 13, Low: 9, Close: 12},  // TR = 4
		{Open: 12, High: 12, Low: 11, Close: 11}, // TR = 1
	}
	a.Update(bars[0])
	assert.False(t, a.Ready())
	a.Update(bars[1])
	a.Update(bars[2])
	require.True(t, a.Ready())
	assert.InDelta(t, 3.0, a.Value(), 1e-9, "seed = mean(2, 4)")

	a.Update(bars[3])
	assert.InDelta(t, 2.0, a.Value(), 1e-9, "(3*1 + 1)/2")
}

func TestATRCalculateWindow(t *testing.T) {
	a := NewATR(2)
	v := a.Calculate([]market.Candle{
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 9, Close: 12},
	})
	assert.InDelta(t, 3.0, v, 1e-9)
}
