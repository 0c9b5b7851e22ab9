package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/quantsim/market"
)

func window(n int, closeAt func(i int) float64, halfRange float64) []market.Candle {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, n)
	for i := range out {
		c := closeAt(i)
		out[i] = market.Candle{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: c, High: c + halfRange, Low: c - halfRange, Close: c, Volume: 1,
		}
	}
	return out
}

func TestATRClassifier(t *testing.T) {
	c := NewATRClassifier(ATRClassifierConfig{ATRPeriod: 5, VolThreshold: 0.03, TrendThreshold: 0.02})

	t.Run("short window is unknown", func(t *testing.T) {
		w := window(5, func(int) float64 { return 100 }, 0.1)
		assert.Equal(t, Unknown, c.Analyze(w))
		assert.Equal(t, Unknown, c.Analyze(nil))
	})

	t.Run("wide bars tag volatile", func(t *testing.T) {
		// True range ~10 on a 100 price: ATR/price far above 3%.
		w := window(20, func(int) float64 { return 100 }, 5)
		assert.Equal(t, Volatile, c.Analyze(w))
	})

	t.Run("steady climb tags trending", func(t *testing.T) {
		// 4% net change with tight bars stays under the volatility gate.
		w := window(20, func(i int) float64 { return 100 + 0.2*float64(i) }, 0.05)
		assert.Equal(t, Trending, c.Analyze(w))
	})

	t.Run("flat tight market tags ranging", func(t *testing.T) {
		w := window(20, func(int) float64 { return 100 }, 0.05)
		assert.Equal(t, Ranging, c.Analyze(w))
	})

	t.Run("zero period falls back to defaults", func(t *testing.T) {
		d := NewATRClassifier(ATRClassifierConfig{})
		w := window(30, func(int) float64 { return 100 }, 0.05)
		assert.Equal(t, Ranging, d.Analyze(w))
	})
}
