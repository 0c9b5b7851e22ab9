package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quantsim/market"
)

// ATR is a streaming Average True Range indicator using Wilder's smoothing.
type ATR struct {
	period      int
	atr         float64
	count       int
	warmupSum   float64
	prevCandle  market.Candle
	hasPrevious bool
}

func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

// Warmup needs period+1 candles because TR requires the previous bar.
func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Reset() {
	a.atr = 0
	a.count = 0
	a.warmupSum = 0
	a.hasPrevious = false
}

func (a *ATR) Update(c market.Candle) {
	if !a.hasPrevious {
		a.prevCandle = c
		a.hasPrevious = true
		return
	}

	tr := trueRange(c, a.prevCandle)

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
	} else {
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}

	a.prevCandle = c
}

func (a *ATR) Ready() bool {
	return a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// Calculate runs the indicator over a whole window and returns the final value.
func (a *ATR) Calculate(candles []market.Candle) float64 {
	for _, c := range candles {
		a.Update(c)
	}
	return a.Value()
}

func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
