package regime

import (
	"math"

	"github.com/rustyeddy/quantsim/indicators"
	"github.com/rustyeddy/quantsim/market"
)

// ATRClassifierConfig tunes the reference classifier thresholds.
type ATRClassifierConfig struct {
	ATRPeriod int
	// VolThreshold: ATR / last close above this tags Volatile.
	VolThreshold float64
	// TrendThreshold: absolute net change over the window above this tags
	// Trending.
	TrendThreshold float64
}

func ATRClassifierDefaults() ATRClassifierConfig {
	return ATRClassifierConfig{
		ATRPeriod:      14,
		VolThreshold:   0.03,
		TrendThreshold: 0.02,
	}
}

// ATRClassifier is a reference Classifier: volatility from ATR relative to
// price, trend from the window's net change. Richer classifiers live
// downstream and plug in behind the Classifier interface.
type ATRClassifier struct {
	cfg ATRClassifierConfig
}

func NewATRClassifier(cfg ATRClassifierConfig) *ATRClassifier {
	if cfg.ATRPeriod <= 0 {
		cfg = ATRClassifierDefaults()
	}
	return &ATRClassifier{cfg: cfg}
}

func (c *ATRClassifier) Analyze(window []market.Candle) Tag {
	if len(window) < c.cfg.ATRPeriod+1 {
		return Unknown
	}

	last := window[len(window)-1].Close
	first := window[0].Close
	if last <= 0 || first <= 0 {
		return Unknown
	}

	atr := indicators.NewATR(c.cfg.ATRPeriod).Calculate(window)
	if atr/last > c.cfg.VolThreshold {
		return Volatile
	}
	if math.Abs(last-first)/first > c.cfg.TrendThreshold {
		return Trending
	}
	return Ranging
}
