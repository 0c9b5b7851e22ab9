// Package stats holds the numeric helpers shared by the backtest loop and
// the portfolio runner. Analytics are float64: bookkeeping stays decimal,
// derived statistics do not need to be.
package stats

import "math"

// Returns computes simple per-period returns from a value curve. A zero
// value yields a zero return for that step rather than an infinity.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// Mean of xs, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// Sharpe is the annualized Sharpe ratio of per-period returns with a zero
// risk-free rate. periodsPerYear scales the per-period figure; zero or a
// zero standard deviation yields 0.
func Sharpe(returns []float64, periodsPerYear float64) float64 {
	sd := StdDev(returns)
	if sd == 0 || periodsPerYear <= 0 {
		return 0
	}
	return Mean(returns) / sd * math.Sqrt(periodsPerYear)
}

// MaxDrawdown returns the deepest peak-to-trough decline of a value curve,
// both absolute and as a fraction of the peak.
func MaxDrawdown(values []float64) (abs, pct float64) {
	if len(values) == 0 {
		return 0, 0
	}
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		dd := peak - v
		if dd > abs {
			abs = dd
			if peak > 0 {
				pct = dd / peak
			}
		}
	}
	return abs, pct
}

// Pearson computes the Pearson correlation coefficient of two equal-length
// samples. Degenerate inputs (length mismatch, fewer than two points, zero
// variance) yield 0.
func Pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	mx, my := Mean(xs), Mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}
