package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/stats"
)

// MergedPoint is a portfolio-level equity snapshot: the sum of every
// surviving symbol's value at one shared timestamp.
type MergedPoint struct {
	Time  time.Time
	Value decimal.Decimal
}

// Result is the fan-in product of a portfolio run. Aggregated figures cover
// only the symbols that completed; Failed carries the rest.
type Result struct {
	TotalCapital decimal.Decimal
	Allocation   decimal.Decimal

	Symbols map[string]*backtest.RunResult
	Failed  map[string]error

	// Equity is the merged curve over timestamps common to every surviving
	// symbol. Symbols with misaligned candle sources shrink it rather than
	// corrupt it.
	Equity []MergedPoint

	Sharpe         float64
	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct float64 // percent of peak, 0-100

	// Correlations holds pairwise Pearson correlation of per-bar equity
	// returns, diagonal 1.0. Diversification is the mean off-diagonal value.
	Correlations    map[string]map[string]float64
	Diversification float64

	Best            string
	Worst           string
	ProfitableCount int

	Elapsed time.Duration

	order []string // surviving symbols, sorted
}

// Completed lists the surviving symbols in sorted order.
func (r *Result) Completed() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FinalValue is the merged curve's last point, or the sum of per-symbol
// final values when no common timestamps exist.
func (r *Result) FinalValue() decimal.Decimal {
	if n := len(r.Equity); n > 0 {
		return r.Equity[n-1].Value
	}
	var sum decimal.Decimal
	for _, sr := range r.Symbols {
		sum = sum.Add(sr.FinalValue)
	}
	return sum
}

// ReturnPct is the merged curve's return over the capital actually deployed.
func (r *Result) ReturnPct() float64 {
	deployed := r.Allocation.Mul(decimal.NewFromInt(int64(len(r.Symbols))))
	if !deployed.IsPositive() {
		return 0
	}
	ret, _ := r.FinalValue().Sub(deployed).Div(deployed).Float64()
	return ret * 100
}

// aggregate fills the portfolio-level figures from the surviving runs:
// the merged equity curve, Sharpe and drawdown on it, the correlation
// matrix, and the per-symbol ranking.
func (r *Runner) aggregate(res *Result) {
	res.Correlations = make(map[string]map[string]float64, len(res.order))

	// Per-symbol equity indexed by timestamp, plus the timestamps every
	// symbol shares.
	byTime := make(map[string]map[int64]decimal.Decimal, len(res.order))
	for _, sym := range res.order {
		m := make(map[int64]decimal.Decimal, len(res.Symbols[sym].Equity))
		for _, p := range res.Symbols[sym].Equity {
			m[p.Time.UnixMilli()] = p.Value
		}
		byTime[sym] = m
	}

	first := res.order[0]
	var common []backtest.EquityPoint
	for _, p := range res.Symbols[first].Equity {
		shared := true
		for _, sym := range res.order[1:] {
			if _, ok := byTime[sym][p.Time.UnixMilli()]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, p)
		}
	}

	values := make([]float64, 0, len(common))
	perSym := make(map[string][]float64, len(res.order))
	for _, p := range common {
		total := decimal.Decimal{}
		for _, sym := range res.order {
			v := byTime[sym][p.Time.UnixMilli()]
			total = total.Add(v)
			f, _ := v.Float64()
			perSym[sym] = append(perSym[sym], f)
		}
		res.Equity = append(res.Equity, MergedPoint{Time: p.Time, Value: total})
		f, _ := total.Float64()
		values = append(values, f)
	}

	res.Sharpe = stats.Sharpe(stats.Returns(values), r.periodsPerYear())
	abs, pct := stats.MaxDrawdown(values)
	res.MaxDrawdown = decimal.NewFromFloat(abs)
	res.MaxDrawdownPct = pct * 100

	returns := make(map[string][]float64, len(res.order))
	for _, sym := range res.order {
		returns[sym] = stats.Returns(perSym[sym])
	}
	var offSum float64
	var offN int
	for _, a := range res.order {
		res.Correlations[a] = make(map[string]float64, len(res.order))
		for _, b := range res.order {
			if a == b {
				res.Correlations[a][b] = 1.0
				continue
			}
			c := stats.Pearson(returns[a], returns[b])
			res.Correlations[a][b] = c
			offSum += c
			offN++
		}
	}
	if offN > 0 {
		res.Diversification = offSum / float64(offN)
	}

	for _, sym := range res.order {
		sr := res.Symbols[sym]
		if res.Best == "" || sr.TotalReturn().GreaterThan(res.Symbols[res.Best].TotalReturn()) {
			res.Best = sym
		}
		if res.Worst == "" || sr.TotalReturn().LessThan(res.Symbols[res.Worst].TotalReturn()) {
			res.Worst = sym
		}
		if sr.Profitable() {
			res.ProfitableCount++
		}
	}
}

// periodsPerYear annualizes per-bar returns from the base timeframe.
func (r *Runner) periodsPerYear() float64 {
	tiers := r.cfg.Loop.Tiers
	if len(tiers) == 0 {
		tiers = market.DefaultTiers()
	}
	tf := time.Duration(tiers[0])
	if tf <= 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(tf)
}
