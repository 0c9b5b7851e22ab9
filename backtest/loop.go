package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/regime"
	"github.com/rustyeddy/quantsim/risk"
	"github.com/rustyeddy/quantsim/sim"
	"github.com/rustyeddy/quantsim/strategies"
)

// Loop is the per-symbol simulation state machine. It owns one simulated
// exchange, one instance of every enabled strategy, and the position-handle
// bookkeeping that ties the two together.
//
// A Loop runs strictly sequentially: every bar's fills reflect that bar's
// price before equity is recorded. Concurrency lives one level up, in the
// portfolio runner, where independent loops run in parallel. Identical input
// and configuration always produce identical results: strategy iteration,
// order matching and ids are all deterministic and the loop never reads a
// clock or random source.
type Loop struct {
	cfg        Config
	gate       risk.Gate
	classifier regime.Classifier
	router     regime.Router

	kinds  []string
	strats []strategies.Strategy

	ex      *sim.Exchange
	handles map[string][]*handle

	// run accumulators
	equity     []EquityPoint
	trades     []TradeRecord
	pnl        map[string]decimal.Decimal
	faults     []StrategyFault
	counters   Counters
	haltBar    int
	haltReason string
}

// handle mirrors one strategy-side open position. It exists exactly while
// the strategy holds the position and is removed in the same step that
// closes it.
type handle struct {
	positionID string
	kind       string
	dir        strategies.Direction
	amount     decimal.Decimal
	entryPrice decimal.Decimal
	entryFee   decimal.Decimal
	entryTime  time.Time
	entryBar   int
}

// New builds a loop. Strategy instances are created here, one per enabled
// kind, in registry registration order.
func New(cfg Config, reg *strategies.Registry, gate risk.Gate, classifier regime.Classifier, router regime.Router) (*Loop, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil || gate == nil || classifier == nil || router == nil {
		return nil, fmt.Errorf("backtest: registry, gate, classifier and router are all required")
	}

	enabled := make(map[string]bool, len(cfg.Enabled))
	for _, k := range cfg.Enabled {
		if !reg.Has(k) {
			return nil, fmt.Errorf("backtest: enabled kind %q not registered", k)
		}
		enabled[k] = true
	}

	l := &Loop{
		cfg:        cfg,
		gate:       gate,
		classifier: classifier,
		router:     router,
		handles:    make(map[string][]*handle),
		pnl:        make(map[string]decimal.Decimal),
		haltBar:    -1,
	}

	// Registry order, filtered to the enabled set, keeps runs deterministic.
	for _, kind := range reg.Kinds() {
		if !enabled[kind] {
			continue
		}
		st, err := reg.New(kind)
		if err != nil {
			return nil, fmt.Errorf("backtest: build strategy %q: %w", kind, err)
		}
		l.kinds = append(l.kinds, kind)
		l.strats = append(l.strats, st)
	}
	return l, nil
}

// Run replays the base series through the two-phase state machine and
// returns the aggregated result. The context is checked between bars; a
// cancelled run returns ctx.Err() with no partial result.
func (l *Loop) Run(ctx context.Context, base market.Series) (*RunResult, error) {
	if len(base) <= l.cfg.WarmupBars {
		return nil, fmt.Errorf("backtest %s: %d bars cannot cover %d warmup bars: %w",
			l.cfg.Symbol, len(base), l.cfg.WarmupBars, market.ErrEmptySeries)
	}

	aligned, err := market.Align(base, l.cfg.Tiers)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", l.cfg.Symbol, err)
	}

	l.ex, err = sim.NewExchange(l.cfg.Exchange, l.cfg.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", l.cfg.Symbol, err)
	}
	l.gate.InitializeBalance(l.cfg.InitialCapital)
	for _, st := range l.strats {
		st.Reset()
	}
	l.counters.RegimeCounts = make(map[regime.Tag]int)

	var (
		cachedRegime regime.Tag
		prevActive   []string
		peak         = l.cfg.InitialCapital
		maxDD        decimal.Decimal
		maxDDPct     float64
	)

	for i, bar := range base {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// 1. Rolling context for all five tiers.
		rc, err := market.ContextAt(aligned, i, l.cfg.Lookback)
		if err != nil {
			return nil, fmt.Errorf("backtest %s bar %d: %w", l.cfg.Symbol, i, err)
		}

		// 2. Advance the exchange to this bar.
		l.ex.SetBar(bar)

		if i < l.cfg.WarmupBars {
			// Warmup: indicators may seed, nothing trades, no equity point.
			if i%l.cfg.AnalyzeEvery == 0 {
				for idx, st := range l.strats {
					l.guard(l.kinds[idx], i, "analyze", func() error { return st.Analyze(rc) })
				}
			}
			continue
		}
		active := i - l.cfg.WarmupBars

		// 3. Re-evaluate the regime every R bars, cached in between.
		if active%l.cfg.RegimeEvery == 0 {
			cachedRegime = l.classifier.Analyze(rc.Window(l.cfg.RegimeTier))
			l.counters.RegimeEvals++
			l.counters.RegimeCounts[cachedRegime]++
		}

		// 4. Route the active strategy set under the cooldown guard.
		route := l.router.OnBar(cachedRegime, i)
		if route.Blocked {
			l.counters.CooldownBlocks++
		}
		if !equalStrings(route.Active, prevActive) {
			l.counters.RouteChanges++
			prevActive = route.Active
		}
		activeSet := make(map[string]bool, len(route.Active))
		for _, k := range route.Active {
			activeSet[k] = true
		}

		// 5. Drive every strategy: entries while active, exits always.
		for idx, st := range l.strats {
			kind := l.kinds[idx]
			isActive := activeSet[kind]
			if !isActive && len(l.handles[kind]) == 0 {
				continue
			}

			if isActive {
				if active%l.cfg.AnalyzeEvery == 0 {
					l.guard(kind, i, "analyze", func() error { return st.Analyze(rc) })
				}
				if !l.gate.Halted() {
					l.tryEnter(st, kind, i, rc)
				}
			}

			// Open positions must reach their exits even while the
			// strategy is routed inactive.
			l.runExits(st, kind, i, rc)
		}

		// 6. One equity point per active bar.
		value := l.ex.PortfolioValue()
		l.equity = append(l.equity, EquityPoint{
			Time:   bar.Time,
			Price:  l.ex.Price(),
			Value:  value,
			Active: route.Active,
			Regime: cachedRegime,
		})
		if value.GreaterThan(peak) {
			peak = value
		}
		if dd := peak.Sub(value); dd.GreaterThan(maxDD) {
			maxDD = dd
			if peak.IsPositive() {
				maxDDPct, _ = dd.Div(peak).Float64()
			}
		}

		// 7. Feed the gate. A halt here blocks step 5 entries from the next
		// bar on; it never force-closes positions.
		l.gate.UpdateBalance(value)
		if l.haltBar < 0 && l.gate.Halted() {
			l.haltBar = i
			l.haltReason = l.gate.HaltReason()
			logs.Warnf("backtest %s: risk halt at bar %d: %s", l.cfg.Symbol, i, l.haltReason)
		}
	}

	final := l.ex.PortfolioValue()
	retPct := 0.0
	if l.cfg.InitialCapital.IsPositive() {
		retPct, _ = final.Sub(l.cfg.InitialCapital).Div(l.cfg.InitialCapital).Float64()
		retPct *= 100
	}

	return &RunResult{
		Symbol:         l.cfg.Symbol,
		InitialCapital: l.cfg.InitialCapital,
		FinalValue:     final,
		ReturnPct:      retPct,
		MaxDrawdown:    maxDD,
		MaxDrawdownPct: maxDDPct * 100,
		Balance:        l.ex.Balance(),
		Trades:         l.trades,
		Equity:         l.equity,
		StrategyPnL:    l.pnl,
		Counters:       l.counters,
		HaltBar:        l.haltBar,
		HaltReason:     l.haltReason,
		Faults:         l.faults,
		WarmupBars:     l.cfg.WarmupBars,
		TotalBars:      len(base),
	}, nil
}

// tryEnter asks the strategy for a signal and, if the risk gate accepts the
// sized order, opens the position. Rejections and exchange errors are
// demoted to "no trade this bar".
func (l *Loop) tryEnter(st strategies.Strategy, kind string, bar int, rc market.RollingContext) {
	var sig *strategies.Signal
	ok := l.guard(kind, bar, "generate_signal", func() error {
		var err error
		sig, err = st.GenerateSignal(rc.Base(), l.ex.Balance())
		return err
	})
	if !ok || sig == nil {
		return
	}
	if sig.Direction == strategies.Short && !l.cfg.Exchange.AllowShort {
		return
	}

	amount := l.size(sig)
	if !amount.IsPositive() {
		return
	}

	price := l.ex.Price()
	orderValue := amount.Mul(price)
	if !l.gate.CheckTrade(orderValue, l.exposure(price), l.ex.Balance().FreeQuote) {
		l.counters.RiskRejections++
		return
	}

	var posID string
	ok = l.guard(kind, bar, "open_position", func() error {
		var err error
		posID, err = st.OpenPosition(sig, orderValue)
		return err
	})
	if !ok {
		return
	}

	side := sim.Buy
	if sig.Direction == strategies.Short {
		side = sim.Sell
	}
	order, err := l.ex.CreateOrder(side, sim.Market, amount, decimal.Decimal{})
	if err != nil {
		// No trade this bar; unwind the strategy-side position so the two
		// sides stay reconciled.
		logs.Debugf("backtest %s bar %d: entry order for %s rejected: %v", l.cfg.Symbol, bar, kind, err)
		l.guard(kind, bar, "close_position", func() error {
			return st.ClosePosition(posID, "order-rejected", price)
		})
		return
	}

	l.handles[kind] = append(l.handles[kind], &handle{
		positionID: posID,
		kind:       kind,
		dir:        sig.Direction,
		amount:     amount,
		entryPrice: order.FillPrice,
		entryFee:   order.Fee,
		entryTime:  order.FillTime,
		entryBar:   bar,
	})
}

// runExits asks the strategy which positions to flatten and executes each
// exit as a market order, closing the handle in the same step.
func (l *Loop) runExits(st strategies.Strategy, kind string, bar int, rc market.RollingContext) {
	var exits []strategies.Exit
	ok := l.guard(kind, bar, "update_positions", func() error {
		var err error
		exits, err = st.UpdatePositions(l.ex.Price(), rc.Base())
		return err
	})
	if !ok {
		return
	}

	for _, x := range exits {
		h := l.takeHandle(kind, x.PositionID)
		if h == nil {
			logs.Warnf("backtest %s bar %d: %s exit for unknown position %q", l.cfg.Symbol, bar, kind, x.PositionID)
			continue
		}

		side := sim.Sell
		if h.dir == strategies.Short {
			side = sim.Buy
		}
		order, err := l.ex.CreateOrder(side, sim.Market, h.amount, decimal.Decimal{})
		if err != nil {
			// Could not flatten this bar; put the handle back and retry on
			// the next bar.
			logs.Warnf("backtest %s bar %d: exit order for %s failed: %v", l.cfg.Symbol, bar, kind, err)
			l.handles[kind] = append(l.handles[kind], h)
			continue
		}

		l.guard(kind, bar, "close_position", func() error {
			return st.ClosePosition(x.PositionID, x.Reason, order.FillPrice)
		})

		fees := h.entryFee.Add(order.Fee)
		gross := order.FillPrice.Sub(h.entryPrice).Mul(h.amount)
		if h.dir == strategies.Short {
			gross = gross.Neg()
		}
		pnl := gross.Sub(fees)

		l.trades = append(l.trades, TradeRecord{
			ID:         len(l.trades) + 1,
			Strategy:   kind,
			Direction:  h.dir,
			Amount:     h.amount,
			EntryTime:  h.entryTime,
			ExitTime:   order.FillTime,
			EntryPrice: h.entryPrice,
			ExitPrice:  order.FillPrice,
			Fees:       fees,
			PnL:        pnl,
			Reason:     x.Reason,
		})
		l.pnl[kind] = l.pnl[kind].Add(pnl)
	}
}

// size converts a signal into a base amount from risk-per-trade and the
// max-position fraction, clamped to what the free balance can actually pay
// for.
func (l *Loop) size(sig *strategies.Signal) decimal.Decimal {
	value := l.ex.PortfolioValue()
	entry := sig.Entry
	if !entry.IsPositive() {
		entry = l.ex.Price()
	}
	if !entry.IsPositive() {
		return decimal.Decimal{}
	}

	maxValue := value.Mul(decimal.NewFromFloat(l.cfg.MaxPositionFraction))
	amount := maxValue.DivRound(entry, sim.AmountPrecision)

	// Risk sizing only bites when the signal carries a stop.
	perUnit := entry.Sub(sig.StopLoss).Abs()
	if sig.StopLoss.IsPositive() && perUnit.IsPositive() {
		riskCapital := value.Mul(decimal.NewFromFloat(l.cfg.RiskPerTrade))
		riskAmount := riskCapital.DivRound(perUnit, sim.AmountPrecision)
		if riskAmount.LessThan(amount) {
			amount = riskAmount
		}
	}

	// Clamp to the free balance net of fee and slippage.
	one := decimal.NewFromInt(1)
	unitCost := entry.Mul(one.Add(l.cfg.Exchange.Slippage)).Mul(one.Add(l.cfg.Exchange.FeeRate))
	affordable := l.ex.Balance().FreeQuote.DivRound(unitCost, sim.AmountPrecision+2).Truncate(sim.AmountPrecision)
	if affordable.LessThan(amount) {
		amount = affordable
	}
	return amount.Truncate(sim.AmountPrecision)
}

// exposure is the absolute marked value of all open handles.
func (l *Loop) exposure(price decimal.Decimal) decimal.Decimal {
	var total decimal.Decimal
	for _, hs := range l.handles {
		for _, h := range hs {
			total = total.Add(h.amount.Mul(price).Abs())
		}
	}
	return total
}

func (l *Loop) takeHandle(kind, positionID string) *handle {
	hs := l.handles[kind]
	for i, h := range hs {
		if h.positionID == positionID {
			l.handles[kind] = append(hs[:i], hs[i+1:]...)
			return h
		}
	}
	return nil
}

// guard runs one strategy call with fault isolation: an error or panic is
// recorded against the strategy and bar, logged, and treated as "no output
// this bar" for that strategy only.
func (l *Loop) guard(kind string, bar int, call string, fn func() error) bool {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return true
	}
	l.faults = append(l.faults, StrategyFault{Strategy: kind, Bar: bar, Call: call, Err: err.Error()})
	logs.Warnf("backtest %s: strategy %s bar %d %s: %v", l.cfg.Symbol, kind, bar, call, err)
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
