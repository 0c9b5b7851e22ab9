package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/quantsim/indicators"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/sim"
)

// EMACrossConfig parameterizes the fast/slow EMA crossover strategy.
type EMACrossConfig struct {
	FastPeriod int     `json:"fast-period" yaml:"fast-period"` // 20
	SlowPeriod int     `json:"slow-period" yaml:"slow-period"` // 50
	StopPct    float64 `json:"stop-pct" yaml:"stop-pct"`       // e.g. 0.02
	RR         float64 `json:"risk-reward" yaml:"risk-reward"` // take-profit multiple of risk
	AllowShort bool    `json:"allow-short" yaml:"allow-short"`
}

func EMACrossDefaults() EMACrossConfig {
	return EMACrossConfig{
		FastPeriod: 10,
		SlowPeriod: 30,
		StopPct:    0.02,
		RR:         2.0,
	}
}

// EMACross trades a fast/slow EMA crossover:
//   - enters on a fresh cross, one position at a time
//   - exits on stop, take, or the opposite cross
//
// Indicator state is rebuilt from the analysis window on every Analyze call,
// so the strategy stays correct however often the loop schedules analysis.
type EMACross struct {
	cfg EMACrossConfig

	lastDiff     float64
	haveLastDiff bool
	crossed      Direction // pending cross direction, 0 when none

	nextID    int
	positions map[string]*emaPosition
}

type emaPosition struct {
	dir   Direction
	entry decimal.Decimal
	stop  decimal.Decimal
	take  decimal.Decimal
}

func NewEMACross(cfg EMACrossConfig) *EMACross {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= cfg.FastPeriod {
		cfg = EMACrossDefaults()
	}
	if cfg.RR <= 0 {
		cfg.RR = 2.0
	}
	return &EMACross{
		cfg:       cfg,
		nextID:    1,
		positions: make(map[string]*emaPosition),
	}
}

func (s *EMACross) Name() string { return fmt.Sprintf("ema-cross(%d/%d)", s.cfg.FastPeriod, s.cfg.SlowPeriod) }
func (s *EMACross) Kind() string { return "ema-cross" }

func (s *EMACross) Reset() {
	s.lastDiff = 0
	s.haveLastDiff = false
	s.crossed = 0
	s.nextID = 1
	s.positions = make(map[string]*emaPosition)
}

// Analyze recomputes both EMAs over the base window and flags a cross when
// the fast/slow difference changes sign between analysis calls.
func (s *EMACross) Analyze(rc market.RollingContext) error {
	window := rc.Base()
	if len(window) < s.cfg.SlowPeriod {
		return nil
	}

	fast := indicators.NewEMA(s.cfg.FastPeriod)
	slow := indicators.NewEMA(s.cfg.SlowPeriod)
	for _, c := range window {
		fast.Update(c)
		slow.Update(c)
	}
	if !fast.Ready() || !slow.Ready() {
		return nil
	}

	diff := fast.Value() - slow.Value()
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil
	}

	switch {
	case diff > 0 && s.lastDiff <= 0:
		s.crossed = Long
	case diff < 0 && s.lastDiff >= 0:
		s.crossed = Short
	}
	s.lastDiff = diff
	return nil
}

// GenerateSignal consumes a pending cross. One position at a time: a cross
// while a position is open is handled as an exit in UpdatePositions instead.
func (s *EMACross) GenerateSignal(base []market.Candle, bal sim.Balance) (*Signal, error) {
	if s.crossed == 0 || len(s.positions) > 0 || len(base) == 0 {
		return nil, nil
	}
	dir := s.crossed
	if dir == Short && !s.cfg.AllowShort {
		s.crossed = 0
		return nil, nil
	}
	s.crossed = 0

	entry := decimal.NewFromFloat(base[len(base)-1].Close)
	stopDelta := entry.Mul(decimal.NewFromFloat(s.cfg.StopPct))
	takeDelta := stopDelta.Mul(decimal.NewFromFloat(s.cfg.RR))

	sig := &Signal{Direction: dir, Entry: entry, Confidence: 0.5}
	if dir == Long {
		sig.StopLoss = entry.Sub(stopDelta)
		sig.TakeProfit = entry.Add(takeDelta)
	} else {
		sig.StopLoss = entry.Add(stopDelta)
		sig.TakeProfit = entry.Sub(takeDelta)
	}
	return sig, nil
}

func (s *EMACross) OpenPosition(sig *Signal, cost decimal.Decimal) (string, error) {
	if sig == nil {
		return "", fmt.Errorf("ema-cross: nil signal")
	}
	id := fmt.Sprintf("ema-cross-%d", s.nextID)
	s.nextID++
	s.positions[id] = &emaPosition{
		dir:   sig.Direction,
		entry: sig.Entry,
		stop:  sig.StopLoss,
		take:  sig.TakeProfit,
	}
	return id, nil
}

// UpdatePositions checks stop/take against the current price and also exits
// on an opposite cross flagged by the last Analyze.
func (s *EMACross) UpdatePositions(price decimal.Decimal, base []market.Candle) ([]Exit, error) {
	var exits []Exit
	for id, p := range s.positions {
		switch p.dir {
		case Long:
			switch {
			case price.LessThanOrEqual(p.stop):
				exits = append(exits, Exit{PositionID: id, Reason: "stop-loss"})
			case price.GreaterThanOrEqual(p.take):
				exits = append(exits, Exit{PositionID: id, Reason: "take-profit"})
			case s.crossed == Short:
				exits = append(exits, Exit{PositionID: id, Reason: "opposite-cross"})
			}
		case Short:
			switch {
			case price.GreaterThanOrEqual(p.stop):
				exits = append(exits, Exit{PositionID: id, Reason: "stop-loss"})
			case price.LessThanOrEqual(p.take):
				exits = append(exits, Exit{PositionID: id, Reason: "take-profit"})
			case s.crossed == Long:
				exits = append(exits, Exit{PositionID: id, Reason: "opposite-cross"})
			}
		}
	}
	return exits, nil
}

func (s *EMACross) ClosePosition(id, reason string, price decimal.Decimal) error {
	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("ema-cross: position %q not found", id)
	}
	delete(s.positions, id)
	return nil
}
