package market

import (
	"fmt"
	"sort"
	"time"
)

// Aligned is the multi-timeframe view of one base series: tier 0 is the base
// series itself, every coarser tier is aggregated from it without lookahead.
// Aligned data is immutable for the duration of a run; all methods are safe
// to call concurrently.
type Aligned struct {
	Tiers  []Timeframe
	Series map[Timeframe]Series
}

// RollingContext is a bounded per-tier window ending at one base bar. Windows
// may be shorter than the requested lookback near the start of the series;
// they are never padded. A coarser bar appears only once it has fully closed
// at the base bar's close time.
type RollingContext struct {
	BaseIndex int
	Time      time.Time
	Tiers     []Timeframe
	Windows   map[Timeframe][]Candle
}

// Window returns the bounded window for one tier, nil if the tier is unknown.
func (rc RollingContext) Window(tf Timeframe) []Candle { return rc.Windows[tf] }

// Base returns the finest-tier window.
func (rc RollingContext) Base() []Candle { return rc.Windows[rc.Tiers[0]] }

// Align builds the aligned view of base over the given tiers. tiers[0] is the
// timeframe of the base series itself; coarser tiers must be ascending exact
// multiples of it. Aggregation is open=first, high=max, low=min, close=last,
// volume=sum per bucket, with bucket timestamps floored to the tier. A
// trailing bucket that has not yet collected its full complement of base bars
// is dropped rather than aggregated short.
func Align(base Series, tiers []Timeframe) (*Aligned, error) {
	if len(base) == 0 {
		return nil, ErrEmptySeries
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no tiers given: %w", ErrBadTimeframe)
	}
	baseTF := tiers[0]
	if baseTF <= 0 {
		return nil, fmt.Errorf("base tier %v: %w", baseTF, ErrBadTimeframe)
	}

	out := &Aligned{
		Tiers:  append([]Timeframe(nil), tiers...),
		Series: make(map[Timeframe]Series, len(tiers)),
	}
	out.Series[baseTF] = base

	for _, tf := range tiers[1:] {
		if tf <= baseTF {
			return nil, fmt.Errorf("tier %s not coarser than base %s: %w", tf, baseTF, ErrBadTimeframe)
		}
		if tf.Duration()%baseTF.Duration() != 0 {
			return nil, fmt.Errorf("tier %s not a multiple of base %s: %w", tf, baseTF, ErrBadTimeframe)
		}
		out.Series[tf] = aggregate(base, baseTF, tf)
	}
	return out, nil
}

// aggregate rolls base bars up into tf buckets. Mid-series gap buckets keep
// whatever bars exist; only the trailing bucket is subject to the
// completeness check.
func aggregate(base Series, baseTF, tf Timeframe) Series {
	var (
		out   Series
		cur   Candle
		count int
		open  bool
	)

	flush := func() {
		if open {
			out = append(out, cur)
		}
		open = false
		count = 0
	}

	for _, c := range base {
		start := tf.Truncate(c.Time)
		if !open || !start.Equal(cur.Time) {
			flush()
			cur = Candle{Time: start, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume}
			open = true
			count = 1
			continue
		}
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
		count++
	}

	// Trailing bucket: keep only if it collected its full complement.
	expected := int(tf.Duration() / baseTF.Duration())
	if open && count >= expected {
		out = append(out, cur)
	}
	return out
}

// ContextAt returns the bounded per-tier windows ending at base index idx.
// For the base tier the window is the last lookback bars ending at idx
// inclusive. For coarser tiers a bar is visible only if it closed at or
// before the base bar's close time.
func ContextAt(a *Aligned, idx, lookback int) (RollingContext, error) {
	baseTF := a.Tiers[0]
	base := a.Series[baseTF]
	if idx < 0 || idx >= len(base) {
		return RollingContext{}, fmt.Errorf("index %d of %d: %w", idx, len(base), ErrIndexOutOfRange)
	}
	if lookback <= 0 {
		return RollingContext{}, fmt.Errorf("lookback %d: %w", lookback, ErrIndexOutOfRange)
	}

	closeTime := base[idx].Time.Add(baseTF.Duration())

	rc := RollingContext{
		BaseIndex: idx,
		Time:      base[idx].Time,
		Tiers:     a.Tiers,
		Windows:   make(map[Timeframe][]Candle, len(a.Tiers)),
	}

	lo := idx + 1 - lookback
	if lo < 0 {
		lo = 0
	}
	rc.Windows[baseTF] = base[lo : idx+1]

	for _, tf := range a.Tiers[1:] {
		s := a.Series[tf]
		// First bar whose close is after the base bar's close is invisible.
		n := sort.Search(len(s), func(i int) bool {
			return s[i].Time.Add(tf.Duration()).After(closeTime)
		})
		lo := n - lookback
		if lo < 0 {
			lo = 0
		}
		rc.Windows[tf] = s[lo:n]
	}
	return rc, nil
}
