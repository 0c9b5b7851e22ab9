package market

import (
	"fmt"
	"time"
)

// Timeframe is the bucket width of one candle tier.
type Timeframe time.Duration

const (
	M1  Timeframe = Timeframe(time.Minute)
	M5  Timeframe = Timeframe(5 * time.Minute)
	M15 Timeframe = Timeframe(15 * time.Minute)
	M30 Timeframe = Timeframe(30 * time.Minute)
	H1  Timeframe = Timeframe(time.Hour)
	H4  Timeframe = Timeframe(4 * time.Hour)
	D1  Timeframe = Timeframe(24 * time.Hour)
)

// DefaultTiers is the canonical 5-tier ladder used by the simulation loop:
// the finest tier first, coarsening to daily.
func DefaultTiers() []Timeframe {
	return []Timeframe{M5, M15, H1, H4, D1}
}

func (tf Timeframe) Duration() time.Duration { return time.Duration(tf) }

func (tf Timeframe) String() string {
	d := time.Duration(tf)
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	default:
		return fmt.Sprintf("%dm", d/time.Minute)
	}
}

// ParseTimeframe reads the compact "5m" / "4h" / "1d" form used in config
// files and kline feeds.
func ParseTimeframe(s string) (Timeframe, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("market: bad timeframe %q", s)
	}
	var n int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("market: bad timeframe %q", s)
	}
	switch s[len(s)-1] {
	case 'm':
		return Timeframe(time.Duration(n) * time.Minute), nil
	case 'h':
		return Timeframe(time.Duration(n) * time.Hour), nil
	case 'd':
		return Timeframe(time.Duration(n) * 24 * time.Hour), nil
	default:
		return 0, fmt.Errorf("market: bad timeframe unit in %q", s)
	}
}

// Truncate floors t to the start of the bucket containing it.
func (tf Timeframe) Truncate(t time.Time) time.Time {
	return t.Truncate(time.Duration(tf))
}
