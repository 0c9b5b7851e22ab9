// Package datafeed loads candle series from disk or synthesizes them. The
// simulation core never touches I/O; everything here runs before a backtest
// starts.
package datafeed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/yanun0323/logs"

	"github.com/rustyeddy/quantsim/market"
)

// LoadCSV reads a candle file with one bar per line:
//
//	timestamp_ms,open,high,low,close,volume
//
// A header line is skipped. Malformed lines are counted and dropped rather
// than aborting the load; ordering is enforced by market.NewSeries.
func LoadCSV(path string) (market.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datafeed: open %s: %w", path, err)
	}
	defer f.Close()

	s, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("datafeed: %s: %w", path, err)
	}
	return s, nil
}

// ReadCSV parses candle lines from r. Exposed separately so tests and
// non-file sources can feed the same parser.
func ReadCSV(r io.Reader) (market.Series, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var candles []market.Candle
	var badLines int
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if lineNo == 1 && strings.HasPrefix(strings.ToLower(line), "time") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 6 {
			badLines++
			continue
		}

		ms, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			badLines++
			continue
		}
		var fields [5]float64
		ok := true
		for i := 0; i < 5; i++ {
			fields[i], err = strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			badLines++
			continue
		}
		candles = append(candles, market.NewCandleMs(ms, fields[0], fields[1], fields[2], fields[3], fields[4]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if badLines > 0 {
		logs.Warnf("datafeed: dropped %d malformed lines", badLines)
	}
	return market.NewSeries(candles)
}
