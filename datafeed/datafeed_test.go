package datafeed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/market"
)

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		"time,open,high,low,close,volume",
		"1700000000000,100,101,99,100.5,12",
		"1700000300000,100.5,102,100,101,8",
		"not a line",
		"1700000600000,101,101.5,100.5,101.2,abc",
		"1700000600000,101,101.5,100.5,101.2,5",
	}, "\n")

	s, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, s, 3, "header and malformed lines dropped")

	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), s[0].Time)
	assert.Equal(t, 100.5, s[0].Close)
	assert.Equal(t, 5.0, s[2].Volume)
}

func TestReadCSVUnordered(t *testing.T) {
	in := "1700000300000,1,1,1,1,1\n1700000000000,1,1,1,1,1\n"
	_, err := ReadCSV(strings.NewReader(in))
	assert.ErrorIs(t, err, market.ErrUnorderedSeries)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("1700000000000,100,101,99,100.5,12\n1700000300000,100.5,102,100,101,8\n"), 0o644))

	s, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, s, 2)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestParseKlines(t *testing.T) {
	// Binance emits prices as strings and trailing fields we ignore.
	body := `[
		[1700000000000,"100","101","99","100.5","12",1700000299999,"x",42,"y","z","0"],
		[1700000300000,"100.5","102","100","101","8",1700000599999,"x",40,"y","z","0"]
	]`
	s, err := ParseKlines([]byte(body))
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 100.5, s[0].Close)
	assert.Equal(t, time.UnixMilli(1700000300000).UTC(), s[1].Time)

	_, err = ParseKlines([]byte(`{"not":"an array"}`))
	assert.Error(t, err)

	_, err = ParseKlines([]byte(`[[1700000000000,"100"]]`))
	assert.Error(t, err)
}

func TestSyntheticDeterministic(t *testing.T) {
	cfg := SyntheticConfig{Bars: 500, Seed: 42, Timeframe: market.M5}
	a := Synthetic(cfg)
	b := Synthetic(cfg)
	require.Len(t, a, 500)
	assert.Equal(t, a, b, "same seed, same series")

	c := Synthetic(SyntheticConfig{Bars: 500, Seed: 43, Timeframe: market.M5})
	assert.NotEqual(t, a, c, "different seed diverges")
}

func TestSyntheticShape(t *testing.T) {
	s := Synthetic(SyntheticConfig{Bars: 200, Seed: 7})
	for i, c := range s {
		assert.GreaterOrEqual(t, c.High, c.Open, "bar %d", i)
		assert.GreaterOrEqual(t, c.High, c.Close, "bar %d", i)
		assert.LessOrEqual(t, c.Low, c.Open, "bar %d", i)
		assert.LessOrEqual(t, c.Low, c.Close, "bar %d", i)
		assert.Positive(t, c.Volume, "bar %d", i)
		if i > 0 {
			assert.Equal(t, 5*time.Minute, c.Time.Sub(s[i-1].Time), "gap-free 5m grid")
		}
	}

	assert.Nil(t, Synthetic(SyntheticConfig{}))
}
