package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionSymbol(t *testing.T) {
	cases := []struct {
		symbol     string
		underlying string
		expiry     string
		optType    OptionType
		strike     float64
	}{
		{"O:AAPL240426C00190000", "AAPL", "2024-04-26", Call, 190},
		{"O:AAPL240426P00190000", "AAPL", "2024-04-26", Put, 190},
		{"AAPL240426C00190000", "AAPL", "2024-04-26", Call, 190},
		{"O:F240119C00012500", "F", "2024-01-19", Call, 12.5},
		{"O:GOOGL250620P02700000", "GOOGL", "2025-06-20", Put, 2700},
		{"O:tsla241018c00250000", "TSLA", "2024-10-18", Call, 250},
	}

	for _, tc := range cases {
		t.Run(tc.symbol, func(t *testing.T) {
			c, err := ParseOptionSymbol(tc.symbol)
			require.NoError(t, err)
			assert.Equal(t, tc.underlying, c.Underlying)
			assert.Equal(t, tc.expiry, c.Expiry.Format("2006-01-02"))
			assert.Equal(t, tc.optType, c.Type)
			assert.Equal(t, tc.strike, c.Strike)
		})
	}
}

func TestParseOptionSymbolRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"O:",
		"AAPL",
		"O:AAPL",
		"O:AAPL240426",            // no type or strike
		"O:AAPL240426C",           // no strike
		"O:AAPL240426X00190000",   // bad option type
		"O:AAPL249999C00190000",   // impossible date
		"O:AAPL240426C0019000x0",  // non-numeric strike
		"O:AAPLABCDEFC00190000",   // no expiry digits
	}
	for _, s := range bad {
		_, err := ParseOptionSymbol(s)
		assert.Error(t, err, "symbol %q should not parse", s)
	}
}

func TestFormatOptionSymbolRoundTrip(t *testing.T) {
	orig := OptionSymbolComponents{
		Underlying: "AAPL",
		Expiry:     time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC),
		Type:       Call,
		Strike:     190,
	}

	sym := FormatOptionSymbol(orig)
	assert.Equal(t, "O:AAPL240426C00190000", sym)

	parsed, err := ParseOptionSymbol(sym)
	require.NoError(t, err)
	assert.Equal(t, orig, parsed)
}

func TestFormatOptionSymbolFractionalStrike(t *testing.T) {
	sym := FormatOptionSymbol(OptionSymbolComponents{
		Underlying: "F",
		Expiry:     time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC),
		Type:       Put,
		Strike:     12.5,
	})
	assert.Equal(t, "O:F240119P00012500", sym)
}

func TestRowsForUnderlyingExactMatch(t *testing.T) {
	snap := &Snapshot{Rows: []OptionQuote{
		{Symbol: "O:AA240426C00030000", Underlying: "AA"},
		{Symbol: "O:AAPL240426C00190000", Underlying: "AAPL"},
		{Symbol: "O:AAPL240426P00190000", Underlying: "AAPL"},
	}}

	rows := snap.RowsForUnderlying("aapl")
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "AAPL", r.Underlying)
	}

	// AA must not absorb AAPL rows, and vice versa
	require.Len(t, snap.RowsForUnderlying("AA"), 1)
}
