package data

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// OptionSymbolComponents holds the fields embedded in an OCC-style option
// symbol such as O:AAPL240426C00190000.
type OptionSymbolComponents struct {
	Underlying string
	Expiry     time.Time
	Type       OptionType
	Strike     float64
}

// ParseOptionSymbol extracts the underlying, expiry, option type and strike
// from a vendor option symbol. The leading "O:" prefix is optional. The
// parser scans for the six-digit YYMMDD run that terminates the underlying
// root, so roots of any length (F, AAPL, GOOGL) parse without a fixed width.
//
// It is total: any malformed input returns an error, never a panic.
func ParseOptionSymbol(symbol string) (OptionSymbolComponents, error) {
	var c OptionSymbolComponents

	t := symbol
	if i := strings.Index(t, ":"); i >= 0 {
		t = t[i+1:]
	}
	if t == "" {
		return c, fmt.Errorf("parse option symbol %q: empty body", symbol)
	}

	for i := 1; i+7 < len(t); i++ {
		if !isDigits(t[i : i+6]) {
			continue
		}
		expiry, err := time.Parse("20060102", "20"+t[i:i+6])
		if err != nil {
			return c, fmt.Errorf("parse option symbol %q: bad expiry: %w", symbol, err)
		}
		optType, ok := ParseOptionType(string(t[i+6]))
		if !ok {
			return c, fmt.Errorf("parse option symbol %q: bad option type %q", symbol, t[i+6])
		}
		milli, err := strconv.Atoi(t[i+7:])
		if err != nil {
			return c, fmt.Errorf("parse option symbol %q: bad strike: %w", symbol, err)
		}

		c.Underlying = strings.ToUpper(t[:i])
		c.Expiry = expiry
		c.Type = optType
		c.Strike = float64(milli) / 1000.0
		return c, nil
	}

	return c, fmt.Errorf("parse option symbol %q: no expiry digits found", symbol)
}

// FormatOptionSymbol renders components back into the vendor form, with the
// "O:" prefix: <root><YYMMDD><C|P><strike*1000 zero padded to 8>.
func FormatOptionSymbol(c OptionSymbolComponents) string {
	typ := "C"
	if c.Type == Put {
		typ = "P"
	}
	strike := int(math.Round(c.Strike * 1000))
	return fmt.Sprintf("O:%s%s%s%08d",
		strings.ToUpper(c.Underlying), c.Expiry.Format("060102"), typ, strike)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
