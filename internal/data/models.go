// Package data defines the market data model and the providers that supply it.
//
// Providers are layered: a primary provider may delegate to an optional
// secondary when it cannot serve a request itself (local flat files falling
// back to the vendor REST API).
package data

import (
	"strings"
	"time"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType normalizes vendor spellings ("C", "call", "CALL") to an
// OptionType. Unknown values return false.
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call":
		return Call, true
	case "p", "put":
		return Put, true
	}
	return "", false
}

// Bar is a single daily OHLC observation for an underlying.
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
	Vol   float64
}

// OptionQuote is one end-of-day option row from a snapshot. Identity is the
// contract symbol; the parsed fields are filled by ParseOptionSymbol when the
// row is loaded.
type OptionQuote struct {
	Symbol     string     // full vendor symbol, e.g. O:AAPL240426C00190000
	Underlying string     // parsed underlying, upper case
	Expiry     time.Time  // contract expiration date
	Type       OptionType // call or put
	Strike     float64
	Open       float64
	High       float64
	Low        float64
	Close      float64
}

// Snapshot is a dated set of option rows, optionally with underlying bars.
type Snapshot struct {
	Date time.Time
	Rows []OptionQuote
}

// RowsForUnderlying returns the rows whose parsed underlying matches symbol
// exactly, case-insensitively. Matching on the parsed field rather than a
// prefix of the raw contract code keeps AA from absorbing AAPL contracts.
func (s *Snapshot) RowsForUnderlying(symbol string) []OptionQuote {
	want := strings.ToUpper(strings.TrimSpace(symbol))
	var out []OptionQuote
	for _, r := range s.Rows {
		if strings.ToUpper(r.Underlying) == want {
			out = append(out, r)
		}
	}
	return out
}

// EarningsEvent is one announcement to analyze.
type EarningsEvent struct {
	Symbol       string
	EarningsDate time.Time
}

// OptionContract is a contract reference row from the vendor chain listing.
type OptionContract struct {
	Symbol     string     `json:"ticker"`
	Underlying string     `json:"underlying_ticker"`
	Expiry     time.Time  `json:"-"`
	ExpiryRaw  string     `json:"expiration_date"`
	Strike     float64    `json:"strike_price"`
	Type       OptionType `json:"contract_type"`
}
