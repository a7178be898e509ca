package data

import (
	"context"
	"time"
)

// SnapshotSource supplies the option rows of one underlying for an exact
// calendar date. Missing dates are absent (ok=false), never an error:
// holidays and vendor gaps are expected.
type SnapshotSource interface {
	// HasSnapshot is the cheap availability probe used by date resolution.
	HasSnapshot(date time.Time) bool
	// LoadRows returns the underlying's option rows for the date, already
	// filtered by exact post-parse symbol match.
	LoadRows(ctx context.Context, symbol string, date time.Time) ([]OptionQuote, bool, error)
}

// BarProvider supplies daily OHLC bars for an underlying.
type BarProvider interface {
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// EarningsProvider supplies the ordered earnings events for a symbol.
type EarningsProvider interface {
	GetEarningsEvents(symbol string) ([]EarningsEvent, error)
}

// ContractProvider lists the option contracts that existed for an underlying
// as of a date, restricted to an expiration window.
type ContractProvider interface {
	ListContracts(ctx context.Context, underlying string, asOf, expiryFrom, expiryTo time.Time) ([]OptionContract, error)
}

// QuoteProvider fetches the end-of-day close for a single option contract.
type QuoteProvider interface {
	GetOptionClose(ctx context.Context, contractSymbol string, date time.Time) (float64, error)
}
