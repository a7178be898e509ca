// Package chain selects contracts out of raw, unfiltered option chains.
//
// End-of-day chains mix many expiries and strikes with no pre-cleaning, and
// occasionally carry garbage rows (stale low-denomination contracts, strikes
// parsed from corrupt symbols). Selection therefore runs a two-pass median
// filter before picking: the median strike is a robust "near the money" proxy,
// and the band throws out strikes too far from it to be real.
package chain

import (
	"errors"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/contactkeval/iv-crush/internal/data"
)

var (
	// ErrEmptyChain means no candidate rows were supplied or survived filtering.
	ErrEmptyChain = errors.New("empty option chain")
	// ErrMissingSide means one option type had no candidate after filtering.
	ErrMissingSide = errors.New("no candidate for option type")
)

// ATMSelection is the chosen at-the-money pair from one snapshot.
type ATMSelection struct {
	Call OptionQuotePick
	Put  OptionQuotePick
}

// OptionQuotePick pairs the selected row with the reference strike it was
// measured against. Found is false when selection ran with the pairing
// requirement relaxed and this side had no candidate; Row is then zero.
type OptionQuotePick struct {
	Row             data.OptionQuote
	ReferenceStrike float64
	Found           bool
}

// SelectorOptions carries the named policy knobs of ATM selection.
type SelectorOptions struct {
	// BandLo/BandHi bound the accepted strike range as multiples of the
	// first-pass median. The ±50% default rejects clearly erroneous strikes;
	// the width is policy, not law.
	BandLo float64
	BandHi float64
	// RequireBothSides fails selection unless a call and a put can both be
	// formed. All crush call sites require the pair.
	RequireBothSides bool
}

// DefaultSelectorOptions is the ±50% band with the pairing requirement on.
func DefaultSelectorOptions() SelectorOptions {
	return SelectorOptions{BandLo: 0.5, BandHi: 1.5, RequireBothSides: true}
}

// PickATM selects the at-the-money call and put from a chain of rows.
//
// Pass 1 computes the median strike over all rows and discards rows outside
// [BandLo*median, BandHi*median]. Pass 2 recomputes the median over the
// survivors and, per option type independently, picks the row whose strike is
// closest to it in absolute distance. Ties keep the first-encountered row, so
// selection is stable in input order.
func PickATM(rows []data.OptionQuote, opts SelectorOptions) (*ATMSelection, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyChain
	}
	if opts.BandLo <= 0 || opts.BandHi <= opts.BandLo {
		opts.BandLo, opts.BandHi = 0.5, 1.5
	}

	median, err := strikeMedian(rows)
	if err != nil {
		return nil, ErrEmptyChain
	}

	filtered := make([]data.OptionQuote, 0, len(rows))
	for _, r := range rows {
		if r.Strike >= opts.BandLo*median && r.Strike <= opts.BandHi*median {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return nil, ErrEmptyChain
	}

	reference, err := strikeMedian(filtered)
	if err != nil {
		return nil, ErrEmptyChain
	}

	call, callOK := nearestByType(filtered, data.Call, reference)
	put, putOK := nearestByType(filtered, data.Put, reference)

	if opts.RequireBothSides && (!callOK || !putOK) {
		return nil, ErrMissingSide
	}
	if !callOK && !putOK {
		return nil, ErrMissingSide
	}

	return &ATMSelection{
		Call: OptionQuotePick{Row: call, ReferenceStrike: reference, Found: callOK},
		Put:  OptionQuotePick{Row: put, ReferenceStrike: reference, Found: putOK},
	}, nil
}

// FilterExpiryWindow keeps rows whose expiry lies targetDTE±windowDTE calendar
// days after asOf. The 45±10 default of the earnings pipeline concentrates
// selection on the maturity band where the event premium lives.
func FilterExpiryWindow(rows []data.OptionQuote, asOf time.Time, targetDTE, windowDTE int) []data.OptionQuote {
	lo := asOf.AddDate(0, 0, targetDTE-windowDTE)
	hi := asOf.AddDate(0, 0, targetDTE+windowDTE)
	out := make([]data.OptionQuote, 0, len(rows))
	for _, r := range rows {
		if !r.Expiry.Before(lo) && !r.Expiry.After(hi) {
			out = append(out, r)
		}
	}
	return out
}

func strikeMedian(rows []data.OptionQuote) (float64, error) {
	strikes := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Strike > 0 {
			strikes = append(strikes, r.Strike)
		}
	}
	return stats.Median(strikes)
}

func nearestByType(rows []data.OptionQuote, typ data.OptionType, reference float64) (data.OptionQuote, bool) {
	var best data.OptionQuote
	bestDist := math.Inf(1)
	found := false
	for _, r := range rows {
		if r.Type != typ {
			continue
		}
		// strict less keeps the first-encountered row on ties
		if d := math.Abs(r.Strike - reference); d < bestDist {
			best, bestDist = r, d
			found = true
		}
	}
	return best, found
}
