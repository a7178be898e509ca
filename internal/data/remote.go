package data

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// RemoteChainProvider assembles snapshots on demand from the vendor API when
// no pre-downloaded flat files are available: the contract listing as of the
// snapshot date (through the cache), then one end-of-day close per contract.
//
// Availability is modeled as "any weekday": the vendor has data for every
// trading day, and the date resolver's tolerance walk already absorbs
// holidays by moving to the next populated day whose closes resolve.
type RemoteChainProvider struct {
	contracts ContractProvider
	quotes    QuoteProvider
	targetDTE int
	windowDTE int
}

// Expiry window applied when the caller leaves it unset. A zero target would
// center the listing on the snapshot date itself, which is all expired or
// near-zero-DTE contracts.
const (
	defaultRemoteTargetDTE = 45
	defaultRemoteWindowDTE = 10
)

func NewRemoteChainProvider(contracts ContractProvider, quotes QuoteProvider, targetDTE, windowDTE int) *RemoteChainProvider {
	if targetDTE <= 0 {
		targetDTE = defaultRemoteTargetDTE
	}
	if windowDTE <= 0 {
		windowDTE = defaultRemoteWindowDTE
	}
	return &RemoteChainProvider{
		contracts: contracts,
		quotes:    quotes,
		targetDTE: targetDTE,
		windowDTE: windowDTE,
	}
}

// HasSnapshot reports weekdays as available.
func (p *RemoteChainProvider) HasSnapshot(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// LoadRows builds the chain for one underlying on one date. Contracts whose
// close is unavailable are dropped; a thin chain is still a chain, and
// selection downstream decides whether it is usable.
func (p *RemoteChainProvider) LoadRows(ctx context.Context, underlying string, date time.Time) ([]OptionQuote, bool, error) {
	expiryFrom := date.AddDate(0, 0, p.targetDTE-p.windowDTE)
	expiryTo := date.AddDate(0, 0, p.targetDTE+p.windowDTE)

	contracts, err := p.contracts.ListContracts(ctx, underlying, date, expiryFrom, expiryTo)
	if err != nil {
		return nil, false, err
	}
	if len(contracts) == 0 {
		return nil, false, nil
	}

	rows := make([]OptionQuote, 0, len(contracts))
	misses := 0
	for _, ct := range contracts {
		closePx, err := p.quotes.GetOptionClose(ctx, ct.Symbol, date)
		if err != nil || closePx <= 0 {
			misses++
			continue
		}
		c, err := ParseOptionSymbol(ct.Symbol)
		if err != nil {
			misses++
			continue
		}
		rows = append(rows, OptionQuote{
			Symbol:     ct.Symbol,
			Underlying: c.Underlying,
			Expiry:     c.Expiry,
			Type:       c.Type,
			Strike:     c.Strike,
			Close:      closePx,
		})
	}
	if misses > 0 {
		log.WithFields(log.Fields{
			"underlying": underlying,
			"date":       date.Format("2006-01-02"),
			"misses":     misses,
		}).Debug("contracts without usable closes")
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows, true, nil
}
