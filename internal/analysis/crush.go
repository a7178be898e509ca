// Package analysis orchestrates the earnings IV-crush pipeline.
//
// Each earnings event moves through a sequence of gates: snapshots resolved,
// symbol rows present, ATM contracts selected, contracts matched post-event,
// legs priced. Failing any gate skips the event with a logged reason; one bad
// event never fails the batch.
package analysis

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/contactkeval/iv-crush/internal/chain"
	"github.com/contactkeval/iv-crush/internal/config"
	"github.com/contactkeval/iv-crush/internal/data"
	"github.com/contactkeval/iv-crush/internal/pricing"
	"github.com/contactkeval/iv-crush/internal/schedule"
	"github.com/contactkeval/iv-crush/internal/vol"
)

// Gate names the pipeline stage at which an event was abandoned. Every skip
// is attributable to exactly one gate for later auditing.
type Gate string

const (
	GateSnapshots     Gate = "snapshots_unresolved"
	GateSymbolRows    Gate = "no_symbol_rows"
	GateExpiryWindow  Gate = "no_rows_in_expiry_window"
	GateSelection     Gate = "atm_selection_failed"
	GateContractMatch Gate = "contract_missing_post_event"
)

// CrushRecord is one emitted result row per option type per earnings event.
// Pointer fields are nil when the underlying computation legitimately failed;
// a nil is exported as an empty CSV cell, never as a zero.
type CrushRecord struct {
	Symbol       string          `csv:"symbol" json:"symbol"`
	EarnDate     string          `csv:"earn_date" json:"earn_date"`
	AsOfPre      string          `csv:"as_of_pre" json:"as_of_pre"`
	AsOfPost     string          `csv:"as_of_post" json:"as_of_post"`
	PreDriftDays int             `csv:"pre_drift_days" json:"pre_drift_days"`
	PostDrift    int             `csv:"post_drift_days" json:"post_drift_days"`
	Ticker       string          `csv:"ticker" json:"ticker"`
	Type         data.OptionType `csv:"type" json:"type"`
	Strike       float64         `csv:"strike" json:"strike"`
	Expiry       string          `csv:"expiry" json:"expiry"`
	Spot         float64         `csv:"spot" json:"spot"`
	PricePre     float64         `csv:"price_pre" json:"price_pre"`
	PricePost    float64         `csv:"price_post" json:"price_post"`
	PriceChange  float64         `csv:"price_change" json:"price_change"`
	IVPre        *float64        `csv:"iv_pre" json:"iv_pre"`
	IVPost       *float64        `csv:"iv_post" json:"iv_post"`
	IVCrush      *float64        `csv:"iv_crush" json:"iv_crush"`
	IV30         *float64        `csv:"iv30" json:"iv30"`
	RV30         *float64        `csv:"rv30" json:"rv30"`
}

// RunStats counts emitted records and per-gate skips across a run.
type RunStats struct {
	Events  int
	Emitted int
	Skips   map[Gate]int
}

func (s *RunStats) skip(g Gate) {
	if s.Skips == nil {
		s.Skips = make(map[Gate]int)
	}
	s.Skips[g]++
}

func (s *RunStats) merge(other RunStats) {
	s.Events += other.Events
	s.Emitted += other.Emitted
	for g, n := range other.Skips {
		if s.Skips == nil {
			s.Skips = make(map[Gate]int)
		}
		s.Skips[g] += n
	}
}

// Analyzer runs the crush pipeline against injected providers. It holds no
// mutable state of its own; the analytical core is pure and one symbol per
// worker is safe.
type Analyzer struct {
	cfg       config.Analysis
	snapshots data.SnapshotSource
	bars      data.BarProvider // optional; nil disables RV30
	earnings  data.EarningsProvider
}

func New(cfg config.Analysis, snapshots data.SnapshotSource, bars data.BarProvider, earnings data.EarningsProvider) *Analyzer {
	return &Analyzer{cfg: cfg, snapshots: snapshots, bars: bars, earnings: earnings}
}

// Run analyzes the given symbols on a bounded worker pool and returns every
// emitted record. Cancellation stops scheduling new symbols; in-flight
// symbols finish their current event.
func (a *Analyzer) Run(ctx context.Context, symbols []string) ([]CrushRecord, RunStats, error) {
	workers := a.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	type symbolResult struct {
		records []CrushRecord
		stats   RunStats
	}

	jobs := make(chan string)
	results := make(chan symbolResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				recs, stats := a.AnalyzeSymbol(ctx, sym)
				results <- symbolResult{records: recs, stats: stats}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sym := range symbols {
			select {
			case jobs <- sym:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []CrushRecord
	var stats RunStats
	for res := range results {
		all = append(all, res.records...)
		stats.merge(res.stats)
	}
	return all, stats, ctx.Err()
}

// AnalyzeSymbol runs every earnings event for one symbol. Provider errors on
// the earnings feed abandon the symbol; everything downstream is per-event.
func (a *Analyzer) AnalyzeSymbol(ctx context.Context, symbol string) ([]CrushRecord, RunStats) {
	var stats RunStats

	events, err := a.earnings.GetEarningsEvents(symbol)
	if err != nil {
		log.WithField("symbol", symbol).WithError(err).Error("earnings feed unavailable")
		return nil, stats
	}

	log.WithFields(log.Fields{"symbol": symbol, "events": len(events)}).Info("analyzing symbol")

	var out []CrushRecord
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		stats.Events++
		recs, gate := a.analyzeEvent(ctx, ev)
		if gate != "" {
			stats.skip(gate)
			log.WithFields(log.Fields{
				"symbol": ev.Symbol,
				"earn":   ev.EarningsDate.Format("2006-01-02"),
				"gate":   gate,
			}).Info("event skipped")
			continue
		}
		stats.Emitted += len(recs)
		out = append(out, recs...)
	}
	return out, stats
}

// analyzeEvent walks one event through the gates. A non-empty gate return
// means the event was abandoned there.
func (a *Analyzer) analyzeEvent(ctx context.Context, ev data.EarningsEvent) ([]CrushRecord, Gate) {
	pre, preOK := schedule.Resolve(ev.EarningsDate, schedule.Before, a.cfg.ToleranceDays, a.snapshots.HasSnapshot)
	post, postOK := schedule.Resolve(ev.EarningsDate, schedule.After, a.cfg.ToleranceDays, a.snapshots.HasSnapshot)
	if !preOK || !postOK {
		return nil, GateSnapshots
	}

	preRows, ok, err := a.snapshots.LoadRows(ctx, ev.Symbol, pre.Date)
	if err != nil || !ok {
		return nil, GateSnapshots
	}
	postRows, ok, err := a.snapshots.LoadRows(ctx, ev.Symbol, post.Date)
	if err != nil || !ok {
		return nil, GateSnapshots
	}
	if len(preRows) == 0 || len(postRows) == 0 {
		return nil, GateSymbolRows
	}

	if a.cfg.TargetDTE > 0 {
		preRows = chain.FilterExpiryWindow(preRows, pre.Date, a.cfg.TargetDTE, a.cfg.WindowDTE)
		if len(preRows) == 0 {
			return nil, GateExpiryWindow
		}
	}

	sel, err := chain.PickATM(preRows, chain.SelectorOptions{
		BandLo:           a.cfg.BandLo,
		BandHi:           a.cfg.BandHi,
		RequireBothSides: true,
	})
	if err != nil {
		return nil, GateSelection
	}

	postBySymbol := make(map[string]data.OptionQuote, len(postRows))
	for _, r := range postRows {
		postBySymbol[strings.ToUpper(r.Symbol)] = r
	}

	// the crush needs the identical contract on both sides
	legs := make([]legPair, 0, 2)
	for _, pick := range []chain.OptionQuotePick{sel.Call, sel.Put} {
		postRow, ok := postBySymbol[strings.ToUpper(pick.Row.Symbol)]
		if !ok {
			return nil, GateContractMatch
		}
		legs = append(legs, legPair{pre: pick.Row, post: postRow})
	}

	iv30 := a.computeIV30(preRows, pre.Date, sel.Call.ReferenceStrike)
	rv30 := a.computeRV30(ctx, ev.Symbol, pre.Date)

	records := make([]CrushRecord, 0, len(legs))
	for _, leg := range legs {
		records = append(records, a.priceLeg(ev, leg, pre, post, iv30, rv30))
	}
	return records, ""
}

type legPair struct {
	pre  data.OptionQuote
	post data.OptionQuote
}

// priceLeg solves both sides of one contract independently. Solver failures
// null the leg's IV, and the crush, without touching the rest of the record.
func (a *Analyzer) priceLeg(ev data.EarningsEvent, leg legPair, pre, post schedule.Resolution, iv30, rv30 *float64) CrushRecord {
	row := leg.pre

	// spot is approximated by the ATM strike: end-of-day option flat files
	// carry no underlying mark, and at the money S ~= K by construction
	spot := row.Strike

	solver := pricing.SolverOptions{IntrinsicTolerance: a.cfg.IntrinsicTolerance}

	ivPre := a.solveLeg(leg.pre.Close, row, spot, pre.Date, solver)
	ivPost := a.solveLeg(leg.post.Close, row, spot, post.Date, solver)

	var crush *float64
	if ivPre != nil && ivPost != nil {
		d := *ivPre - *ivPost
		crush = &d
	}

	return CrushRecord{
		Symbol:       ev.Symbol,
		EarnDate:     ev.EarningsDate.Format("2006-01-02"),
		AsOfPre:      pre.Date.Format("2006-01-02"),
		AsOfPost:     post.Date.Format("2006-01-02"),
		PreDriftDays: pre.DriftDays,
		PostDrift:    post.DriftDays,
		Ticker:       row.Symbol,
		Type:         row.Type,
		Strike:       row.Strike,
		Expiry:       row.Expiry.Format("2006-01-02"),
		Spot:         spot,
		PricePre:     leg.pre.Close,
		PricePost:    leg.post.Close,
		PriceChange:  leg.post.Close - leg.pre.Close,
		IVPre:        ivPre,
		IVPost:       ivPost,
		IVCrush:      crush,
		IV30:         iv30,
		RV30:         rv30,
	}
}

// solveLeg inverts one observed price. A leg whose expiry is at or before the
// snapshot date has no time value to invert and yields nil.
func (a *Analyzer) solveLeg(price float64, row data.OptionQuote, spot float64, asOf time.Time, opts pricing.SolverOptions) *float64 {
	t := yearFraction(asOf, row.Expiry)
	if t <= 0 {
		return nil
	}
	iv, err := pricing.ImpliedVolatility(price, row.Type, spot, row.Strike, t, a.cfg.RiskFreeRate, opts)
	if err != nil {
		log.WithFields(log.Fields{
			"ticker": row.Symbol,
			"as_of":  asOf.Format("2006-01-02"),
		}).WithError(err).Debug("iv solve failed")
		return nil
	}
	return &iv
}

// computeRV30 estimates realized volatility over the trailing window ending
// the day before the pre-event snapshot. nil when bars are unavailable or too
// few for the configured floor.
func (a *Analyzer) computeRV30(ctx context.Context, symbol string, preDate time.Time) *float64 {
	if a.bars == nil {
		return nil
	}
	from := preDate.AddDate(0, 0, -a.cfg.RVLookbackDays)
	to := preDate.AddDate(0, 0, -1)

	bars, err := a.bars.GetDailyBars(ctx, symbol, from, to)
	if err != nil {
		log.WithField("symbol", symbol).WithError(err).Debug("rv30 bars unavailable")
		return nil
	}

	annualize := a.cfg.AnnualizeRV == nil || *a.cfg.AnnualizeRV
	rv, err := vol.YangZhang(bars, vol.EstimatorOptions{
		Annualize: annualize,
		MinBars:   a.cfg.MinRVBars,
	})
	if err != nil {
		return nil
	}
	return &rv
}

// yearFraction is calendar days divided by 365, matching the day-count used
// throughout the pipeline.
func yearFraction(from, to time.Time) float64 {
	days := int(to.Sub(from).Hours() / 24)
	return float64(days) / 365.0
}
