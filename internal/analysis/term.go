package analysis

import (
	"sort"
	"time"

	"github.com/contactkeval/iv-crush/internal/data"
	"github.com/contactkeval/iv-crush/internal/pricing"
)

// target maturity for the interpolated term vol
const iv30Years = 30.0 / 365.0

type ivPoint struct {
	t  float64
	iv float64
}

// computeIV30 builds a crude term structure from every solvable contract in
// the pre-event chain and linearly interpolates implied volatility to a
// 30-day maturity. Every row is solved against the chain's shared spot; a row
// priced against its own strike would misread OTM and ITM contracts. nil when
// disabled, when fewer than two maturities solve, or when no pair of
// maturities brackets the 30-day point.
func (a *Analyzer) computeIV30(rows []data.OptionQuote, asOf time.Time, spot float64) *float64 {
	if !a.cfg.ComputeIV30 {
		return nil
	}

	solver := pricing.SolverOptions{IntrinsicTolerance: a.cfg.IntrinsicTolerance}

	points := make([]ivPoint, 0, len(rows))
	for _, row := range rows {
		t := yearFraction(asOf, row.Expiry)
		if t <= 0 {
			continue
		}
		iv, err := pricing.ImpliedVolatility(row.Close, row.Type, spot, row.Strike, t, a.cfg.RiskFreeRate, solver)
		if err != nil {
			continue
		}
		points = append(points, ivPoint{t: t, iv: iv})
	}
	if len(points) < 2 {
		return nil
	}

	sort.Slice(points, func(i, j int) bool { return points[i].t < points[j].t })

	iv, ok := interpolate(points, iv30Years)
	if !ok {
		return nil
	}
	return &iv
}

// interpolate finds the last point at or below target and the first at or
// above it, and interpolates linearly between them. Both sides must exist.
func interpolate(sorted []ivPoint, target float64) (float64, bool) {
	var before, after *ivPoint
	for i := range sorted {
		p := &sorted[i]
		if p.t <= target {
			before = p
		}
		if p.t >= target && after == nil {
			after = p
		}
	}
	if before == nil || after == nil {
		return 0, false
	}
	if before.t == after.t {
		return before.iv, true
	}
	frac := (target - before.t) / (after.t - before.t)
	return before.iv + (after.iv-before.iv)*frac, true
}
