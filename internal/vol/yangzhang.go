// Package vol estimates realized volatility from daily OHLC bars.
package vol

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/contactkeval/iv-crush/internal/data"
)

// TradingDaysPerYear converts a daily standard deviation to an annual one.
const TradingDaysPerYear = 252

// DefaultMinBars is the number of trailing bars below which RV30 is reported
// as unavailable rather than as a noisy estimate.
const DefaultMinBars = 10

// ErrInsufficientBars means too few bars were supplied for a reliable estimate.
var ErrInsufficientBars = errors.New("insufficient bars for volatility estimate")

// EstimatorOptions carries the named policy knobs of the estimator.
type EstimatorOptions struct {
	// Annualize multiplies the daily standard deviation by sqrt(252).
	// The flag is explicit because both conventions are in active use;
	// callers must state which figure they are reporting.
	Annualize bool
	// MinBars is the reliability floor; fewer bars fail the estimate.
	// Zero applies DefaultMinBars.
	MinBars int
}

// YangZhang computes the Yang-Zhang volatility estimate over an ordered
// sequence of daily bars. It combines overnight, open-to-close and
// close-to-close variances with an intraday range correction, which removes
// most of the bias of a plain close-to-close estimator.
//
// The linear combination can come out slightly negative on pathological small
// samples; the variance is clamped to zero before the square root. That clamp
// is an estimator artifact, not a data error, and it is why the result is
// never negative.
func YangZhang(bars []data.Bar, opts EstimatorOptions) (float64, error) {
	minBars := opts.MinBars
	if minBars <= 0 {
		minBars = DefaultMinBars
	}
	if minBars < 2 {
		minBars = 2
	}
	n := len(bars)
	if n < minBars {
		return 0, ErrInsufficientBars
	}

	overnight := make([]float64, 0, n-1)    // ln(O_t / C_{t-1})
	closeToClose := make([]float64, 0, n-1) // ln(C_t / C_{t-1})
	openToClose := make([]float64, 0, n)    // ln(C_t / O_t)
	rangeTerm := make([]float64, 0, n)      // ln(H_t/O_t)*ln(L_t/O_t), <= 0 in expectation

	for t, b := range bars {
		openToClose = append(openToClose, math.Log(b.Close/b.Open))
		rangeTerm = append(rangeTerm, math.Log(b.High/b.Open)*math.Log(b.Low/b.Open))
		if t > 0 {
			prev := bars[t-1]
			overnight = append(overnight, math.Log(b.Open/prev.Close))
			closeToClose = append(closeToClose, math.Log(b.Close/prev.Close))
		}
	}

	varOvernight, err := stats.SampleVariance(overnight)
	if err != nil {
		return 0, ErrInsufficientBars
	}
	varOpenToClose, err := stats.SampleVariance(openToClose)
	if err != nil {
		return 0, ErrInsufficientBars
	}
	varCloseToClose, err := stats.SampleVariance(closeToClose)
	if err != nil {
		return 0, ErrInsufficientBars
	}
	meanRange, err := stats.Mean(rangeTerm)
	if err != nil {
		return 0, ErrInsufficientBars
	}

	k := 0.34 / (1.34 + float64(n+1)/float64(n-1))

	variance := varOvernight + k*varOpenToClose + (1-k)*varCloseToClose - meanRange
	if variance < 0 {
		variance = 0
	}

	sigma := math.Sqrt(variance)
	if opts.Annualize {
		sigma *= math.Sqrt(TradingDaysPerYear)
	}
	return sigma, nil
}
