// Package pricing implements Black-Scholes option valuation and its numerical
// inverse, the implied volatility solver.
//
// The solver is a bracketed Brent search on the fixed volatility interval
// (VolLo, VolHi). Results at or outside the bracket are reported as failures
// rather than trusted volatilities: a saturated bracket means the observed
// price is inconsistent with the model, not that the market is at 500% vol.
package pricing

import (
	"errors"
	"math"

	"github.com/contactkeval/iv-crush/internal/data"
)

// Solver bracket. A solved volatility must lie strictly inside (VolLo, VolHi).
const (
	VolLo = 1e-4
	VolHi = 5.0
)

// Typed errors allow callers and tests to detect failure categories
// without string matching.
var (
	ErrNonPositivePrice = errors.New("non-positive option price")
	ErrBelowIntrinsic   = errors.New("price below intrinsic value")
	ErrNoSolution       = errors.New("implied volatility has no solution in bracket")
)

const sqrt2Pi = 2.5066282746310002

// Price calculates the Black-Scholes value of a European option.
//
// Degenerate inputs (T <= 0 or sigma <= 0) price to 0: there is no optionality
// left to value, and the zero keeps the solver's objective well defined at the
// bracket boundary. Callers wanting a settlement value should use intrinsic.
func Price(optType data.OptionType, S, K, T, r, sigma float64) float64 {
	if T <= 0 || sigma <= 0 {
		return 0
	}

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	d2 := d1 - sigma*math.Sqrt(T)

	if optType == data.Call {
		return S*normCDF(d1) - K*math.Exp(-r*T)*normCDF(d2)
	}
	return K*math.Exp(-r*T)*normCDF(-d2) - S*normCDF(-d1)
}

// Vega is the sensitivity of the option price to volatility. Returns 0 for
// degenerate T or sigma.
func Vega(S, K, T, r, sigma float64) float64 {
	if T <= 0 || sigma <= 0 {
		return 0
	}
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	return S * normPDF(d1) * math.Sqrt(T)
}

// Intrinsic is the exercise value of the option at spot S.
func Intrinsic(optType data.OptionType, S, K float64) float64 {
	if optType == data.Call {
		return math.Max(S-K, 0)
	}
	return math.Max(K-S, 0)
}

// SolverOptions carries the named policy knobs of the IV solver.
type SolverOptions struct {
	// IntrinsicTolerance scales the intrinsic floor check: a price below
	// IntrinsicTolerance*intrinsic fails the solve. 1.0 enforces the exact
	// no-arbitrage floor; values like 0.90 absorb end-of-day quote noise.
	IntrinsicTolerance float64
	// Tolerance is the absolute convergence tolerance on sigma.
	Tolerance float64
}

// DefaultSolverOptions applies the exact intrinsic floor and a 1e-8 sigma
// tolerance.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{IntrinsicTolerance: 1.0, Tolerance: 1e-8}
}

// ImpliedVolatility inverts Price for sigma given an observed option price.
//
// Failure policy:
//   - price <= 0: ErrNonPositivePrice, no solve attempted
//   - price < IntrinsicTolerance * intrinsic: ErrBelowIntrinsic
//   - T <= 0, no sign change in (VolLo, VolHi), or a root pinned to the
//     bracket boundary: ErrNoSolution
//
// Failures are ordinary errors; the batch caller records the leg as unsolved
// and moves on.
func ImpliedVolatility(price float64, optType data.OptionType, S, K, T, r float64, opts SolverOptions) (float64, error) {
	if price <= 0 {
		return 0, ErrNonPositivePrice
	}
	if opts.IntrinsicTolerance <= 0 {
		opts.IntrinsicTolerance = 1.0
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-8
	}
	if price < opts.IntrinsicTolerance*Intrinsic(optType, S, K) {
		return 0, ErrBelowIntrinsic
	}
	if T <= 0 {
		return 0, ErrNoSolution
	}

	objective := func(sigma float64) float64 {
		return Price(optType, S, K, T, r, sigma) - price
	}

	sigma, err := brent(objective, VolLo, VolHi, opts.Tolerance)
	if err != nil {
		return 0, err
	}

	// a root sitting on the bracket edge is a saturated solve, not a vol
	if sigma <= VolLo*(1+1e-6) || sigma >= VolHi*(1-1e-6) {
		return 0, ErrNoSolution
	}
	return sigma, nil
}

// brent finds a root of f in [a, b] using Brent's method with bisection
// fallback. Requires a sign change over the interval.
func brent(f func(float64) float64, a, b, tol float64) (float64, error) {
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if fa*fb > 0 {
		return 0, ErrNoSolution
	}

	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}

	c, fc := a, fa
	d := b - a
	mflag := true

	const maxIter = 200
	for i := 0; i < maxIter; i++ {
		if fb == 0 || math.Abs(b-a) < tol {
			return b, nil
		}

		var s float64
		if fa != fc && fb != fc {
			// inverse quadratic interpolation
			s = a*fb*fc/((fa-fb)*(fa-fc)) +
				b*fa*fc/((fb-fa)*(fb-fc)) +
				c*fa*fb/((fc-fa)*(fc-fb))
		} else {
			// secant
			s = b - fb*(b-a)/(fb-fa)
		}

		lo, hi := (3*a+b)/4, b
		if lo > hi {
			lo, hi = hi, lo
		}
		bisect := s < lo || s > hi ||
			(mflag && math.Abs(s-b) >= math.Abs(b-c)/2) ||
			(!mflag && math.Abs(s-b) >= math.Abs(c-d)/2) ||
			(mflag && math.Abs(b-c) < tol) ||
			(!mflag && math.Abs(c-d) < tol)
		if bisect {
			s = (a + b) / 2
			mflag = true
		} else {
			mflag = false
		}

		fs := f(s)
		d = c
		c, fc = b, fb

		if fa*fs < 0 {
			b, fb = s, fs
		} else {
			a, fa = s, fs
		}

		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}

	return b, nil
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / sqrt2Pi
}

func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}
