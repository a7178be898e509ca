package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/contactkeval/iv-crush/internal/data"
)

func TestPriceCallBasic(t *testing.T) {
	call := Price(data.Call, 100, 100, 30.0/365.0, 0.05, 0.20)
	if call <= 0 {
		t.Fatalf("expected ATM call price > 0, got %f", call)
	}
}

func TestPricePutCallParity(t *testing.T) {
	S, K, T, r, sigma := 100.0, 100.0, 45.0/365.0, 0.03, 0.25

	call := Price(data.Call, S, K, T, r, sigma)
	put := Price(data.Put, S, K, T, r, sigma)

	lhs := call - put
	rhs := S - K*math.Exp(-r*T)
	if math.Abs(lhs-rhs) > 1e-9 {
		t.Fatalf("put-call parity violated: LHS=%f RHS=%f", lhs, rhs)
	}
}

func TestPriceDegenerateInputs(t *testing.T) {
	if p := Price(data.Call, 100, 100, 0, 0.05, 0.2); p != 0 {
		t.Fatalf("expected 0 for T=0, got %f", p)
	}
	if p := Price(data.Put, 100, 100, 0.25, 0.05, 0); p != 0 {
		t.Fatalf("expected 0 for sigma=0, got %f", p)
	}
}

func TestPriceMonotonicInVolatility(t *testing.T) {
	prev := 0.0
	for _, sigma := range []float64{0.05, 0.10, 0.25, 0.50, 1.0, 2.0} {
		p := Price(data.Call, 100, 100, 0.25, 0.05, sigma)
		if p <= prev {
			t.Fatalf("price not increasing in sigma: %f at sigma=%f, prev %f", p, sigma, prev)
		}
		prev = p
	}
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		optType data.OptionType
		S, K, T float64
		sigma   float64
	}{
		{"atm call low vol", data.Call, 190, 190, 93.0 / 365.0, 0.05},
		{"atm call typical", data.Call, 190, 190, 93.0 / 365.0, 0.30},
		{"atm put typical", data.Put, 190, 190, 93.0 / 365.0, 0.30},
		{"otm call high vol", data.Call, 100, 120, 45.0 / 365.0, 0.80},
		{"itm put", data.Put, 100, 110, 60.0 / 365.0, 0.40},
		{"near bracket top", data.Call, 50, 50, 30.0 / 365.0, 3.0},
	}

	const r = 0.05
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			price := Price(tc.optType, tc.S, tc.K, tc.T, r, tc.sigma)
			got, err := ImpliedVolatility(price, tc.optType, tc.S, tc.K, tc.T, r, DefaultSolverOptions())
			if err != nil {
				t.Fatalf("solve failed: %v", err)
			}
			if math.Abs(got-tc.sigma) > 1e-4 {
				t.Fatalf("round trip drifted: want sigma=%f, got %f", tc.sigma, got)
			}
		})
	}
}

func TestImpliedVolatilityNonPositivePrice(t *testing.T) {
	for _, price := range []float64{0, -1.5} {
		_, err := ImpliedVolatility(price, data.Call, 100, 100, 0.25, 0.05, DefaultSolverOptions())
		if !errors.Is(err, ErrNonPositivePrice) {
			t.Fatalf("price %f: want ErrNonPositivePrice, got %v", price, err)
		}
	}
}

func TestImpliedVolatilityBelowIntrinsic(t *testing.T) {
	// deep ITM call, intrinsic 10, observed price 5
	_, err := ImpliedVolatility(5, data.Call, 100, 90, 0.25, 0.05, DefaultSolverOptions())
	if !errors.Is(err, ErrBelowIntrinsic) {
		t.Fatalf("want ErrBelowIntrinsic, got %v", err)
	}
}

func TestImpliedVolatilityIntrinsicToleranceRelaxesFloor(t *testing.T) {
	// 9.5 is under the exact intrinsic floor of 10 but over the 0.90 floor.
	// The relaxed solve may still fail for lack of a root, but it must not
	// fail the floor check.
	opts := SolverOptions{IntrinsicTolerance: 0.90}
	_, err := ImpliedVolatility(9.5, data.Call, 100, 90, 0.25, 0.05, opts)
	if errors.Is(err, ErrBelowIntrinsic) {
		t.Fatalf("0.90 tolerance should admit price 9.5 past the floor, got %v", err)
	}
}

func TestImpliedVolatilityNoSolution(t *testing.T) {
	cases := []struct {
		name    string
		price   float64
		S, K, T float64
	}{
		// above the maximum attainable value on the bracket
		{"price near spot", 99.9, 100, 100, 0.1},
		{"expired", 2.0, 100, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ImpliedVolatility(tc.price, data.Call, tc.S, tc.K, tc.T, 0.05, DefaultSolverOptions())
			if !errors.Is(err, ErrNoSolution) {
				t.Fatalf("want ErrNoSolution, got %v", err)
			}
		})
	}
}

func TestVegaPositiveNearTheMoney(t *testing.T) {
	v := Vega(100, 100, 0.25, 0.05, 0.2)
	if v <= 0 {
		t.Fatalf("expected positive vega, got %f", v)
	}
	if Vega(100, 100, 0, 0.05, 0.2) != 0 {
		t.Fatal("expected zero vega at T=0")
	}
}

func TestIntrinsic(t *testing.T) {
	if got := Intrinsic(data.Call, 105, 100); got != 5 {
		t.Fatalf("call intrinsic: want 5, got %f", got)
	}
	if got := Intrinsic(data.Put, 105, 100); got != 0 {
		t.Fatalf("put intrinsic: want 0, got %f", got)
	}
	if got := Intrinsic(data.Put, 95, 100); got != 5 {
		t.Fatalf("put intrinsic: want 5, got %f", got)
	}
}
