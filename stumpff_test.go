package orrery

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestStumpffZeroArgument(t *testing.T) {
	if !floats.EqualWithinAbs(stumpffC(0, 0), 1, 1e-15) {
		t.Fatalf("c0(0) = %g, want 1", stumpffC(0, 0))
	}
	if !floats.EqualWithinAbs(stumpffC(2, 0), 0.5, 1e-15) {
		t.Fatalf("c2(0) = %g, want 0.5", stumpffC(2, 0))
	}
	if !floats.EqualWithinAbs(stumpffC(3, 0), 1.0/6, 1e-15) {
		t.Fatalf("c3(0) = %g, want 1/6", stumpffC(3, 0))
	}
}

func TestStumpffSeriesMatchesClosedFormNearThreshold(t *testing.T) {
	for _, x := range []float64{0.5, 0.9, 0.99, 1.01, 1.5, 3, 10} {
		for k := 0; k <= 3; k++ {
			series := stumpffSeries(k, x)
			// force closed-form evaluation regardless of threshold by
			// comparing at x>threshold against the series at the same x
			if math.Abs(x) > stumpffThreshold {
				c := stumpffC(k, x)
				if !floats.EqualWithinAbs(c, series, 1e-6) {
					t.Fatalf("k=%d x=%g: closed %g vs series %g", k, x, c, series)
				}
			}
		}
	}
}

func TestStumpffHyperbolicBranch(t *testing.T) {
	for _, x := range []float64{-1.5, -5, -20} {
		for k := 0; k <= 3; k++ {
			c := stumpffC(k, x)
			if math.IsNaN(c) || math.IsInf(c, 0) {
				t.Fatalf("c%d(%g) = %v, want finite", k, x, c)
			}
		}
	}
}

func TestGAtZeroS(t *testing.T) {
	for _, beta := range []float64{-2, -0.5, 0, 0.5, 2} {
		if !floats.EqualWithinAbs(G0(beta, 0), 1, 1e-12) {
			t.Fatalf("G0(%g,0) = %g, want 1", beta, G0(beta, 0))
		}
		if !floats.EqualWithinAbs(G1(beta, 0), 0, 1e-12) {
			t.Fatalf("G1(%g,0) = %g, want 0", beta, G1(beta, 0))
		}
		if !floats.EqualWithinAbs(G2(beta, 0), 0, 1e-12) {
			t.Fatalf("G2(%g,0) = %g, want 0", beta, G2(beta, 0))
		}
		if !floats.EqualWithinAbs(G3(beta, 0), 0, 1e-12) {
			t.Fatalf("G3(%g,0) = %g, want 0", beta, G3(beta, 0))
		}
	}
}

func TestGDerivativeMatchesNextLowerOrder(t *testing.T) {
	const h = 1e-5
	for _, beta := range []float64{-1.3, -0.2, 0, 0.4, 1.7} {
		for _, s := range []float64{-2, -0.3, 0.1, 1, 3} {
			fd := (gK(2, beta, s+h) - gK(2, beta, s-h)) / (2 * h)
			if !floats.EqualWithinAbs(fd, G1(beta, s), 1e-4) {
				t.Fatalf("beta=%g s=%g: dG2/ds=%g, want G1=%g", beta, s, fd, G1(beta, s))
			}
			fd1 := (gK(1, beta, s+h) - gK(1, beta, s-h)) / (2 * h)
			if !floats.EqualWithinAbs(fd1, G0(beta, s), 1e-4) {
				t.Fatalf("beta=%g s=%g: dG1/ds=%g, want G0=%g", beta, s, fd1, G0(beta, s))
			}
		}
	}
}

func TestGRecurrenceIdentity(t *testing.T) {
	for _, beta := range []float64{-1.1, -0.1, 0, 0.3, 2.2} {
		for _, s := range []float64{-3, -1, 0.5, 2} {
			for k := 0; k <= 1; k++ {
				direct := gK(k, beta, s)
				viaID := gKViaIdentity(k, beta, s)
				if !floats.EqualWithinAbs(direct, viaID, 1e-9) {
					t.Fatalf("k=%d beta=%g s=%g: direct=%g viaIdentity=%g", k, beta, s, direct, viaID)
				}
			}
		}
	}
}
