package orrery

import (
	"math"

	"github.com/gonum/floats"
)

// stumpffThreshold is the |x| boundary below which the Taylor series is
// evaluated directly and above which the closed trig/hyperbolic forms
// (plus the downward recurrence) are used instead, chosen so the
// series never has to sum more than a handful of terms to converge to
// machine precision.
const stumpffThreshold = 1.0

// stumpffMaxSeriesTerms caps the Taylor-series summation; at
// |x|<=stumpffThreshold the series converges in well under this many
// terms, so hitting the cap indicates a bug rather than slow decay.
const stumpffMaxSeriesTerms = 100

// stumpffC evaluates c_k(x) = sum_i (-x)^i / (k+2i)! for k in {0,1,2,3}.
//
// Above the threshold, c2 and c3 are evaluated via the closed
// trigonometric (x>0) or hyperbolic (x<0) forms, and c0, c1 are
// recovered from them via the recurrence c_k(x) = 1/k! - x*c_{k+2}(x),
// which never divides by x and so stays well-conditioned as x -> 0
// from either side of the threshold.
func stumpffC(k int, x float64) float64 {
	if math.Abs(x) <= stumpffThreshold {
		return stumpffSeries(k, x)
	}
	c2, c3 := stumpffClosedForm(x)
	switch k {
	case 0:
		return 1 - x*c2
	case 1:
		return 1 - x*c3
	case 2:
		return c2
	case 3:
		return c3
	default:
		panic("stumpffC: k must be in {0,1,2,3}")
	}
}

// stumpffSeries sums the Taylor series directly; used near x=0 where
// the closed forms would otherwise divide by ~0.
func stumpffSeries(k int, x float64) float64 {
	term := 1.0 / factorial(k)
	sum := term
	for i := 1; i < stumpffMaxSeriesTerms; i++ {
		term *= -x / float64((k+2*i)*(k+2*i-1))
		sum += term
		if floats.EqualWithinAbs(term, 0, 1e-16*math.Abs(sum)) {
			break
		}
	}
	return sum
}

// stumpffClosedForm returns c2(x), c3(x) via the trigonometric (x>0)
// or hyperbolic (x<0) closed forms. Only called for |x|>stumpffThreshold,
// so x==0 never reaches here.
func stumpffClosedForm(x float64) (c2, c3 float64) {
	if x > 0 {
		sq := math.Sqrt(x)
		sS, cS := math.Sincos(sq)
		c2 = (1 - cS) / x
		c3 = (sq - sS) / (sq * x)
		return
	}
	sq := math.Sqrt(-x)
	c2 = (1 - math.Cosh(sq)) / x
	c3 = (math.Sinh(sq) - sq) / (sq * -x)
	return
}

func factorial(k int) float64 {
	switch k {
	case 0:
		return 1
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 6
	default:
		f := 1.0
		for i := 2; i <= k; i++ {
			f *= float64(i)
		}
		return f
	}
}

// G0 returns G_0(beta,s) = c_0(beta*s^2).
func G0(beta, s float64) float64 { return gK(0, beta, s) }

// G1 returns G_1(beta,s) = s*c_1(beta*s^2).
func G1(beta, s float64) float64 { return gK(1, beta, s) }

// G2 returns G_2(beta,s) = s^2*c_2(beta*s^2).
func G2(beta, s float64) float64 { return gK(2, beta, s) }

// G3 returns G_3(beta,s) = s^3*c_3(beta*s^2).
func G3(beta, s float64) float64 { return gK(3, beta, s) }

// gK evaluates G_k(beta,s) = s^k * c_k(beta*s^2) for k in {0,1,2,3}.
func gK(k int, beta, s float64) float64 {
	return math.Pow(s, float64(k)) * stumpffC(k, beta*s*s)
}

// gKViaIdentity evaluates G_k via the recurrence G_k = s^k/k! - beta*G_{k+2},
// for use where the direct form is undesirable (and for testing the
// recurrence identity itself against the direct evaluation).
func gKViaIdentity(k int, beta, s float64) float64 {
	return math.Pow(s, float64(k))/factorial(k) - beta*gK(k+2, beta, s)
}
