package orrery

import "math"

// Interval is a closed real interval [Lo, Hi], the basic unit of the
// bounding arithmetic used to bracket SOI events before handing a
// sub-interval to the Krawczyk-Moore test.
type Interval struct {
	Lo, Hi float64
}

// NewInterval builds an interval from two endpoints in either order.
func NewInterval(a, b float64) Interval {
	if a <= b {
		return Interval{Lo: a, Hi: b}
	}
	return Interval{Lo: b, Hi: a}
}

// Width returns Hi-Lo.
func (iv Interval) Width() float64 { return iv.Hi - iv.Lo }

// Mid returns the interval midpoint.
func (iv Interval) Mid() float64 { return 0.5 * (iv.Lo + iv.Hi) }

// Contains reports whether x lies in [Lo,Hi].
func (iv Interval) Contains(x float64) bool { return x >= iv.Lo && x <= iv.Hi }

// StrictlyInside reports whether iv lies entirely within the open
// interior of outer -- the Krawczyk-Moore certification condition.
func (iv Interval) StrictlyInside(outer Interval) bool {
	return iv.Lo > outer.Lo && iv.Hi < outer.Hi
}

// Union returns the smallest interval containing both a and b.
func (a Interval) Union(b Interval) Interval {
	return Interval{Lo: math.Min(a.Lo, b.Lo), Hi: math.Max(a.Hi, b.Hi)}
}

// Extend returns the smallest interval containing iv and the point x.
func (iv Interval) Extend(x float64) Interval {
	return Interval{Lo: math.Min(iv.Lo, x), Hi: math.Max(iv.Hi, x)}
}

// AddScalar returns iv shifted by c.
func (iv Interval) AddScalar(c float64) Interval {
	return Interval{Lo: iv.Lo + c, Hi: iv.Hi + c}
}

// Add returns the interval sum a+b.
func (a Interval) Add(b Interval) Interval {
	return Interval{Lo: a.Lo + b.Lo, Hi: a.Hi + b.Hi}
}

// Sub returns the interval difference a-b.
func (a Interval) Sub(b Interval) Interval {
	return Interval{Lo: a.Lo - b.Hi, Hi: a.Hi - b.Lo}
}

// Scale returns c*iv, accounting for a sign flip when c<0.
func (iv Interval) Scale(c float64) Interval {
	lo, hi := c*iv.Lo, c*iv.Hi
	if lo <= hi {
		return Interval{Lo: lo, Hi: hi}
	}
	return Interval{Lo: hi, Hi: lo}
}

// Intersects reports whether a and b overlap.
func (a Interval) Intersects(b Interval) bool {
	return a.Lo <= b.Hi && b.Lo <= a.Hi
}

// anyCriticalInInterval reports whether a point of the arithmetic
// progression phase+n*period (n any integer) falls within [lo,hi].
func anyCriticalInInterval(lo, hi, period, phase float64) bool {
	if period <= 0 {
		return false
	}
	nLo := math.Ceil((lo - phase) / period)
	nHi := math.Floor((hi - phase) / period)
	return nLo <= nHi
}

// G1Bounds bounds G_1(beta,s) over sIv.
//
// For beta<=0, G_1 is monotone (G_1'=G_0>=1 always), so the endpoints
// bound it. For beta>0, G_1=sin(sqrt(beta)s)/sqrt(beta) is periodic
// with extrema +-1/sqrt(beta) at sqrt(beta)s=pi/2+n*pi; when the
// interval straddles one of those points the endpoint-derived bound is
// extended to include both known extrema.
func G1Bounds(beta float64, sIv Interval) Interval {
	lo := G1(beta, sIv.Lo)
	hi := G1(beta, sIv.Hi)
	bound := NewInterval(lo, hi)
	if beta > 0 {
		sqrtBeta := math.Sqrt(beta)
		period := math.Pi / sqrtBeta
		phase := (math.Pi / 2) / sqrtBeta
		if anyCriticalInInterval(sIv.Lo, sIv.Hi, period, phase) {
			extreme := 1 / sqrtBeta
			bound = bound.Extend(extreme).Extend(-extreme)
		}
	}
	return bound
}

// G2Bounds bounds G_2(beta,s) over sIv.
//
// For beta<=0, G_2=(cosh(sqrt(-beta)s)-1)/(-beta) for beta<0 (and
// s^2/2 for beta=0) is monotone increasing in |s|, so endpoints (plus
// the point s=0 if it's interior, since G_2's minimum of 0 sits there)
// bound it. For beta>0, G_2 is periodic between 0 and 2/beta, with
// extrema at sqrt(beta)s=n*pi.
func G2Bounds(beta float64, sIv Interval) Interval {
	lo := G2(beta, sIv.Lo)
	hi := G2(beta, sIv.Hi)
	bound := NewInterval(lo, hi)
	if sIv.Contains(0) {
		bound = bound.Extend(0)
	}
	if beta > 0 {
		sqrtBeta := math.Sqrt(beta)
		period := math.Pi / sqrtBeta
		if anyCriticalInInterval(sIv.Lo, sIv.Hi, period, 0) {
			bound = bound.Extend(0).Extend(2 / beta)
		}
	}
	return bound
}

// G0Bounds bounds G_0(beta,s) = 1 - beta*G_2(beta,s) over sIv.
func G0Bounds(beta float64, sIv Interval) Interval {
	g2 := G2Bounds(beta, sIv)
	return g2.Scale(-beta).AddScalar(1)
}

// G3Bounds bounds G_3(beta,s) over sIv; G_3 is monotone since
// dG_3/ds=G_2>=0 everywhere.
func G3Bounds(beta float64, sIv Interval) Interval {
	lo := G3(beta, sIv.Lo)
	hi := G3(beta, sIv.Hi)
	return NewInterval(lo, hi)
}

// RadiusBounds bounds r(s) = rp + mu*e*G_2(beta,s) over sIv.
func (o *Orbit) RadiusBounds(sIv Interval) Interval {
	g2 := G2Bounds(o.beta, sIv)
	return g2.Scale(o.mu * o.e).AddScalar(o.rp)
}

// CanonicalPositionBounds bounds the canonical-frame x and y
// coordinates over sIv:
//
//	x = rp - mu*G_2(beta,s)    y = h*G_1(beta,s)
func (o *Orbit) CanonicalPositionBounds(sIv Interval) (x, y Interval) {
	g2 := G2Bounds(o.beta, sIv)
	g1 := G1Bounds(o.beta, sIv)
	x = g2.Scale(-o.mu).AddScalar(o.rp)
	y = g1.Scale(o.h)
	return
}

// AxisPositionBounds projects the position interval box onto a target
// axis (expressed in canonical coordinates, i.e. already rotated by
// the inverse of the orbit's orientation) by dotting the canonical
// per-axis bounds against the axis components. The z canonical
// coordinate is always exactly 0 (the orbit is planar in its own
// canonical frame), so only x and y contribute.
func (o *Orbit) AxisPositionBounds(sIv Interval, axisCanonical [3]float64) Interval {
	x, y := o.CanonicalPositionBounds(sIv)
	total := x.Scale(axisCanonical[0]).Add(y.Scale(axisCanonical[1]))
	return total
}
