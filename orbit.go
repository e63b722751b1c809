package orrery

import (
	"fmt"
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// Orbit is the canonical two-body arc anchored at periapsis,
// parameterized by (mu, h, e, invA, orientation, tp). Derived
// quantities (beta, rp, energy) are computed once at construction and
// cached, since an Orbit, once built, is never mutated.
type Orbit struct {
	mu, h, e, invA, tp float64
	orientation        *mat64.Dense

	beta, rp, energy float64
}

// NewOrbit constructs a Kepler orbit primitive, panicking on a seed
// invariant violation.
//
// The one state that cannot be constructed is h=0, e=1, beta=0: a
// radial arc at exactly escape energy is indistinguishable from the
// canonical (h>0, beta=0) parabola's own e=1, with no remaining free
// parameter to tell them apart. Radial arcs with beta!=0 (elliptic or
// hyperbolic free-fall) remain valid, e=1 and all.
func NewOrbit(mu, h, e, invA float64, orientation *mat64.Dense, tp float64) *Orbit {
	if mu <= 0 {
		panic(fmt.Sprintf("orrery: orbit mu must be positive, got %g", mu))
	}
	if h < 0 {
		panic(fmt.Sprintf("orrery: orbit h must be non-negative, got %g", h))
	}
	if e < 0 {
		panic(fmt.Sprintf("orrery: orbit e must be non-negative, got %g", e))
	}
	beta := mu * invA
	const degenerateTol = 1e-12
	if floats.EqualWithinAbs(h, 0, degenerateTol) && floats.EqualWithinAbs(e, 1, degenerateTol) && floats.EqualWithinAbs(beta, 0, degenerateTol) {
		panic("orrery: degenerate orbit: h=0, e=1, beta=0 cannot be disambiguated from a canonical parabola")
	}
	if orientation == nil {
		orientation = identityMat()
	}
	rp := h * h / (mu * (1 + e))
	energy := -beta / 2
	return &Orbit{
		mu: mu, h: h, e: e, invA: invA, tp: tp,
		orientation: orientation,
		beta:        beta, rp: rp, energy: energy,
	}
}

func (o *Orbit) Mu() float64    { return o.mu }
func (o *Orbit) H() float64     { return o.h }
func (o *Orbit) E() float64     { return o.e }
func (o *Orbit) InvA() float64  { return o.invA }
func (o *Orbit) Beta() float64  { return o.beta }
func (o *Orbit) Rp() float64    { return o.rp }
func (o *Orbit) Energy() float64 { return o.energy }
func (o *Orbit) Tp() float64    { return o.tp }

// Orientation returns the rotation taking the canonical frame
// (periapsis along +x, velocity along +y at periapsis, angular
// momentum along +z) into the parent frame.
func (o *Orbit) Orientation() *mat64.Dense { return o.orientation }

// IsClosed reports whether the orbit is bound (beta > 0).
func (o *Orbit) IsClosed() bool { return o.beta > 0 }

// Period returns the orbital period for a closed orbit, or +Inf
// otherwise.
func (o *Orbit) Period() float64 {
	if !o.IsClosed() {
		return math.Inf(1)
	}
	a := 1 / o.invA
	return 2 * math.Pi * math.Sqrt(a*a*a/o.mu)
}

// ApoapsisRadius returns the apoapsis radius, or +Inf for parabolic
// and hyperbolic orbits (e >= 1).
func (o *Orbit) ApoapsisRadius() float64 {
	if o.e >= 1 {
		return math.Inf(1)
	}
	a := 1 / o.invA
	return a * (1 + o.e)
}

// radiusAtS returns r(s) = rp + mu*e*G2(beta,s).
func (o *Orbit) radiusAtS(s float64) float64 {
	return o.rp + o.mu*o.e*G2(o.beta, s)
}

// StateAtS evaluates the canonical-frame position and velocity at
// universal anomaly s and rotates them into the parent frame, per:
//
//	x = rp - mu*G2(beta,s)        y = h*G1(beta,s)
//	vx = -(mu/r)*G1(beta,s)       vy = (h/r)*G0(beta,s)
//	r = rp + mu*e*G2(beta,s)
//
// Radial orbits (h=0) fall out of the position formulas without
// branching: y vanishes because G1 is multiplied by h. The velocity
// formulas need a branch, though: vy's h/r would be an honest 0/0 when
// a radial orbit also sits at r=0 (it never carries transverse
// velocity, so it's defined as exactly 0 rather than evaluated), and
// vx genuinely diverges there -- a radial orbit passing through its
// own focus is passing through the central body itself, where two-body
// speed is physically unbounded. That one instant is returned as a
// signed infinity (direction of travel inferred from the sign of s)
// rather than left as the NaN that -(mu/r)*G1 would silently produce
// from Inf*0.
func (o *Orbit) StateAtS(s float64) (r, v [3]float64) {
	r_ := o.radiusAtS(s)
	g0 := G0(o.beta, s)
	g1 := G1(o.beta, s)
	g2 := G2(o.beta, s)
	x := o.rp - o.mu*g2
	y := o.h * g1

	var vx, vy float64
	if o.h == 0 {
		vy = 0
		switch {
		case r_ > 1e-9:
			vx = -(o.mu / r_) * g1
		default:
			// Only the nonzero components of the rotated direction of
			// travel carry the infinity; the others stay exactly 0.
			dir := matVec(o.orientation, [3]float64{math.Copysign(1, -s), 0, 0})
			for i, d := range dir {
				if d != 0 {
					v[i] = math.Copysign(math.Inf(1), d)
				}
			}
			return matVec(o.orientation, [3]float64{x, y, 0}), v
		}
	} else {
		vx = -(o.mu / r_) * g1
		vy = (o.h / r_) * g0
	}

	canonicalR := [3]float64{x, y, 0}
	canonicalV := [3]float64{vx, vy, 0}
	return matVec(o.orientation, canonicalR), matVec(o.orientation, canonicalV)
}

// TimeAtS returns t = tp + rp*s + mu*e*G3(beta,s).
func (o *Orbit) TimeAtS(s float64) float64 {
	return o.tp + o.rp*s + o.mu*o.e*G3(o.beta, s)
}

// SAtTime solves TimeAtS(s) = t for s via Newton iteration, using
// dt/ds = r(s). The caller is responsible for reducing t-tp modulo the
// orbital period for closed orbits before calling; SAtTime performs no
// such reduction itself; see reduceForPeriod in snapshot.go, which the
// orrery and event.go apply before calling.
func (o *Orbit) SAtTime(t float64) (float64, error) {
	cfg := orreryConfig()
	dt := t - o.tp
	s := dt / math.Max(o.rp, 1e-6)
	for i := 0; i < cfg.newtonMaxIter; i++ {
		f := o.TimeAtS(s) - t
		if floats.EqualWithinAbs(f, 0, cfg.newtonTol*math.Max(1, math.Abs(t))) {
			return s, nil
		}
		deriv := o.radiusAtS(s)
		if deriv <= 0 {
			deriv = 1e-9
		}
		s -= f / deriv
	}
	return s, ErrNonConvergence{Op: "Orbit.SAtTime", Iterations: cfg.newtonMaxIter}
}

func (o *Orbit) String() string {
	return fmt.Sprintf("Orbit(mu=%.6g h=%.6g e=%.6g 1/a=%.6g beta=%.6g rp=%.6g tp=%.6g)",
		o.mu, o.h, o.e, o.invA, o.beta, o.rp, o.tp)
}
