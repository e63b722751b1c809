package orrery

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

const kerbinMu = 3.5316e12

func TestCircularOrbitReturnsToStart(t *testing.T) {
	a := 700000.0
	mu := kerbinMu
	h := math.Sqrt(mu * a) // circular: e=0
	o := NewOrbit(mu, h, 0, 1/a, nil, 0)
	period := o.Period()

	r0, _ := o.StateAtS(0)
	s1, err := o.SAtTime(period)
	if err != nil {
		t.Fatalf("SAtTime: %v", err)
	}
	r1, _ := o.StateAtS(s1)
	for i := 0; i < 3; i++ {
		if !floats.EqualWithinAbs(r1[i], r0[i], 1e-4) {
			t.Fatalf("after one period r[%d] = %g, want %g", i, r1[i], r0[i])
		}
	}
}

func TestTimeSRoundTrip(t *testing.T) {
	mu := kerbinMu
	a := 1.2e6
	e := 0.3
	h := math.Sqrt(mu * a * (1 - e*e))
	o := NewOrbit(mu, h, e, 1/a, nil, 0)
	for _, s := range []float64{-500, -10, 0.1, 50, 900} {
		tAt := o.TimeAtS(s)
		sBack, err := o.SAtTime(tAt)
		if err != nil {
			t.Fatalf("SAtTime: %v", err)
		}
		if !floats.EqualWithinRel(sBack, s, 1e-9) && !floats.EqualWithinAbs(sBack, s, 1e-9) {
			t.Fatalf("round trip s=%g -> t=%g -> s=%g", s, tAt, sBack)
		}
	}
}

func TestEnergyAndAngularMomentumConserved(t *testing.T) {
	mu := kerbinMu
	a := 900000.0
	e := 0.5
	h := math.Sqrt(mu * a * (1 - e*e))
	o := NewOrbit(mu, h, e, 1/a, nil, 0)
	for _, s := range []float64{-300, -50, 0, 80, 400} {
		r, v := o.StateAtS(s)
		energy := dot(v, v)/2 - mu/norm(r)
		hVec := cross(r, v)
		if !floats.EqualWithinRel(energy, o.Energy(), 1e-8) {
			t.Fatalf("s=%g energy=%g want %g", s, energy, o.Energy())
		}
		if !floats.EqualWithinRel(norm(hVec), o.H(), 1e-8) {
			t.Fatalf("s=%g |h|=%g want %g", s, norm(hVec), o.H())
		}
	}
}

func TestParabolicNoNaN(t *testing.T) {
	mu := kerbinMu
	h := 1e7
	o := NewOrbit(mu, h, 1, 0, nil, 0)
	for _, s := range []float64{-1e4, -100, 0, 100, 1e4} {
		r, v := o.StateAtS(s)
		for i := 0; i < 3; i++ {
			if math.IsNaN(r[i]) || math.IsNaN(v[i]) {
				t.Fatalf("s=%g produced NaN: r=%v v=%v", s, r, v)
			}
		}
		tAt := o.TimeAtS(s)
		if math.IsNaN(tAt) {
			t.Fatalf("s=%g time_at_s is NaN", s)
		}
	}
}

func TestRadialOrbitStateAtFocus(t *testing.T) {
	mu := kerbinMu
	r0 := 700000.0
	invA := 1 / r0 // bound radial orbit with a=r0, so r runs between 0 and 2*r0
	o := NewOrbit(mu, 0, 1, invA, nil, 0)

	// At s=0 the radial orbit is passing through its own focus: its
	// position is exactly the origin and its speed is physically
	// unbounded, so StateAtS must report that honestly as a signed
	// infinity rather than silently hand back a NaN from 0/0.
	r, v := o.StateAtS(0)
	for i := 0; i < 3; i++ {
		if r[i] != 0 {
			t.Fatalf("radial orbit at s=0 should sit exactly at the origin: r=%v", r)
		}
	}
	if !math.IsInf(v[0], 0) {
		t.Fatalf("radial orbit speed at the central-body singularity should be infinite, got v=%v", v)
	}
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) {
			t.Fatalf("radial orbit velocity at s=0 must not be NaN: v=%v", v)
		}
	}

	// Away from the singularity the state is perfectly finite.
	r2, v2 := o.StateAtS(10)
	for i := 0; i < 3; i++ {
		if math.IsNaN(r2[i]) || math.IsInf(r2[i], 0) || math.IsNaN(v2[i]) || math.IsInf(v2[i], 0) {
			t.Fatalf("radial orbit away from s=0 should be finite: r=%v v=%v", r2, v2)
		}
	}
}
