package orrery

import (
	"fmt"
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// EventKind distinguishes an SOI escape from an SOI encounter.
type EventKind int

const (
	EventEscape EventKind = iota
	EventEncounter
)

func (k EventKind) String() string {
	switch k {
	case EventEscape:
		return "Escape"
	case EventEncounter:
		return "Encounter"
	default:
		return "Unknown"
	}
}

// Event records one SOI transition: the ship involved, its old and
// new parent, the kind of crossing, and the simulated time it
// occurred.
type Event struct {
	Time      float64
	ShipID    int
	OldParent int
	NewParent int
	Kind      EventKind
}

func (e Event) String() string {
	return fmt.Sprintf("Event(t=%.6g ship=%d %d->%d %s)", e.Time, e.ShipID, e.OldParent, e.NewParent, e.Kind)
}

// residual bundles a scalar function with the derivative information
// the Krawczyk-Moore test needs: a point derivative estimate at an
// arbitrary s (for the Newton step) and an interval derivative bound
// over a sub-interval (for certification).
type residual struct {
	g             func(s float64) (float64, error)
	derivAtPoint  func(s float64) (float64, error)
	derivOverIval func(iv Interval) (Interval, error)
}

// escapeResidual is f_escape(s) = r_ship_in_P(s) - r_SOI(P). Since the
// ship's own orbit primitive is already expressed in P's frame, this
// needs no coordinate transform.
func escapeResidual(shipOrbit *Orbit, rSOI float64) residual {
	return residual{
		g: func(s float64) (float64, error) {
			return shipOrbit.radiusAtS(s) - rSOI, nil
		},
		derivAtPoint: func(s float64) (float64, error) {
			return shipOrbit.mu * shipOrbit.e * G1(shipOrbit.beta, s), nil
		},
		derivOverIval: func(iv Interval) (Interval, error) {
			return G1Bounds(shipOrbit.beta, iv).Scale(shipOrbit.mu * shipOrbit.e), nil
		},
	}
}

// encounterResidual is f_enc(s) = |r_ship_in_P(s) - r_M_in_P(t(s))| -
// r_SOI(M). The composite dependency on M's own orbit solve makes a
// closed-form interval derivative impractical to carry exactly, so
// the interval bound here is a sampled envelope of the point
// derivative across the sub-interval rather than an analytically
// certified one -- a deliberate, documented approximation; the escape
// residual above remains fully analytic.
func encounterResidual(shipOrbit, neighborOrbit *Orbit, rSOI float64) residual {
	dist := func(s float64) (float64, error) {
		r, _ := shipOrbit.StateAtS(s)
		t := shipOrbit.TimeAtS(s)
		sM, err := neighborOrbit.SAtTime(reduceForPeriod(neighborOrbit, t))
		if err != nil {
			return 0, err
		}
		rM, _ := neighborOrbit.StateAtS(sM)
		return norm(sub(r, rM)), nil
	}
	g := func(s float64) (float64, error) {
		d, err := dist(s)
		if err != nil {
			return 0, err
		}
		return d - rSOI, nil
	}
	const h = 1e-4
	derivAtPoint := func(s float64) (float64, error) {
		fPlus, err := g(s + h)
		if err != nil {
			return 0, err
		}
		fMinus, err := g(s - h)
		if err != nil {
			return 0, err
		}
		return (fPlus - fMinus) / (2 * h), nil
	}
	derivOverIval := func(iv Interval) (Interval, error) {
		const samples = 6
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i <= samples; i++ {
			s := iv.Lo + iv.Width()*float64(i)/float64(samples)
			d, err := derivAtPoint(s)
			if err != nil {
				return Interval{}, err
			}
			lo = math.Min(lo, d)
			hi = math.Max(hi, d)
		}
		return Interval{Lo: lo, Hi: hi}, nil
	}
	return residual{g: g, derivAtPoint: derivAtPoint, derivOverIval: derivOverIval}
}

// krawczykCertifyAndSolve implements the Krawczyk-Moore certified-root
// search: subdivide sIv until either the test certifies a single
// simple root (and Newton from the midpoint converges to it), or the
// sub-interval shrinks below tolerance without certification (a
// degenerate tangent/grazing case).
func krawczykCertifyAndSolve(r residual, sIv Interval, cfg config) (s float64, found bool, err error) {
	return krawczykRecurse(r, sIv, cfg, 0)
}

func krawczykRecurse(r residual, sIv Interval, cfg config, depth int) (float64, bool, error) {
	m := sIv.Mid()
	gm, err := r.g(m)
	if err != nil {
		return 0, false, err
	}
	derivAtM, err := r.derivAtPoint(m)
	if err != nil {
		return 0, false, err
	}
	if floats.EqualWithinAbs(derivAtM, 0, 1e-14) {
		derivAtM = 1e-14
	}
	gPrimeIval, err := r.derivOverIval(sIv)
	if err != nil {
		return 0, false, err
	}
	oneMinusRatio := Interval{Lo: 1, Hi: 1}.Sub(gPrimeIval.Scale(1 / derivAtM))
	sMinusM := sIv.AddScalar(-m)
	k := intervalMul(oneMinusRatio, sMinusM).AddScalar(m - gm/derivAtM)
	if k.StrictlyInside(sIv) {
		root, err := newtonRefine(r, m, cfg)
		return root, err == nil, err
	}
	if sIv.Width() < cfg.intervalTol || depth >= cfg.krawczykMaxDepth {
		return m, false, nil
	}
	left := Interval{Lo: sIv.Lo, Hi: m}
	right := Interval{Lo: m, Hi: sIv.Hi}
	if s, ok, err := krawczykRecurse(r, left, cfg, depth+1); ok || err != nil {
		return s, ok, err
	}
	return krawczykRecurse(r, right, cfg, depth+1)
}

// intervalMul multiplies two intervals, taking the min/max of the four
// endpoint products (neither interval need be sign-definite).
func intervalMul(a, b Interval) Interval {
	p1, p2, p3, p4 := a.Lo*b.Lo, a.Lo*b.Hi, a.Hi*b.Lo, a.Hi*b.Hi
	lo := math.Min(math.Min(p1, p2), math.Min(p3, p4))
	hi := math.Max(math.Max(p1, p2), math.Max(p3, p4))
	return Interval{Lo: lo, Hi: hi}
}

func newtonRefine(r residual, s0 float64, cfg config) (float64, error) {
	s := s0
	for i := 0; i < cfg.newtonMaxIter; i++ {
		g, err := r.g(s)
		if err != nil {
			return 0, err
		}
		if floats.EqualWithinAbs(g, 0, cfg.newtonTol) {
			return s, nil
		}
		d, err := r.derivAtPoint(s)
		if err != nil {
			return 0, err
		}
		if floats.EqualWithinAbs(d, 0, 1e-14) {
			d = 1e-14
		}
		s -= g / d
	}
	return s, ErrNonConvergence{Op: "event Newton refinement", Iterations: cfg.newtonMaxIter}
}

// candidateSWindow converts a [tFrom,tTo] search window into the
// ship's own s-coordinates. This assumes the window is narrower than
// one orbital period of the ship, since s_at_time is solved without
// period-unwrapping ambiguity only within a single period. Nothing
// enforces that here: ExtendTo passes its whole [scanned,tTarget]
// window in one call, and a longer window on a closed orbit is not
// handled.
func candidateSWindow(shipOrbit *Orbit, tFrom, tTo float64) (Interval, error) {
	sFrom, err := shipOrbit.SAtTime(reduceForPeriod(shipOrbit, tFrom))
	if err != nil {
		return Interval{}, err
	}
	sTo, err := shipOrbit.SAtTime(reduceForPeriod(shipOrbit, tTo))
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(sFrom, sTo), nil
}

// nearestAbs and farthestAbs give the nearest/farthest distance from
// zero attained within an interval, used for the encounter bounding
// box's distance-to-origin bracket.
func nearestAbs(iv Interval) float64 {
	if iv.Contains(0) {
		return 0
	}
	return math.Min(math.Abs(iv.Lo), math.Abs(iv.Hi))
}

func farthestAbs(iv Interval) float64 {
	return math.Max(math.Abs(iv.Lo), math.Abs(iv.Hi))
}

// findEscapeEvent searches for an SOI escape from parent P within
// [tFrom,tTo] for one ship.
func findEscapeEvent(shipID int, shipOrbit *Orbit, parent *Body, tFrom, tTo float64, cfg config) (*Event, error) {
	if !parent.HasParent {
		return nil, nil
	}
	sIv, err := candidateSWindow(shipOrbit, tFrom, tTo)
	if err != nil {
		return nil, err
	}
	rBounds := shipOrbit.RadiusBounds(sIv)
	if !rBounds.Contains(parent.RSOI) {
		return nil, nil
	}
	res := escapeResidual(shipOrbit, parent.RSOI)
	s, ok, err := krawczykCertifyAndSolve(res, sIv, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGrazingContact{ShipID: shipID, NeighborID: parent.ID, TApprox: shipOrbit.TimeAtS(sIv.Mid())}
	}
	return &Event{Time: shipOrbit.TimeAtS(s), ShipID: shipID, OldParent: parent.ID, NewParent: parent.ParentID, Kind: EventEscape}, nil
}

// findEncounterEvent searches for an SOI encounter between a ship (in
// parent P's frame) and a sibling body M within [tFrom,tTo].
func findEncounterEvent(shipID int, shipOrbit *Orbit, parentID int, neighbor *Body, tFrom, tTo float64, cfg config) (*Event, error) {
	sIv, err := candidateSWindow(shipOrbit, tFrom, tTo)
	if err != nil {
		return nil, err
	}
	shipX, shipY := shipOrbit.CanonicalPositionBounds(sIv)
	// shipX, shipY are in the ship orbit's own canonical axes; project
	// to P's frame axes via the orbit's orientation so they can be
	// compared against the neighbor's P-frame bounding box.
	ex := matVec(shipOrbit.orientation, [3]float64{1, 0, 0})
	ey := matVec(shipOrbit.orientation, [3]float64{0, 1, 0})
	shipXP := shipX.Scale(ex[0]).Add(shipY.Scale(ey[0]))
	shipYP := shipX.Scale(ex[1]).Add(shipY.Scale(ey[1]))

	tLo := shipOrbit.TimeAtS(sIv.Lo)
	tHi := shipOrbit.TimeAtS(sIv.Hi)
	mSIv, err := candidateSWindow(neighbor.Orbit, tLo, tHi)
	if err != nil {
		return nil, err
	}
	mX, mY := neighbor.Orbit.CanonicalPositionBounds(mSIv)
	mex := matVec(neighbor.Orbit.orientation, [3]float64{1, 0, 0})
	mey := matVec(neighbor.Orbit.orientation, [3]float64{0, 1, 0})
	mXP := mX.Scale(mex[0]).Add(mY.Scale(mey[0]))
	mYP := mX.Scale(mex[1]).Add(mY.Scale(mey[1]))

	dx := shipXP.Sub(mXP)
	dy := shipYP.Sub(mYP)
	minDist := math.Sqrt(nearestAbs(dx)*nearestAbs(dx) + nearestAbs(dy)*nearestAbs(dy))
	maxDist := math.Sqrt(farthestAbs(dx)*farthestAbs(dx) + farthestAbs(dy)*farthestAbs(dy))
	if neighbor.RSOI < minDist || neighbor.RSOI > maxDist {
		return nil, nil
	}
	res := encounterResidual(shipOrbit, neighbor.Orbit, neighbor.RSOI)
	s, ok, err := krawczykCertifyAndSolve(res, sIv, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGrazingContact{ShipID: shipID, NeighborID: neighbor.ID, TApprox: shipOrbit.TimeAtS(sIv.Mid())}
	}
	return &Event{Time: shipOrbit.TimeAtS(s), ShipID: shipID, OldParent: parentID, NewParent: neighbor.ID, Kind: EventEncounter}, nil
}

// FindNextEvent scans every (ship, neighbor) pair in orr for the
// earliest SOI event within [tFrom,tTo], breaking ties by lowest ship
// id then lowest neighbor id.
func FindNextEvent(orr *Orrery, tFrom, tTo float64) (*Event, error) {
	cfg := orreryConfig()
	var best *Event
	for _, ship := range orr.reg.Ships() {
		entry, ok := orr.ships[ship.ID]
		if !ok {
			continue
		}
		parent, ok := orr.reg.Body(entry.parentID)
		if !ok {
			return nil, fmt.Errorf("orrery: ship %d has unknown parent %d", ship.ID, entry.parentID)
		}
		candidates := make([]*Event, 0, 4)
		if ev, err := findEscapeEvent(ship.ID, entry.orbit, parent, tFrom, tTo, cfg); err != nil {
			if _, grazing := err.(ErrGrazingContact); !grazing {
				return nil, err
			}
		} else if ev != nil {
			candidates = append(candidates, ev)
		}
		for _, siblingID := range orr.reg.Children(entry.parentID) {
			sibling, _ := orr.reg.Body(siblingID)
			ev, err := findEncounterEvent(ship.ID, entry.orbit, entry.parentID, sibling, tFrom, tTo, cfg)
			if err != nil {
				if _, grazing := err.(ErrGrazingContact); !grazing {
					return nil, err
				}
				continue
			}
			if ev != nil {
				candidates = append(candidates, ev)
			}
		}
		for _, c := range candidates {
			if best == nil || c.Time < best.Time ||
				(c.Time == best.Time && (c.ShipID < best.ShipID ||
					(c.ShipID == best.ShipID && c.NewParent < best.NewParent))) {
				best = c
			}
		}
	}
	return best, nil
}

// FitOrbit fits a Kepler orbit primitive to an (r,v) state at tEvent,
// the re-rooting fit used whenever a ship crosses into a new parent's
// frame:
//
//	h_vec = r x v, h = |h_vec|
//	e_vec = (v x h_vec)/mu - r_hat, e = |e_vec|
//	energy = |v|^2/2 - mu/|r|, 1/a = -2*energy/mu
//
// Orientation columns are the periapsis direction (e_vec/e, or r_hat
// when e=0), the in-plane y axis, and the
// orbit normal (h_vec/h, or an arbitrary perpendicular to the
// periapsis direction when h=0 -- the radial case, where the "plane"
// is undefined and any choice carrying the line of motion is exact).
func FitOrbit(mu float64, r, v [3]float64, tEvent float64) (*Orbit, error) {
	rNorm := norm(r)
	if rNorm < 1e-12 {
		return nil, fmt.Errorf("orrery: cannot fit an orbit at r~0")
	}
	rHat := unit(r)
	hVec := cross(r, v)
	h := norm(hVec)
	eVec := sub(scale(1/mu, cross(v, hVec)), rHat)
	e := norm(eVec)
	energy := dot(v, v)/2 - mu/rNorm
	invA := -2 * energy / mu

	var periapsisDir [3]float64
	if e > 1e-12 {
		periapsisDir = unit(eVec)
	} else {
		periapsisDir = rHat
	}

	var normal [3]float64
	if h > 1e-12 {
		normal = unit(hVec)
	} else {
		normal = arbitraryPerp(periapsisDir)
	}
	yAxis := unit(cross(normal, periapsisDir))
	normal = unit(cross(periapsisDir, yAxis))

	orientation := mat64.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		orientation.Set(i, 0, periapsisDir[i])
		orientation.Set(i, 1, yAxis[i])
		orientation.Set(i, 2, normal[i])
	}

	beta := mu * invA
	rp := h * h / (mu * (1 + e))
	motionSign := 1.0
	if dot(r, v) < 0 {
		motionSign = -1.0
	}
	canonX := dot(r, periapsisDir)
	canonY := dot(r, yAxis)
	s := sAtFit(beta, rp, mu, h, canonX, canonY, motionSign)
	tp := tEvent - (rp*s + mu*e*G3(beta, s))

	return NewOrbit(mu, h, e, invA, orientation, tp), nil
}

// arbitraryPerp returns a unit vector perpendicular to v, for the case
// (h=0) where the fitting algorithm has a free choice of orbit normal.
func arbitraryPerp(v [3]float64) [3]float64 {
	ref := [3]float64{0, 0, 1}
	if math.Abs(dot(v, ref)) > 0.9 {
		ref = [3]float64{0, 1, 0}
	}
	return unit(cross(v, ref))
}

// sAtFit solves for the universal anomaly s matching a known canonical
// position (canonX,canonY) per the closed forms for each sign of beta,
// avoiding the ambiguity of inverting G1 directly: for beta>0, sin/cos
// of the eccentric-like angle are read off canonX,canonY directly via
// atan2 (principal value, valid within one period of periapsis); for
// beta<0, asinh is exact (sinh is a bijection); for beta=0, G1=s is
// linear in h>0, and G2=s^2/2 gives s directly when h=0.
func sAtFit(beta, rp, mu, h float64, canonX, canonY, motionSign float64) float64 {
	if h > 1e-12 {
		switch {
		case beta > 0:
			sqrtBeta := math.Sqrt(beta)
			g1 := canonY / h
			g2 := (rp - canonX) / mu
			sinU := g1 * sqrtBeta
			cosU := 1 - beta*g2
			return math.Atan2(sinU, cosU) / sqrtBeta
		case beta < 0:
			sqrtNegBeta := math.Sqrt(-beta)
			g1 := canonY / h
			sinhU := g1 * sqrtNegBeta
			return math.Asinh(sinhU) / sqrtNegBeta
		default:
			return canonY / h
		}
	}
	// radial: rp=0, canonX = -|r|, so G2(s) = |r|/mu.
	g2 := -canonX / mu
	switch {
	case beta > 0:
		sqrtBeta := math.Sqrt(beta)
		cosU := 1 - beta*g2
		cosU = math.Max(-1, math.Min(1, cosU))
		u := math.Acos(cosU)
		return motionSign * u / sqrtBeta
	case beta < 0:
		sqrtNegBeta := math.Sqrt(-beta)
		coshU := 1 - beta*g2
		coshU = math.Max(1, coshU)
		u := math.Acosh(coshU)
		return motionSign * u / sqrtNegBeta
	default:
		return motionSign * math.Sqrt(2*g2)
	}
}
