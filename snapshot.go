package orrery

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

// Orrery is one immutable universe segment: the registry of bodies
// (whose orbits never change) plus each ship's current parent and
// orbit primitive. Bodies form the static half of the forest; ships
// are the dynamic half, re-parented only by Transition, which
// produces a brand new Orrery rather than mutating this one -- the
// central invariant that makes scrubbing back and forth in time
// deterministic.
type Orrery struct {
	reg   *Registry
	ships map[int]shipEntry
	t0    float64
}

type shipEntry struct {
	parentID int
	orbit    *Orbit
}

func newOrrery(reg *Registry, ships map[int]shipEntry, t0 float64) *Orrery {
	return &Orrery{reg: reg, ships: ships, t0: t0}
}

// reduceForPeriod folds t-tp modulo the orbital period for a closed
// orbit, leaving open orbits untouched, per the contract SAtTime
// documents: the caller -- here, the orrery walking the tree -- owns
// this reduction, not the orbit primitive itself.
func reduceForPeriod(o *Orbit, t float64) float64 {
	if !o.IsClosed() {
		return t
	}
	period := o.Period()
	dt := math.Mod(t-o.tp, period)
	if dt < 0 {
		dt += period
	}
	return o.tp + dt
}

// thirdColumn extracts a 3x3 rotation matrix's third column.
func thirdColumn(r *mat64.Dense) [3]float64 {
	return [3]float64{r.At(0, 2), r.At(1, 2), r.At(2, 2)}
}

// orbitLocalFrame returns the frame of an orbiting entity relative to
// its immediate parent at time t: T and V are the position/velocity
// from StateAtS, and Omega is the orbit's instantaneous angular
// velocity vector h_vec/r^2, which re-rooting correctness requires. R
// is left the identity: StateAtS already rotates the canonical frame
// into the parent frame internally, so no further rotation is needed
// to place T and V in parent coordinates; ComposeFrames/InvertFrame
// still support a non-identity R for the general case.
func orbitLocalFrame(o *Orbit, t float64) (Frame, error) {
	s, err := o.SAtTime(reduceForPeriod(o, t))
	if err != nil {
		return Frame{}, err
	}
	r, v := o.StateAtS(s)
	rad := o.radiusAtS(s)
	var omega [3]float64
	if rad > 1e-12 {
		hAxis := thirdColumn(o.orientation)
		omega = scale(o.h/(rad*rad), hAxis)
	}
	return Frame{T: r, V: v, Omega: omega, R: identityMat()}, nil
}

// bodyFrameRelRoot returns bodyID's frame relative to the root body,
// composing per-level transforms along the root-to-entity path.
func (orr *Orrery) bodyFrameRelRoot(bodyID int, t float64) (Frame, error) {
	if bodyID == orr.reg.RootID() {
		return IdentityFrame(), nil
	}
	b, ok := orr.reg.Body(bodyID)
	if !ok {
		return Frame{}, fmt.Errorf("orrery: unknown body %d", bodyID)
	}
	parentFrame, err := orr.bodyFrameRelRoot(b.ParentID, t)
	if err != nil {
		return Frame{}, err
	}
	local, err := orbitLocalFrame(b.Orbit, t)
	if err != nil {
		return Frame{}, err
	}
	return ComposeFrames(local, parentFrame), nil
}

// frameRelRoot returns any entity's (body or ship) frame relative to
// the root body.
func (orr *Orrery) frameRelRoot(entityID int, t float64) (Frame, error) {
	if _, ok := orr.reg.Body(entityID); ok {
		return orr.bodyFrameRelRoot(entityID, t)
	}
	entry, ok := orr.ships[entityID]
	if !ok {
		return Frame{}, fmt.Errorf("orrery: unknown entity %d", entityID)
	}
	parentFrame, err := orr.bodyFrameRelRoot(entry.parentID, t)
	if err != nil {
		return Frame{}, err
	}
	local, err := orbitLocalFrame(entry.orbit, t)
	if err != nil {
		return Frame{}, err
	}
	return ComposeFrames(local, parentFrame), nil
}

// StateOf returns entityID's (r,v) at time t expressed in
// frameEntityID's frame.
func (orr *Orrery) StateOf(entityID int, t float64, frameEntityID int) (r, v [3]float64, err error) {
	entityFrame, err := orr.frameRelRoot(entityID, t)
	if err != nil {
		return [3]float64{}, [3]float64{}, err
	}
	refFrame, err := orr.frameRelRoot(frameEntityID, t)
	if err != nil {
		return [3]float64{}, [3]float64{}, err
	}
	inv := InvertFrame(refFrame)
	r, v = TransformPoint(inv, entityFrame.T, entityFrame.V)
	return r, v, nil
}

// ShipParent returns a ship's current parent id.
func (orr *Orrery) ShipParent(shipID int) (int, bool) {
	e, ok := orr.ships[shipID]
	return e.parentID, ok
}

// ShipOrbit returns a ship's current orbit primitive.
func (orr *Orrery) ShipOrbit(shipID int) (*Orbit, bool) {
	e, ok := orr.ships[shipID]
	return e.orbit, ok
}

// Transition re-roots shipID from its current parent to newParentID at
// tEvent: sample the ship's (r,v) in the root frame, re-express in the
// new parent's frame, fit a fresh orbit primitive, and copy every
// other entity's primitive verbatim.
func (orr *Orrery) Transition(shipID, newParentID int, tEvent float64) (*Orrery, error) {
	entry, ok := orr.ships[shipID]
	if !ok {
		return nil, fmt.Errorf("orrery: unknown ship %d", shipID)
	}
	shipFrame, err := orr.frameRelRoot(shipID, tEvent)
	if err != nil {
		return nil, err
	}
	newParentFrame, err := orr.bodyFrameRelRoot(newParentID, tEvent)
	if err != nil {
		return nil, err
	}
	newParentBody, ok := orr.reg.Body(newParentID)
	if !ok {
		return nil, fmt.Errorf("orrery: unknown body %d", newParentID)
	}
	inv := InvertFrame(newParentFrame)
	rNew, vNew := TransformPoint(inv, shipFrame.T, shipFrame.V)
	newOrbit, err := FitOrbit(newParentBody.Mu, rNew, vNew, tEvent)
	if err != nil {
		return nil, err
	}
	newShips := make(map[int]shipEntry, len(orr.ships))
	for id, e := range orr.ships {
		if id == shipID {
			newShips[id] = shipEntry{parentID: newParentID, orbit: newOrbit}
			continue
		}
		newShips[id] = e
	}
	_ = entry
	return newOrrery(orr.reg, newShips, tEvent), nil
}
