package orrery

import (
	"fmt"

	"github.com/gonum/floats"
)

// Body is a celestial body: an integer identity, a gravitational
// parameter, an SOI radius (+Inf for the root), a parent identity, and
// a Kepler orbit primitive describing its motion in the parent frame
// (nil for the root). Bodies form a rooted tree by parent, fixed for
// the lifetime of the simulation.
type Body struct {
	ID        int
	Mu        float64
	RSOI      float64
	HasParent bool
	ParentID  int
	Orbit     *Orbit
}

func (b *Body) String() string {
	if !b.HasParent {
		return fmt.Sprintf("Body(%d root, mu=%.6g)", b.ID, b.Mu)
	}
	return fmt.Sprintf("Body(%d parent=%d mu=%.6g rSOI=%.6g)", b.ID, b.ParentID, b.Mu, b.RSOI)
}

// Ship is a test particle: an integer identity. Its parent and orbit
// are per-orrery, not fixed like a Body's, since ships change parent
// across SOI transitions. Maneuver planning and thrust are out of
// scope; a Ship carries no mass or control state of its own.
type Ship struct {
	ID int
}

func (s *Ship) String() string {
	return fmt.Sprintf("Ship(%d)", s.ID)
}

// Registry is the fixed, validated set of bodies and ships known to a
// Timeline. Bodies form a static tree; ships are looked up by ID only,
// since their parent/orbit live in each orrery snapshot instead.
type Registry struct {
	bodies   map[int]*Body
	ships    map[int]*Ship
	children map[int][]int
	rootID   int
}

// NewRegistry validates and indexes a set of bodies and ships,
// panicking on any invariant violation: a body whose SOI doesn't
// clear its own periapsis, a missing or cyclic parent, or more than
// one root.
//
// Every invariant is checked once, up front, rather than discovered
// the first time some unrelated computation touches a bad body.
func NewRegistry(bodies []*Body, ships []*Ship) *Registry {
	reg := &Registry{
		bodies:   make(map[int]*Body, len(bodies)),
		ships:    make(map[int]*Ship, len(ships)),
		children: make(map[int][]int),
		rootID:   -1,
	}
	for _, b := range bodies {
		if _, dup := reg.bodies[b.ID]; dup {
			panic(fmt.Sprintf("orrery: duplicate body id %d", b.ID))
		}
		reg.bodies[b.ID] = b
	}
	for _, s := range ships {
		if _, dup := reg.ships[s.ID]; dup {
			panic(fmt.Sprintf("orrery: duplicate ship id %d", s.ID))
		}
		reg.ships[s.ID] = s
	}
	for _, b := range bodies {
		if !b.HasParent {
			if reg.rootID != -1 {
				panic(fmt.Sprintf("orrery: multiple root bodies: %d and %d", reg.rootID, b.ID))
			}
			reg.rootID = b.ID
			continue
		}
		parent, ok := reg.bodies[b.ParentID]
		if !ok {
			panic(fmt.Sprintf("orrery: body %d has unknown parent %d", b.ID, b.ParentID))
		}
		_ = parent
		reg.children[b.ParentID] = append(reg.children[b.ParentID], b.ID)
	}
	if reg.rootID == -1 {
		panic("orrery: no root body (exactly one body must have no parent)")
	}
	reg.checkAcyclic()
	reg.validateOrbits()
	return reg
}

func (reg *Registry) checkAcyclic() {
	visited := make(map[int]bool, len(reg.bodies))
	for id := range reg.bodies {
		path := make(map[int]bool)
		cur := id
		for {
			if path[cur] {
				panic(fmt.Sprintf("orrery: cyclic parent chain detected at body %d", cur))
			}
			if visited[cur] {
				break
			}
			path[cur] = true
			b := reg.bodies[cur]
			if !b.HasParent {
				break
			}
			cur = b.ParentID
		}
		for id := range path {
			visited[id] = true
		}
	}
}

func (reg *Registry) validateOrbits() {
	for _, b := range reg.bodies {
		if !b.HasParent {
			continue
		}
		if b.Orbit == nil {
			panic(fmt.Sprintf("orrery: non-root body %d has no orbit primitive", b.ID))
		}
		// A body whose SOI only just clears its own periapsis is as
		// good as not clearing it at all once floating-point noise is
		// in play, so the closeness check below widens a bare "<="
		// into a relative-tolerance band around equality.
		if b.RSOI < b.Orbit.Rp() || floats.EqualWithinRel(b.RSOI, b.Orbit.Rp(), 1e-9) {
			panic(fmt.Sprintf("orrery: body %d has rSOI=%.6g <= its own periapsis radius %.6g",
				b.ID, b.RSOI, b.Orbit.Rp()))
		}
	}
}

// Body looks up a body by id.
func (reg *Registry) Body(id int) (*Body, bool) {
	b, ok := reg.bodies[id]
	return b, ok
}

// Ship looks up a ship by id.
func (reg *Registry) Ship(id int) (*Ship, bool) {
	s, ok := reg.ships[id]
	return s, ok
}

// RootID returns the root body's id.
func (reg *Registry) RootID() int { return reg.rootID }

// Children returns the ids of a body's direct children.
func (reg *Registry) Children(id int) []int { return reg.children[id] }

// Bodies returns every body, unordered.
func (reg *Registry) Bodies() []*Body {
	out := make([]*Body, 0, len(reg.bodies))
	for _, b := range reg.bodies {
		out = append(out, b)
	}
	return out
}

// Ships returns every ship, unordered.
func (reg *Registry) Ships() []*Ship {
	out := make([]*Ship, 0, len(reg.ships))
	for _, s := range reg.ships {
		out = append(out, s)
	}
	return out
}
