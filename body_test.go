package orrery

import (
	"math"
	"testing"
)

func TestRegistryValidatesTree(t *testing.T) {
	kerbin := &Body{ID: 0, Mu: 3.5316e12, RSOI: math.Inf(1)}
	mun := &Body{
		ID: 1, Mu: 6.5138398e10, RSOI: 2.4295591e6,
		HasParent: true, ParentID: 0,
		Orbit: NewOrbit(3.5316e12, 2.0e10, 0, 1/1.2e7, nil, 0),
	}
	reg := NewRegistry([]*Body{kerbin, mun}, nil)
	if reg.RootID() != 0 {
		t.Fatalf("root id = %d, want 0", reg.RootID())
	}
	children := reg.Children(0)
	if len(children) != 1 || children[0] != 1 {
		t.Fatalf("children of root = %v, want [1]", children)
	}
}

func TestRegistryPanicsOnCycle(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on cyclic parent chain")
		}
	}()
	root := &Body{ID: 0, Mu: 1, RSOI: math.Inf(1)}
	a := &Body{ID: 1, HasParent: true, ParentID: 2, Mu: 1, RSOI: math.Inf(1), Orbit: NewOrbit(1, 0, 0, 0, nil, 0)}
	b := &Body{ID: 2, HasParent: true, ParentID: 1, Mu: 1, RSOI: math.Inf(1), Orbit: NewOrbit(1, 0, 0, 0, nil, 0)}
	NewRegistry([]*Body{root, a, b}, nil)
}

func TestRegistryPanicsOnSOITooSmall(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on rSOI <= rp")
		}
	}()
	root := &Body{ID: 0, Mu: 1e12, RSOI: math.Inf(1)}
	o := NewOrbit(1e12, math.Sqrt(1e12*1e7*(1-0.1*0.1)), 0.1, 1/1e7, nil, 0) // rp = 9e6
	bad := &Body{ID: 1, Mu: 1e9, RSOI: 1.0, HasParent: true, ParentID: 0, Orbit: o}
	NewRegistry([]*Body{root, bad}, nil)
}
