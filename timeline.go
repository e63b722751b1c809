package orrery

import (
	"fmt"
	"sort"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/soniakeys/meeus/julian"
)

// simulationEpoch is the (arbitrary, fictional) calendar date that
// timeline time t=0 corresponds to, used only to stamp log lines with
// a Julian date -- purely cosmetic bookkeeping, since this core has no
// real-world ephemeris to align against.
var simulationEpoch = time.Date(1951, 1, 1, 0, 0, 0, 0, time.UTC)

var epochJD = julian.TimeToJD(simulationEpoch)

// julianDate converts a timeline time (seconds past t=0) to a Julian
// date for logging.
func julianDate(t float64) float64 {
	return epochJD + t/86400.0
}

// segment is one (orrery, validity) tuple in the timeline.
type segment struct {
	orrery  *Orrery
	tStart  float64
	tEnd    float64
	scanned float64 // how far extend_to has searched past tEnd with no event found
}

// EventLog is a queryable, append-only record of every SOI transition
// the timeline has produced, with filters since an external renderer
// will want "upcoming events for ship X" rather than a linear scan
// every frame.
type EventLog struct {
	events []Event
}

func (log *EventLog) append(e Event) {
	log.events = append(log.events, e)
}

// All returns every recorded event, oldest first.
func (log *EventLog) All() []Event {
	out := make([]Event, len(log.events))
	copy(out, log.events)
	return out
}

// ForShip returns every event involving the given ship, oldest first.
func (log *EventLog) ForShip(shipID int) []Event {
	var out []Event
	for _, e := range log.events {
		if e.ShipID == shipID {
			out = append(out, e)
		}
	}
	return out
}

// ForKind returns every event of the given kind.
func (log *EventLog) ForKind(kind EventKind) []Event {
	var out []Event
	for _, e := range log.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// InRange returns every event with t in [tFrom,tTo].
func (log *EventLog) InRange(tFrom, tTo float64) []Event {
	var out []Event
	for _, e := range log.events {
		if e.Time >= tFrom && e.Time <= tTo {
			out = append(out, e)
		}
	}
	return out
}

// Timeline is the ordered, gap-free sequence of orrery segments,
// append-only and never mutated once a segment is appended. It owns a
// logger and an EventLog.
type Timeline struct {
	reg      *Registry
	segments []segment
	events   EventLog
	logger   kitlog.Logger
}

// Seed builds the initial Timeline from a registry of bodies and
// ships, each ship starting at its given parent and orbit, valid from
// t0 onward (scanned so far = t0, i.e. not yet extended at all). The
// registry is expected to already be validated by NewRegistry.
func Seed(reg *Registry, shipOrbits map[int]struct {
	ParentID int
	Orbit    *Orbit
}, t0 float64) *Timeline {
	ships := make(map[int]shipEntry, len(shipOrbits))
	for id, so := range shipOrbits {
		ships[id] = shipEntry{parentID: so.ParentID, orbit: so.Orbit}
	}
	initial := newOrrery(reg, ships, t0)
	tl := &Timeline{
		reg: reg,
		segments: []segment{{
			orrery:  initial,
			tStart:  t0,
			tEnd:    t0,
			scanned: t0,
		}},
		logger: newLogger(),
	}
	tl.logger.Log("level", "info", "msg", "timeline seeded", "bodies", len(reg.Bodies()), "ships", len(reg.Ships()), "t0", t0, "jd0", julianDate(t0))
	return tl
}

// ExtendTo idempotently extends the timeline so that it covers
// t_target, running the event search on the last orrery as many times
// as needed, appending one new segment per event found. If no event
// exists up to t_target, the last segment's scanned bound is advanced
// to t_target without creating a new segment.
func (tl *Timeline) ExtendTo(tTarget float64) error {
	for {
		last := &tl.segments[len(tl.segments)-1]
		if last.scanned >= tTarget {
			return nil
		}
		ev, err := FindNextEvent(last.orrery, last.scanned, tTarget)
		if err != nil {
			if g, ok := err.(ErrGrazingContact); ok {
				tl.logger.Log("level", "info", "msg", "grazing contact", "ship", g.ShipID, "neighbor", g.NeighborID, "t", g.TApprox, "jd", julianDate(g.TApprox))
				last.scanned = tTarget
				return nil
			}
			return err
		}
		if ev == nil {
			last.scanned = tTarget
			return nil
		}
		newOrr, err := last.orrery.Transition(ev.ShipID, ev.NewParent, ev.Time)
		if err != nil {
			return err
		}
		last.tEnd = ev.Time
		tl.segments = append(tl.segments, segment{
			orrery:  newOrr,
			tStart:  ev.Time,
			tEnd:    ev.Time,
			scanned: ev.Time,
		})
		tl.events.append(*ev)
		tl.logger.Log("level", "notice", "msg", "soi transition",
			"ship", ev.ShipID, "old_parent", ev.OldParent, "new_parent", ev.NewParent,
			"kind", ev.Kind.String(), "t", ev.Time, "jd", julianDate(ev.Time))
	}
}

// segmentIndexFor binary-searches for the segment covering t, or
// returns the last segment's index and false if t is beyond what has
// been scanned.
func (tl *Timeline) segmentIndexFor(t float64) (int, bool) {
	segs := tl.segments
	lastIdx := len(segs) - 1
	if t > segs[lastIdx].scanned {
		return lastIdx, false
	}
	i := sort.Search(len(segs), func(i int) bool {
		bound := segs[i].tEnd
		if i == lastIdx {
			bound = segs[i].scanned
		}
		return t <= bound
	})
	if i > lastIdx {
		i = lastIdx
	}
	return i, true
}

// StateAt returns entity's (r,v) at time t in the given reference
// frame entity's frame, implicitly extending the timeline if t is
// beyond the scanned range.
func (tl *Timeline) StateAt(t float64, entity, frameEntity int) (r, v [3]float64, err error) {
	idx, inRange := tl.segmentIndexFor(t)
	if !inRange {
		if err := tl.ExtendTo(t); err != nil {
			return [3]float64{}, [3]float64{}, err
		}
		idx, _ = tl.segmentIndexFor(t)
	}
	seg := tl.segments[idx]
	return seg.orrery.StateOf(entity, t, frameEntity)
}

// EventLog returns the timeline's accumulated SOI event log.
func (tl *Timeline) EventLog() *EventLog { return &tl.events }

// Registry returns the timeline's body/ship registry.
func (tl *Timeline) Registry() *Registry { return tl.reg }

// SegmentCount reports how many orrery segments the timeline currently
// holds, chiefly for tests.
func (tl *Timeline) SegmentCount() int { return len(tl.segments) }

func (tl *Timeline) String() string {
	return fmt.Sprintf("Timeline(%d segments, %d events)", len(tl.segments), len(tl.events.events))
}
