// Package selection owns the start/end point state of one interactive map
// session and decides when a route is computed, replaced or discarded.
//
// A Machine is single-consumer and not safe for concurrent use; give every
// session its own instance.
package selection

import (
	"errors"
	"fmt"

	"github.com/vanshika/mapnav/backend/internal/routing"
)

// State is the logical state of a Machine.
type State int

const (
	// Idle has no endpoint chosen.
	Idle State = iota
	// StartChosen has exactly one endpoint chosen. After a deselection
	// while a path is shown, the remaining endpoint may be the end point.
	StartChosen
	// PathShown has both endpoints chosen and the query resolved.
	PathShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case StartChosen:
		return "start_chosen"
	case PathShown:
		return "path_shown"
	default:
		return "unknown"
	}
}

// PathFinder computes a route between two vertex ids.
type PathFinder interface {
	FindPath(sourceID, targetID int64) (routing.PathResult, error)
}

// PathFinderFunc adapts a function to PathFinder.
type PathFinderFunc func(sourceID, targetID int64) (routing.PathResult, error)

// FindPath calls f.
func (f PathFinderFunc) FindPath(sourceID, targetID int64) (routing.PathResult, error) {
	return f(sourceID, targetID)
}

// GraphFinder answers queries against a fixed graph.
type GraphFinder struct {
	Graph   *routing.Graph
	Options []routing.Option
}

// FindPath implements PathFinder.
func (g GraphFinder) FindPath(sourceID, targetID int64) (routing.PathResult, error) {
	return routing.ShortestPath(g.Graph, sourceID, targetID, g.Options...)
}

type endpoint struct {
	id  int64
	set bool
}

// Snapshot is a read-only copy of the machine state.
type Snapshot struct {
	State    State
	StartID  int64
	HasStart bool
	EndID    int64
	HasEnd   bool
	// Path is the highlighted route; nil unless a route was found.
	Path *routing.PathResult
	// NoRoute is set in PathShown when the query resolved without a route.
	NoRoute bool
}

// Machine is the selection state machine.
type Machine struct {
	finder  PathFinder
	start   endpoint
	end     endpoint
	path    *routing.PathResult
	noRoute bool
}

// New returns an Idle machine that computes routes with finder.
func New(finder PathFinder) *Machine {
	return &Machine{finder: finder}
}

// SetFinder replaces the path finder, e.g. after a dataset reload. The
// current state is left untouched.
func (m *Machine) SetFinder(finder PathFinder) {
	m.finder = finder
}

// State returns the current logical state.
func (m *Machine) State() State {
	switch {
	case m.start.set && m.end.set:
		return PathShown
	case m.start.set || m.end.set:
		return StartChosen
	default:
		return Idle
	}
}

// Snapshot copies the current state.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		State:    m.State(),
		StartID:  m.start.id,
		HasStart: m.start.set,
		EndID:    m.end.id,
		HasEnd:   m.end.set,
		NoRoute:  m.noRoute,
	}
	if m.path != nil {
		p := *m.path
		snap.Path = &p
	}
	return snap
}

// Select is the single transition trigger: the user picked vertexID. It
// returns the events the transition produced, in order. A nil slice with a
// nil error means the selection was ignored.
//
// Only routing failures other than a missing route or an unknown vertex are
// returned as errors; in that case the machine keeps its previous state.
func (m *Machine) Select(vertexID int64) ([]Event, error) {
	switch m.State() {
	case Idle:
		m.start = endpoint{id: vertexID, set: true}
		return []Event{m.event(EventStartSelected, vertexID)}, nil

	case StartChosen:
		if m.start.set && m.start.id == vertexID {
			m.start = endpoint{}
			return []Event{m.event(EventStartDeselected, vertexID)}, nil
		}
		if m.end.set && m.end.id == vertexID {
			m.end = endpoint{}
			return []Event{m.event(EventEndDeselected, vertexID)}, nil
		}
		return m.complete(vertexID)

	case PathShown:
		switch vertexID {
		case m.start.id:
			m.start = endpoint{}
			m.clearPath()
			return []Event{m.event(EventStartDeselected, vertexID), m.event(EventPathCleared, vertexID)}, nil
		case m.end.id:
			m.end = endpoint{}
			m.clearPath()
			return []Event{m.event(EventEndDeselected, vertexID), m.event(EventPathCleared, vertexID)}, nil
		default:
			return nil, nil
		}
	}
	return nil, fmt.Errorf("selection: invalid state %d", m.State())
}

// complete fills whichever slot is empty and resolves the query.
func (m *Machine) complete(vertexID int64) ([]Event, error) {
	start, end := m.start, m.end
	selected := EventEndSelected
	if start.set {
		end = endpoint{id: vertexID, set: true}
	} else {
		start = endpoint{id: vertexID, set: true}
		selected = EventStartSelected
	}

	if m.finder == nil {
		return nil, errors.New("selection: no path finder configured")
	}
	res, err := m.finder.FindPath(start.id, end.id)
	if err != nil && !errors.Is(err, routing.ErrNoPath) && !errors.Is(err, routing.ErrUnknownVertex) {
		return nil, err
	}

	m.start, m.end = start, end
	events := []Event{m.event(selected, vertexID)}
	if err != nil {
		m.path = nil
		m.noRoute = true
		ev := m.event(EventNoRoute, vertexID)
		ev.Err = err
		return append(events, ev), nil
	}

	m.path = &res
	m.noRoute = false
	ev := m.event(EventPathFound, vertexID)
	ev.Path = &res
	return append(events, ev), nil
}

// Reset drops both endpoints and any route. It returns a reset event unless
// the machine was already idle.
func (m *Machine) Reset() []Event {
	if m.State() == Idle {
		return nil
	}
	ev := m.event(EventReset, NoVertex)
	m.start, m.end = endpoint{}, endpoint{}
	m.clearPath()
	return []Event{ev}
}

func (m *Machine) clearPath() {
	m.path = nil
	m.noRoute = false
}

func (m *Machine) event(kind EventKind, vertexID int64) Event {
	return Event{
		Kind:     kind,
		VertexID: vertexID,
		StartID:  m.start.id,
		HasStart: m.start.set,
		EndID:    m.end.id,
		HasEnd:   m.end.set,
	}
}
