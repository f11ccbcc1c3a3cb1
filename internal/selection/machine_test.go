package selection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/mapnav/backend/internal/domain"
	"github.com/vanshika/mapnav/backend/internal/routing"
)

func lineFinder(t *testing.T) GraphFinder {
	t.Helper()
	g, err := routing.Build(
		[]domain.Vertex{{ID: 1}, {ID: 2, X: 1}, {ID: 3, X: 2}, {ID: 4, X: 50}},
		[]domain.Edge{{NodeA: 1, NodeB: 2}, {NodeA: 2, NodeB: 3}},
	)
	require.NoError(t, err)
	return GraphFinder{Graph: g}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestMachine_SelectStartThenEnd(t *testing.T) {
	m := New(lineFinder(t))
	assert.Equal(t, Idle, m.State())

	events, err := m.Select(1)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventStartSelected}, kinds(events))
	assert.Equal(t, StartChosen, m.State())

	events, err = m.Select(3)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventEndSelected, EventPathFound}, kinds(events))
	assert.Equal(t, PathShown, m.State())

	snap := m.Snapshot()
	require.NotNil(t, snap.Path)
	assert.Equal(t, []int64{1, 2, 3}, snap.Path.VertexIDs)
	assert.Equal(t, int64(1), snap.StartID)
	assert.Equal(t, int64(3), snap.EndID)
	assert.False(t, snap.NoRoute)
}

func TestMachine_DeselectStartReturnsToIdle(t *testing.T) {
	m := New(lineFinder(t))
	_, err := m.Select(2)
	require.NoError(t, err)

	events, err := m.Select(2)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventStartDeselected}, kinds(events))
	assert.Equal(t, int64(2), events[0].VertexID)
	assert.False(t, events[0].HasStart)
	assert.Equal(t, Idle, m.State())
}

func TestMachine_RoundTrip(t *testing.T) {
	m := New(lineFinder(t))
	_, err := m.Select(1)
	require.NoError(t, err)
	_, err = m.Select(2)
	require.NoError(t, err)

	events, err := m.Select(1)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventStartDeselected, EventPathCleared}, kinds(events))

	snap := m.Snapshot()
	assert.Equal(t, StartChosen, snap.State)
	assert.False(t, snap.HasStart)
	assert.True(t, snap.HasEnd)
	assert.Equal(t, int64(2), snap.EndID)
	assert.Nil(t, snap.Path)

	events, err = m.Select(3)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventStartSelected, EventPathFound}, kinds(events))

	snap = m.Snapshot()
	assert.Equal(t, PathShown, snap.State)
	assert.Equal(t, int64(3), snap.StartID)
	assert.Equal(t, int64(2), snap.EndID)
	require.NotNil(t, snap.Path)
	assert.Equal(t, []int64{3, 2}, snap.Path.VertexIDs)
}

func TestMachine_DeselectEndKeepsStart(t *testing.T) {
	m := New(lineFinder(t))
	_, _ = m.Select(1)
	_, _ = m.Select(3)

	events, err := m.Select(3)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventEndDeselected, EventPathCleared}, kinds(events))

	snap := m.Snapshot()
	assert.Equal(t, StartChosen, snap.State)
	assert.True(t, snap.HasStart)
	assert.Equal(t, int64(1), snap.StartID)
	assert.False(t, snap.HasEnd)
	assert.Nil(t, snap.Path)

	events, err = m.Select(2)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventEndSelected, EventPathFound}, kinds(events))
	assert.Equal(t, []int64{1, 2}, m.Snapshot().Path.VertexIDs)
}

func TestMachine_OtherSelectionWhilePathShownIsIgnored(t *testing.T) {
	m := New(lineFinder(t))
	_, _ = m.Select(1)
	_, _ = m.Select(3)
	before := m.Snapshot()

	events, err := m.Select(2)
	require.NoError(t, err)
	assert.Nil(t, events)
	assert.Equal(t, before, m.Snapshot())
}

func TestMachine_NoRouteStillAdvances(t *testing.T) {
	m := New(lineFinder(t))
	_, _ = m.Select(1)

	events, err := m.Select(4)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventEndSelected, EventNoRoute}, kinds(events))
	assert.ErrorIs(t, events[1].Err, routing.ErrNoPath)

	snap := m.Snapshot()
	assert.Equal(t, PathShown, snap.State)
	assert.True(t, snap.NoRoute)
	assert.Nil(t, snap.Path)
}

func TestMachine_UnknownVertexStillAdvances(t *testing.T) {
	m := New(lineFinder(t))
	_, _ = m.Select(1)

	events, err := m.Select(404)
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventEndSelected, EventNoRoute}, kinds(events))
	assert.ErrorIs(t, events[1].Err, routing.ErrUnknownVertex)
	assert.Equal(t, PathShown, m.State())
}

func TestMachine_FailureKeepsPreviousState(t *testing.T) {
	broken := PathFinderFunc(func(s, t int64) (routing.PathResult, error) {
		return routing.PathResult{}, fmt.Errorf("%w: test", routing.ErrBrokenChain)
	})
	m := New(broken)
	_, _ = m.Select(1)
	before := m.Snapshot()

	events, err := m.Select(2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, routing.ErrBrokenChain))
	assert.Nil(t, events)
	assert.Equal(t, before, m.Snapshot())
}

func TestMachine_RecomputesFreshPath(t *testing.T) {
	calls := 0
	finder := lineFinder(t)
	counting := PathFinderFunc(func(s, t int64) (routing.PathResult, error) {
		calls++
		return finder.FindPath(s, t)
	})
	m := New(counting)

	_, _ = m.Select(1)
	_, _ = m.Select(2)
	_, _ = m.Select(1)
	_, _ = m.Select(3)

	assert.Equal(t, 2, calls)
	assert.Equal(t, []int64{3, 2}, m.Snapshot().Path.VertexIDs)
}

func TestMachine_Reset(t *testing.T) {
	m := New(lineFinder(t))
	assert.Nil(t, m.Reset())

	_, _ = m.Select(1)
	_, _ = m.Select(3)
	events := m.Reset()
	require.Len(t, events, 1)
	assert.Equal(t, EventReset, events[0].Kind)
	assert.Equal(t, int64(1), events[0].StartID)
	assert.Equal(t, int64(3), events[0].EndID)
	assert.Equal(t, Idle, m.State())
	assert.Nil(t, m.Snapshot().Path)
}

func TestMachine_NoFinder(t *testing.T) {
	m := New(nil)
	_, err := m.Select(1)
	require.NoError(t, err)
	_, err = m.Select(2)
	require.Error(t, err)
	assert.Equal(t, StartChosen, m.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "start_chosen", StartChosen.String())
	assert.Equal(t, "path_shown", PathShown.String())
	assert.Equal(t, "unknown", State(9).String())
}
