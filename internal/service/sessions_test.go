package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/mapnav/backend/internal/logging"
	"github.com/vanshika/mapnav/backend/internal/routing"
	"github.com/vanshika/mapnav/backend/internal/selection"
)

func kindsOf(events []selection.Event) []selection.EventKind {
	out := make([]selection.EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func newManager(t *testing.T, cfg SessionConfig) (*SessionManager, *MapService, *stubStore) {
	t.Helper()
	svc, store := newLoadedService(t)
	return NewSessionManager(svc, cfg, logging.Discard(), nil), svc, store
}

func TestSessionManager_SelectFlow(t *testing.T) {
	mgr, _, _ := newManager(t, SessionConfig{})
	ctx := context.Background()

	view, err := mgr.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, selection.Idle, view.Selection.State)
	assert.Equal(t, uint64(1), view.Version)

	view, events, err := mgr.Select(ctx, view.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []selection.EventKind{selection.EventStartSelected}, kindsOf(events))

	view, events, err = mgr.Select(ctx, view.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, []selection.EventKind{selection.EventEndSelected, selection.EventPathFound}, kindsOf(events))
	require.NotNil(t, view.Selection.Path)
	assert.Equal(t, []int64{1, 2, 3, 10, 11}, view.Selection.Path.VertexIDs)

	got, err := mgr.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, selection.PathShown, got.Selection.State)
}

func TestSessionManager_NoRoute(t *testing.T) {
	mgr, _, _ := newManager(t, SessionConfig{})
	ctx := context.Background()
	view, _ := mgr.Create(ctx)

	_, _, err := mgr.Select(ctx, view.ID, 1)
	require.NoError(t, err)
	view, events, err := mgr.Select(ctx, view.ID, 20)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, selection.EventNoRoute, events[1].Kind)
	assert.ErrorIs(t, events[1].Err, routing.ErrNoPath)
	assert.True(t, view.Selection.NoRoute)
}

func TestSessionManager_ResetAfterReload(t *testing.T) {
	mgr, svc, _ := newManager(t, SessionConfig{})
	ctx := context.Background()

	view, _ := mgr.Create(ctx)
	_, _, _ = mgr.Select(ctx, view.ID, 1)
	_, _, _ = mgr.Select(ctx, view.ID, 3)

	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	view, events, err := mgr.Select(ctx, view.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []selection.EventKind{selection.EventReset, selection.EventStartSelected}, kindsOf(events))
	assert.Equal(t, uint64(2), view.Version)
	assert.Equal(t, selection.StartChosen, view.Selection.State)
	assert.Equal(t, int64(2), view.Selection.StartID)
}

func TestSessionManager_GetAppliesPendingReset(t *testing.T) {
	mgr, svc, _ := newManager(t, SessionConfig{})
	ctx := context.Background()

	view, _ := mgr.Create(ctx)
	_, _, _ = mgr.Select(ctx, view.ID, 1)
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	got, err := mgr.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, selection.Idle, got.Selection.State)
	assert.Equal(t, uint64(2), got.Version)
}

func TestSessionManager_ExplicitReset(t *testing.T) {
	mgr, _, _ := newManager(t, SessionConfig{})
	ctx := context.Background()

	view, _ := mgr.Create(ctx)
	_, _, _ = mgr.Select(ctx, view.ID, 1)
	view, events, err := mgr.Reset(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, []selection.EventKind{selection.EventReset}, kindsOf(events))
	assert.Equal(t, selection.Idle, view.Selection.State)
}

func TestSessionManager_UnknownSession(t *testing.T) {
	mgr, _, _ := newManager(t, SessionConfig{})
	ctx := context.Background()

	_, _, err := mgr.Select(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = mgr.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, mgr.Delete(ctx, "missing"), ErrSessionNotFound)
}

func TestSessionManager_MaxSessionsAndDelete(t *testing.T) {
	mgr, _, _ := newManager(t, SessionConfig{MaxSessions: 2})
	ctx := context.Background()

	a, err := mgr.Create(ctx)
	require.NoError(t, err)
	_, err = mgr.Create(ctx)
	require.NoError(t, err)
	_, err = mgr.Create(ctx)
	assert.ErrorIs(t, err, ErrTooManySessions)

	require.NoError(t, mgr.Delete(ctx, a.ID))
	assert.Equal(t, 1, mgr.Len())
	_, err = mgr.Create(ctx)
	assert.NoError(t, err)
}

func TestSessionManager_Sweep(t *testing.T) {
	mgr, _, _ := newManager(t, SessionConfig{IdleTTL: time.Minute})
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mgr.WithClock(func() time.Time { return now })

	stale, _ := mgr.Create(ctx)
	now = now.Add(45 * time.Second)
	fresh, _ := mgr.Create(ctx)
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, mgr.Sweep(now))
	_, err := mgr.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = mgr.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestSessionManager_RunStopsOnCancel(t *testing.T) {
	mgr, _, _ := newManager(t, SessionConfig{IdleTTL: time.Nanosecond, SweepInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := mgr.Create(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return mgr.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSessionManager_ConcurrentSessions(t *testing.T) {
	mgr, _, _ := newManager(t, SessionConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := mgr.Create(ctx)
			if !assert.NoError(t, err) {
				return
			}
			_, _, err = mgr.Select(ctx, view.ID, 1)
			assert.NoError(t, err)
			view, _, err = mgr.Select(ctx, view.ID, 11)
			if assert.NoError(t, err) && assert.NotNil(t, view.Selection.Path) {
				assert.InDelta(t, 11.0, view.Selection.Path.TotalDistance, 1e-9)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, mgr.Len())
}
