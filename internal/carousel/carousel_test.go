package carousel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"card-offer-finder/internal/models"
)

// long enough that the timer never fires during a test
const idleInterval = time.Hour

func TestStart_ThreeAdvancesCycle(t *testing.T) {
	c := New(idleInterval)
	defer c.Stop()

	c.Start(3)
	start := c.Snapshot().CurrentIndex
	require.Equal(t, StateRunning, c.Snapshot().State)
	require.True(t, c.TimerActive())

	require.Equal(t, 1, c.Advance().CurrentIndex)
	require.Equal(t, 2, c.Advance().CurrentIndex)
	require.Equal(t, start, c.Advance().CurrentIndex)
}

func TestStart_ZeroIsIdle(t *testing.T) {
	c := New(idleInterval)
	c.Start(0)

	snap := c.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Zero(t, snap.TotalSlides)
	require.False(t, c.TimerActive())

	// advancing an empty carousel is harmless
	require.Equal(t, 0, c.Advance().CurrentIndex)
}

func TestStart_SingleHasNoTimer(t *testing.T) {
	c := New(idleInterval)
	c.Start(1)

	require.Equal(t, StateSingle, c.Snapshot().State)
	require.False(t, c.TimerActive())
	require.Equal(t, 0, c.Advance().CurrentIndex)
}

func TestStart_ReplacesRunningTimer(t *testing.T) {
	c := New(idleInterval)
	defer c.Stop()

	c.Start(3)
	c.Advance()
	c.Start(2)
	require.Equal(t, 0, c.Snapshot().CurrentIndex)
	require.Equal(t, 2, c.Snapshot().TotalSlides)

	c.Start(0)
	require.False(t, c.TimerActive())
}

func TestJumpTo(t *testing.T) {
	c := New(idleInterval)
	defer c.Stop()
	c.Start(3)

	snap, err := c.JumpTo(2)
	require.NoError(t, err)
	require.Equal(t, 2, snap.CurrentIndex)
	require.True(t, c.TimerActive())

	_, err = c.JumpTo(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = c.JumpTo(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	require.Equal(t, 2, c.Snapshot().CurrentIndex)
}

func TestJumpTo_SingleKeepsNoTimer(t *testing.T) {
	c := New(idleInterval)
	c.Start(1)

	_, err := c.JumpTo(0)
	require.NoError(t, err)
	require.False(t, c.TimerActive())
}

func TestStop(t *testing.T) {
	c := New(idleInterval)
	c.Start(3)
	c.Advance()
	c.Stop()

	require.Equal(t, Snapshot{State: StateIdle}, c.Snapshot())
	require.False(t, c.TimerActive())
}

func TestTimerAdvances(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Stop()

	var ticks atomic.Int32
	c.OnAdvance(func(Snapshot) { ticks.Add(1) })
	c.Start(3)

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, c.TimerActive())
}

func TestTimerDoesNotFireAfterStop(t *testing.T) {
	c := New(5 * time.Millisecond)

	var ticks atomic.Int32
	c.OnAdvance(func(Snapshot) { ticks.Add(1) })
	c.Start(3)
	c.Stop()

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, ticks.Load())
	require.Equal(t, 0, c.Snapshot().CurrentIndex)
}

func TestNew_DefaultInterval(t *testing.T) {
	require.Equal(t, DefaultInterval, New(0).interval)
}

func TestWindowOf(t *testing.T) {
	w, ok := WindowOf(0, 5)
	require.True(t, ok)
	require.Equal(t, Window{Left: 4, Center: 0, Right: 1}, w)

	w, _ = WindowOf(4, 5)
	require.Equal(t, Window{Left: 3, Center: 4, Right: 0}, w)

	_, ok = WindowOf(0, 0)
	require.False(t, ok)
}

func TestRoleOf(t *testing.T) {
	roles := func(current, total int) []models.SlideRole {
		var out []models.SlideRole
		for i := 0; i < total; i++ {
			out = append(out, RoleOf(i, current, total))
		}
		return out
	}

	require.Equal(t, []models.SlideRole{models.RoleCenter, models.RoleRight, models.RoleHidden, models.RoleLeft}, roles(0, 4))
	require.Equal(t, []models.SlideRole{models.RoleLeft, models.RoleCenter, models.RoleRight}, roles(1, 3))
	// two slides: the other slide is both left and right
	require.Equal(t, []models.SlideRole{models.RoleCenter, models.RoleLeft}, roles(0, 2))
	// one slide: left, center and right all point at it
	require.Equal(t, []models.SlideRole{models.RoleLeft}, roles(0, 1))
	require.Equal(t, models.RoleHidden, RoleOf(0, 0, 0))
}
