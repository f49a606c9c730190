// Package carousel cycles an index over a fixed number of slides on a timer.
package carousel

import (
	"errors"
	"sync"
	"time"

	"card-offer-finder/internal/models"
)

// DefaultInterval is the auto-advance period.
const DefaultInterval = 3 * time.Second

// State of the carousel.
type State string

const (
	StateIdle    State = "idle"    // no slides
	StateSingle  State = "single"  // one slide, no timer
	StateRunning State = "running" // two or more slides, timer armed
)

var ErrIndexOutOfRange = errors.New("carousel: slide index out of range")

// Snapshot is a copy of the carousel position.
type Snapshot struct {
	State        State
	CurrentIndex int
	TotalSlides  int
}

// Carousel holds at most one live timer. Timer ticks and manual jumps both
// go through cancel-then-rearm; each arm bumps a generation counter so a tick
// from a cancelled timer that already fired is ignored.
type Carousel struct {
	mu         sync.Mutex
	interval   time.Duration
	state      State
	current    int
	total      int
	timer      *time.Timer
	generation uint64
	onAdvance  func(Snapshot)
}

// New creates an idle carousel advancing every interval. A non-positive
// interval selects DefaultInterval.
func New(interval time.Duration) *Carousel {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Carousel{interval: interval, state: StateIdle}
}

// OnAdvance registers fn to run after each timer-driven advance. fn runs on
// the timer goroutine without the carousel lock held.
func (c *Carousel) OnAdvance(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAdvance = fn
}

// Start resets the carousel to slideCount slides at index 0, replacing any
// running timer.
func (c *Carousel) Start(slideCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.current = 0
	if slideCount < 0 {
		slideCount = 0
	}
	c.total = slideCount

	switch {
	case slideCount == 0:
		c.state = StateIdle
	case slideCount == 1:
		c.state = StateSingle
	default:
		c.state = StateRunning
		c.armLocked()
	}
}

// Stop cancels the timer and returns to idle.
func (c *Carousel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.state = StateIdle
	c.current = 0
	c.total = 0
}

// Advance moves to the next slide, wrapping around. It leaves the timer alone.
func (c *Carousel) Advance() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.advanceLocked()
	return c.snapshotLocked()
}

// JumpTo shows slide index and restarts the auto-advance countdown.
func (c *Carousel) JumpTo(index int) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= c.total {
		return c.snapshotLocked(), ErrIndexOutOfRange
	}

	c.current = index
	c.cancelLocked()
	if c.state == StateRunning {
		c.armLocked()
	}
	return c.snapshotLocked(), nil
}

// Snapshot returns the current position.
func (c *Carousel) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// TimerActive reports whether an auto-advance timer is armed.
func (c *Carousel) TimerActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Carousel) snapshotLocked() Snapshot {
	return Snapshot{State: c.state, CurrentIndex: c.current, TotalSlides: c.total}
}

func (c *Carousel) advanceLocked() {
	if c.total == 0 {
		return
	}
	c.current = (c.current + 1) % c.total
}

func (c *Carousel) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
}

func (c *Carousel) armLocked() {
	gen := c.generation
	c.timer = time.AfterFunc(c.interval, func() { c.fire(gen) })
}

func (c *Carousel) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	c.advanceLocked()
	c.armLocked()
	snap := c.snapshotLocked()
	fn := c.onAdvance
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// Window is the slide shown in each visual position.
type Window struct {
	Left   int
	Center int
	Right  int
}

// WindowOf returns the left, center and right slides around current. With
// fewer than three slides positions coincide. ok is false without slides.
func WindowOf(current, total int) (w Window, ok bool) {
	if total <= 0 {
		return Window{}, false
	}
	return Window{
		Left:   (current - 1 + total) % total,
		Center: current,
		Right:  (current + 1) % total,
	}, true
}

// RoleOf returns the role of slide. When positions coincide left wins over
// center, and center over right.
func RoleOf(slide, current, total int) models.SlideRole {
	w, ok := WindowOf(current, total)
	switch {
	case !ok:
		return models.RoleHidden
	case slide == w.Left:
		return models.RoleLeft
	case slide == w.Center:
		return models.RoleCenter
	case slide == w.Right:
		return models.RoleRight
	default:
		return models.RoleHidden
	}
}
