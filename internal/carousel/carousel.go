// Package carousel coordinates several trace viewers, exposing one as active.
//
// The carousel does not own timers. Navigation returns a Transition which the
// host commits with Settle after SettleDuration, and autoplay is driven by the
// host calling Tick on its own interval. All methods must be called from a
// single event loop.
package carousel

import (
	"time"
)

// Default timings.
const (
	DefaultSettleDuration   = 300 * time.Millisecond
	DefaultAutoplayInterval = 10 * time.Second
)

// Transition is a pending index change.
type Transition struct {
	seq    uint64
	Target int
}

// Carousel is the navigation state over N traces.
type Carousel struct {
	n             int
	active        int
	transitioning bool
	autoPlaying   bool
	seq           uint64
	closed        bool

	// OnChange is called after every committed index change.
	OnChange func(index int)
}

// New returns a carousel over n traces starting at index 0.
func New(n int, autoplay bool) *Carousel {
	if n < 0 {
		n = 0
	}
	return &Carousel{n: n, autoPlaying: autoplay}
}

// Len returns the number of hosted traces.
func (c *Carousel) Len() int { return c.n }

// Active returns the active index.
func (c *Carousel) Active() int { return c.active }

// Transitioning reports whether a transition is waiting to settle.
func (c *Carousel) Transitioning() bool { return c.transitioning }

// AutoPlaying reports whether autoplay is enabled.
func (c *Carousel) AutoPlaying() bool { return c.autoPlaying }

// Next starts a transition to the following trace, wrapping to 0.
func (c *Carousel) Next() (Transition, bool) {
	if c.n == 0 {
		return Transition{}, false
	}
	return c.begin((c.active + 1) % c.n)
}

// Previous starts a transition to the preceding trace, wrapping to the last.
func (c *Carousel) Previous() (Transition, bool) {
	if c.n == 0 {
		return Transition{}, false
	}
	target := c.active - 1
	if target < 0 {
		target = c.n - 1
	}
	return c.begin(target)
}

// GoTo starts a transition to index. Out of range indexes and the active index
// are ignored.
func (c *Carousel) GoTo(index int) (Transition, bool) {
	if index < 0 || index >= c.n || index == c.active {
		return Transition{}, false
	}
	return c.begin(index)
}

func (c *Carousel) begin(target int) (Transition, bool) {
	if c.closed || c.transitioning {
		return Transition{}, false
	}
	c.transitioning = true
	c.seq++
	return Transition{seq: c.seq, Target: target}, true
}

// Settle commits t. A transition that is stale, or issued before Close, is
// ignored. It reports whether the active index changed.
func (c *Carousel) Settle(t Transition) bool {
	if c.closed || !c.transitioning || t.seq != c.seq {
		return false
	}
	c.transitioning = false
	if t.Target < 0 || t.Target >= c.n || t.Target == c.active {
		return false
	}
	c.active = t.Target
	if c.OnChange != nil {
		c.OnChange(c.active)
	}
	return true
}

// Tick handles an autoplay interval. It behaves like Next unless autoplay is
// off, there is at most one trace, or any hosted video is playing.
func (c *Carousel) Tick(anyPlaying bool) (Transition, bool) {
	if !c.autoPlaying || c.n <= 1 || anyPlaying {
		return Transition{}, false
	}
	return c.Next()
}

// ToggleAutoplay flips autoplay and returns the new state. The active index is
// not affected.
func (c *Carousel) ToggleAutoplay() bool {
	c.autoPlaying = !c.autoPlaying
	return c.autoPlaying
}

// Close voids any pending transition. Navigation is ignored afterwards.
func (c *Carousel) Close() {
	c.closed = true
	c.transitioning = false
}

// Key is a navigation input independent of any terminal or browser library.
type Key int

// Keys understood by HandleKey.
const (
	KeyNone Key = iota
	KeyLeft
	KeyRight
	KeySpace
)

// HandleKey maps left and right to Previous and Next, and space to
// ToggleAutoplay. It returns the transition to schedule, if any.
func (c *Carousel) HandleKey(k Key) (Transition, bool) {
	switch k {
	case KeyLeft:
		return c.Previous()
	case KeyRight:
		return c.Next()
	case KeySpace:
		c.ToggleAutoplay()
	}
	return Transition{}, false
}
