// Package gesture classifies raw pointer and touch events on the page
// viewer into reader intents. The Classifier is a pure state machine:
// callers pass timestamps in and schedule the long-press timer it asks
// for. Driver wires it to real timers for a live event source, such as an
// embedding viewer or PlayLive.
package gesture

import (
	"fmt"
	"time"
)

// State is the classifier's position in a gesture.
type State int

const (
	Idle State = iota
	Pressed
	LongPressed
	Moving
	Pinching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case LongPressed:
		return "long-pressed"
	case Moving:
		return "moving"
	case Pinching:
		return "pinching"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Kind identifies an emitted intent.
type Kind int

const (
	Tap Kind = iota + 1
	LongPress
	DoubleTap
	PageTurn
	Shake
	ZoomChanged
)

func (k Kind) String() string {
	switch k {
	case Tap:
		return "tap"
	case LongPress:
		return "long-press"
	case DoubleTap:
		return "double-tap"
	case PageTurn:
		return "page-turn"
	case Shake:
		return "shake"
	case ZoomChanged:
		return "zoom"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Intent is a classified gesture.
type Intent struct {
	Kind Kind `json:"kind"`
	// Point is where a tap, long-press or double-tap happened.
	Point Point `json:"point"`
	// Delta is -1 for the previous page and +1 for the next.
	// Shake carries the direction that was refused.
	Delta int `json:"delta,omitempty"`
	// Page is the page after a PageTurn.
	Page int  `json:"page,omitempty"`
	Zoom Zoom `json:"zoom"`
}

// TimerCommand tells the caller what to do with the long-press timer.
type TimerCommand int

const (
	TimerKeep TimerCommand = iota
	TimerStart
	TimerCancel
)

// Output is the result of feeding one event to the classifier.
type Output struct {
	Intents  []Intent
	Timer    TimerCommand
	Deadline time.Time
}

type tapRecord struct {
	at    time.Time
	point Point
}

type pinchStart struct {
	distance float64
	scale    float64
	mid      Point
	panX     float64
	panY     float64
}

// Classifier turns pointer events into intents. It is not safe for
// concurrent use.
type Classifier struct {
	cfg       Config
	size      Size
	page      int
	pageCount int

	state   State
	start   time.Time
	origin  Point
	last    Point
	panX    float64
	panY    float64
	pinch   pinchStart
	zoom    Zoom
	lastTap *tapRecord
}

// New returns a classifier for a container of the given size.
func New(cfg Config, size Size) *Classifier {
	return &Classifier{cfg: cfg, size: size, zoom: Identity(), page: 1, pageCount: 1}
}

// SetPages tells the classifier the current page (1-based) and the page
// count so swipes at the ends become Shake.
func (c *Classifier) SetPages(current, count int) {
	c.page, c.pageCount = current, count
}

// Page returns the current page.
func (c *Classifier) Page() int { return c.page }

// Resize updates the container size and re-clamps the pan.
func (c *Classifier) Resize(size Size) {
	c.size = size
	c.zoom = c.zoom.clampPan(size)
}

// State returns the current state.
func (c *Classifier) State() State { return c.state }

// Zoom returns the current view transform.
func (c *Classifier) Zoom() Zoom { return c.zoom }

// Size returns the container size.
func (c *Classifier) Size() Size { return c.size }

// ResetZoom returns the view to scale 1 with no pan.
func (c *Classifier) ResetZoom() { c.zoom = Identity() }

// Down handles a pointer or touch start. touches holds every active
// contact, including the new one.
func (c *Classifier) Down(at time.Time, touches []Point) Output {
	if len(touches) == 0 {
		return Output{}
	}
	if len(touches) >= 2 {
		c.startPinch(touches[0], touches[1])
		return Output{Timer: TimerCancel}
	}
	if c.state == Pinching {
		// A finger left over from a pinch does not start a new gesture.
		return Output{}
	}
	c.state = Pressed
	c.start = at
	c.origin = touches[0]
	c.last = touches[0]
	c.panX, c.panY = c.zoom.PanX, c.zoom.PanY
	return Output{Timer: TimerStart, Deadline: at.Add(c.cfg.LongPressDelay)}
}

// Move handles pointer or touch movement.
func (c *Classifier) Move(at time.Time, touches []Point) Output {
	if len(touches) == 0 {
		return Output{}
	}
	switch c.state {
	case Pinching:
		if len(touches) < 2 {
			return Output{}
		}
		return c.updatePinch(touches[0], touches[1])
	case Pressed:
		c.last = touches[0]
		if distance(c.origin, touches[0]) <= c.cfg.MoveTolerance {
			return Output{}
		}
		c.state = Moving
		out := c.pan()
		out.Timer = TimerCancel
		return out
	case Moving:
		c.last = touches[0]
		return c.pan()
	}
	return Output{}
}

// Up handles a pointer or touch end. released is the lifted contact and
// remaining the number of contacts still down.
func (c *Classifier) Up(at time.Time, released Point, remaining int) Output {
	switch c.state {
	case Pinching:
		if remaining == 0 {
			c.state = Idle
		}
		return Output{}
	case LongPressed:
		c.state = Idle
		return Output{}
	case Pressed:
		c.last = released
		if distance(c.origin, released) > c.cfg.MoveTolerance {
			c.state = Moving
			return c.finishMove(at)
		}
		c.state = Idle
		out := Output{Timer: TimerCancel}
		if at.Sub(c.start) >= c.cfg.LongPressDelay {
			c.lastTap = nil
			out.Intents = append(out.Intents, Intent{Kind: LongPress, Point: c.origin, Zoom: c.zoom})
			return out
		}
		out.Intents = append(out.Intents, c.tap(at))
		return out
	case Moving:
		c.last = released
		return c.finishMove(at)
	}
	return Output{}
}

// Cancel abandons the current gesture.
func (c *Classifier) Cancel() Output {
	c.state = Idle
	return Output{Timer: TimerCancel}
}

// Fire handles the long-press timer. Stale timers are ignored.
func (c *Classifier) Fire(at time.Time) Output {
	if c.state != Pressed || at.Sub(c.start) < c.cfg.LongPressDelay {
		return Output{}
	}
	c.state = LongPressed
	c.lastTap = nil
	return Output{Intents: []Intent{{Kind: LongPress, Point: c.origin, Zoom: c.zoom}}}
}

func (c *Classifier) tap(at time.Time) Intent {
	if prev := c.lastTap; prev != nil &&
		at.Sub(prev.at) <= c.cfg.DoubleTapWindow &&
		distance(prev.point, c.origin) <= c.cfg.DoubleTapDistance {
		c.lastTap = nil
		c.zoom = Identity()
		return Intent{Kind: DoubleTap, Point: c.origin, Zoom: c.zoom}
	}
	c.lastTap = &tapRecord{at: at, point: c.origin}
	return Intent{Kind: Tap, Point: c.origin, Zoom: c.zoom}
}

func (c *Classifier) pan() Output {
	if !c.zoom.Zoomed() {
		return Output{}
	}
	c.zoom.PanX = c.panX + c.last.X - c.origin.X
	c.zoom.PanY = c.panY + c.last.Y - c.origin.Y
	c.zoom = c.zoom.clampPan(c.size)
	return Output{Intents: []Intent{{Kind: ZoomChanged, Zoom: c.zoom}}}
}

func (c *Classifier) finishMove(at time.Time) Output {
	c.state = Idle
	c.lastTap = nil
	out := Output{Timer: TimerCancel}
	if c.zoom.Zoomed() || at.Sub(c.start) >= c.cfg.SwipeMaxDuration {
		return out
	}
	dx := c.last.X - c.origin.X
	dy := c.last.Y - c.origin.Y
	if abs(dy) <= c.cfg.SwipeMinDistance || abs(dy) <= abs(dx) {
		return out
	}
	delta := 1
	if dy > 0 {
		delta = -1
	}
	target := c.page + delta
	if target < 1 || target > c.pageCount {
		out.Intents = append(out.Intents, Intent{Kind: Shake, Delta: delta, Page: c.page, Zoom: c.zoom})
		return out
	}
	c.page = target
	out.Intents = append(out.Intents, Intent{Kind: PageTurn, Delta: delta, Page: target, Zoom: c.zoom})
	return out
}

func (c *Classifier) startPinch(a, b Point) {
	c.state = Pinching
	c.lastTap = nil
	mid := midpoint(a, b)
	d := distance(a, b)
	if d == 0 {
		d = 1
	}
	c.pinch = pinchStart{distance: d, scale: c.zoom.Scale, mid: mid, panX: c.zoom.PanX, panY: c.zoom.PanY}
	if c.size.Width > 0 && c.size.Height > 0 {
		c.zoom.OriginX = mid.X / c.size.Width * 100
		c.zoom.OriginY = mid.Y / c.size.Height * 100
	}
}

func (c *Classifier) updatePinch(a, b Point) Output {
	scale := distance(a, b) / c.pinch.distance * c.pinch.scale
	c.zoom.Scale = clamp(scale, c.cfg.MinScale, c.cfg.MaxScale)
	if c.zoom.Scale <= 1 {
		c.zoom.PanX, c.zoom.PanY = 0, 0
	} else {
		mid := midpoint(a, b)
		c.zoom.PanX = c.pinch.panX + mid.X - c.pinch.mid.X
		c.zoom.PanY = c.pinch.panY + mid.Y - c.pinch.mid.Y
		c.zoom = c.zoom.clampPan(c.size)
	}
	return Output{Intents: []Intent{{Kind: ZoomChanged, Zoom: c.zoom}}}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
