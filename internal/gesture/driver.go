package gesture

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lexilens/internal/logger"
)

// Driver feeds live events to a Classifier and owns its long-press timer.
// Intents are delivered to emit outside the driver's lock, so emit may
// call back into the driver.
type Driver struct {
	mu    sync.Mutex
	c     *Classifier
	timer *time.Timer
	gen   uint64
	now   func() time.Time
	emit  func(Intent)
	log   zerolog.Logger
}

// NewDriver returns a driver around c that reports intents to emit.
func NewDriver(c *Classifier, emit func(Intent)) *Driver {
	return &Driver{c: c, now: time.Now, emit: emit, log: logger.WithComponent("gesture")}
}

// Down forwards a pointer start.
func (d *Driver) Down(touches ...Point) {
	d.run(func(at time.Time) Output { return d.c.Down(at, touches) })
}

// Move forwards pointer movement.
func (d *Driver) Move(touches ...Point) {
	d.run(func(at time.Time) Output { return d.c.Move(at, touches) })
}

// Up forwards a pointer end.
func (d *Driver) Up(released Point, remaining int) {
	d.run(func(at time.Time) Output { return d.c.Up(at, released, remaining) })
}

// Cancel abandons the gesture in progress.
func (d *Driver) Cancel() {
	d.run(func(time.Time) Output { return d.c.Cancel() })
}

// SetPages forwards the page position to the classifier.
func (d *Driver) SetPages(current, count int) {
	d.mu.Lock()
	d.c.SetPages(current, count)
	d.mu.Unlock()
}

// Close stops any pending timer.
func (d *Driver) Close() {
	d.mu.Lock()
	d.stopTimer()
	d.mu.Unlock()
}

func (d *Driver) run(step func(at time.Time) Output) {
	d.mu.Lock()
	before := d.c.State()
	out := step(d.now())
	d.applyTimer(out)
	after := d.c.State()
	d.mu.Unlock()

	if before != after {
		d.log.Trace().Stringer("from", before).Stringer("to", after).Msg("gesture state")
	}
	d.deliver(out.Intents)
}

func (d *Driver) applyTimer(out Output) {
	switch out.Timer {
	case TimerStart:
		d.stopTimer()
		gen := d.gen
		d.timer = time.AfterFunc(time.Until(out.Deadline), func() { d.fire(gen) })
	case TimerCancel:
		d.stopTimer()
	}
}

func (d *Driver) stopTimer() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Driver) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	out := d.c.Fire(d.now())
	d.mu.Unlock()
	d.deliver(out.Intents)
}

func (d *Driver) deliver(intents []Intent) {
	for _, in := range intents {
		d.log.Debug().Stringer("intent", in.Kind).Float64("x", in.Point.X).Float64("y", in.Point.Y).Msg("gesture classified")
		if d.emit != nil {
			d.emit(in)
		}
	}
}
