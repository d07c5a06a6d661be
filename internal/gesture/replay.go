package gesture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// EventType names a recorded pointer event.
type EventType string

const (
	EventDown   EventType = "down"
	EventMove   EventType = "move"
	EventUp     EventType = "up"
	EventCancel EventType = "cancel"
)

// Event is one entry of a recorded gesture trace. For up events the first
// touch is the released contact.
type Event struct {
	Type      EventType `json:"type"`
	AtMS      int64     `json:"t"`
	Touches   []Point   `json:"touches,omitempty"`
	Remaining int       `json:"remaining,omitempty"`
}

// ReadTrace decodes a JSON array of events.
func ReadTrace(r io.Reader) ([]Event, error) {
	var events []Event
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	for i, ev := range events {
		switch ev.Type {
		case EventDown, EventMove:
			if len(ev.Touches) == 0 {
				return nil, fmt.Errorf("event %d: %s without touches", i, ev.Type)
			}
		case EventUp:
			if len(ev.Touches) == 0 {
				return nil, fmt.Errorf("event %d: up without released point", i)
			}
		case EventCancel:
		default:
			return nil, fmt.Errorf("event %d: unknown type %q", i, ev.Type)
		}
		if i > 0 && ev.AtMS < events[i-1].AtMS {
			return nil, fmt.Errorf("event %d: timestamps go backwards", i)
		}
	}
	return events, nil
}

// Replay runs a trace through c on a synthetic clock, firing the
// long-press timer whenever its deadline passes between events.
func Replay(c *Classifier, events []Event) []Intent {
	base := time.Unix(0, 0)
	var (
		intents  []Intent
		deadline time.Time
		pending  bool
	)
	apply := func(out Output) {
		switch out.Timer {
		case TimerStart:
			deadline, pending = out.Deadline, true
		case TimerCancel:
			pending = false
		}
		intents = append(intents, out.Intents...)
	}

	for _, ev := range events {
		at := base.Add(time.Duration(ev.AtMS) * time.Millisecond)
		if pending && !deadline.After(at) {
			pending = false
			apply(c.Fire(deadline))
		}
		switch ev.Type {
		case EventDown:
			apply(c.Down(at, ev.Touches))
		case EventMove:
			apply(c.Move(at, ev.Touches))
		case EventUp:
			apply(c.Up(at, ev.Touches[0], ev.Remaining))
		case EventCancel:
			apply(c.Cancel())
		}
	}
	if pending {
		apply(c.Fire(deadline))
	}
	return intents
}

// PlayLive feeds a trace to d with its recorded timing, so the driver's own
// timer decides long-presses. After the last event it waits tail for a
// pending timer to fire.
func PlayLive(ctx context.Context, d *Driver, events []Event, tail time.Duration) error {
	start := time.Now()
	for _, ev := range events {
		if err := sleepUntil(ctx, start.Add(time.Duration(ev.AtMS)*time.Millisecond)); err != nil {
			d.Cancel()
			return err
		}
		switch ev.Type {
		case EventDown:
			d.Down(ev.Touches...)
		case EventMove:
			d.Move(ev.Touches...)
		case EventUp:
			d.Up(ev.Touches[0], ev.Remaining)
		case EventCancel:
			d.Cancel()
		}
	}
	return sleepUntil(ctx, time.Now().Add(tail))
}

func sleepUntil(ctx context.Context, at time.Time) error {
	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
