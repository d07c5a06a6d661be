package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"lexilens/internal/gesture"
	"lexilens/internal/logger"
	"lexilens/internal/reader"
)

var gestureCmd = &cobra.Command{
	Use:   "gesture",
	Short: "Inspect gesture classification",
}

var gestureReplayCmd = &cobra.Command{
	Use:   "replay [trace.json]",
	Short: "Classify a recorded pointer trace",
	Long: `Replay a JSON array of pointer events through the gesture classifier and
print the intents it emits. Each event has a type (down, move, up, cancel),
a time "t" in milliseconds, its touch points in container pixels and, for
up events, the number of touches that remain.

With --source the intents are also applied to a reading session of that
source, as the viewer would: taps look up words, long-presses analyze
sentences and swipes turn pages. Page turns then follow the source's own
page count. With --realtime the trace is played with its recorded timing
and long-presses are decided by live timers.`,
	Example: `  lexilens gesture replay swipe.json --width 390 --height 844 --pages 12
  lexilens gesture replay taps.json --source 3f6c...
  lexilens gesture replay hold.json --realtime`,
	Args: cobra.ExactArgs(1),
	RunE: runGestureReplay,
}

func init() {
	rootCmd.AddCommand(gestureCmd)
	gestureCmd.AddCommand(gestureReplayCmd)

	gestureReplayCmd.Flags().Float64("width", 390, "Container width in pixels")
	gestureReplayCmd.Flags().Float64("height", 844, "Container height in pixels")
	gestureReplayCmd.Flags().Int("pages", 1, "Page count, for page turns (ignored with --source)")
	gestureReplayCmd.Flags().Int("page", 1, "Current page")
	gestureReplayCmd.Flags().String("source", "", "Apply the intents to a reading session of this source")
	gestureReplayCmd.Flags().Bool("realtime", false, "Play the trace with its recorded timing on live timers")
}

func runGestureReplay(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("gesture")

	width, _ := cmd.Flags().GetFloat64("width")
	height, _ := cmd.Flags().GetFloat64("height")
	pages, _ := cmd.Flags().GetInt("pages")
	page, _ := cmd.Flags().GetInt("page")
	sourceID, _ := cmd.Flags().GetString("source")
	realtime, _ := cmd.Flags().GetBool("realtime")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	events, err := gesture.ReadTrace(f)
	f.Close()
	if err != nil {
		return err
	}

	timeout := time.Duration(len(events)+1) * cfg.LookupTimeout
	if n := len(events); n > 0 {
		timeout += time.Duration(events[n-1].AtMS) * time.Millisecond
	}
	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	size := gesture.Size{Width: width, Height: height}

	var session *reader.Session
	if sourceID != "" {
		st, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer closeStore(st, log)

		lk, err := newLookupService(cfg, false, log)
		if err != nil {
			return err
		}
		session, err = openSession(ctx, cfg, st, lk, sourceID)
		if err != nil {
			return err
		}
		if page != 1 {
			if err := session.GoToPage(ctx, page); err != nil {
				return err
			}
		}
		// Intents carry positions in container pixels; the session maps them
		// to page percent with the recorded zoom.
		session.Resize(size)
		if n := session.Source().PageCount; n > 0 {
			pages = n
		}
	}

	c := gesture.New(cfg.Gesture, size)
	c.SetPages(page, pages)

	var intents []gesture.Intent
	if realtime {
		intents, err = playLive(ctx, c, events, cfg.Gesture.LongPressDelay)
		if err != nil {
			return err
		}
	} else {
		intents = gesture.Replay(c, events)
	}
	log.Info().Int("events", len(events)).Int("intents", len(intents)).Bool("realtime", realtime).Msg("Trace replayed")

	t := newTable(os.Stdout, "#", "Intent", "X", "Y", "Page", "Scale", "Pan")
	for i, in := range intents {
		t.AppendRow([]interface{}{
			i, in.Kind.String(),
			fmt.Sprintf("%.1f", in.Point.X), fmt.Sprintf("%.1f", in.Point.Y),
			in.Page, fmt.Sprintf("%.2f", in.Zoom.Scale),
			fmt.Sprintf("%.1f,%.1f", in.Zoom.PanX, in.Zoom.PanY),
		})
	}
	t.Render()

	if session == nil {
		return nil
	}
	return applyIntents(ctx, session, intents)
}

// playLive runs the trace through a timer-backed driver and collects the
// intents it emits.
func playLive(ctx context.Context, c *gesture.Classifier, events []gesture.Event, longPress time.Duration) ([]gesture.Intent, error) {
	var (
		mu      sync.Mutex
		intents []gesture.Intent
	)
	d := gesture.NewDriver(c, func(in gesture.Intent) {
		mu.Lock()
		intents = append(intents, in)
		mu.Unlock()
	})
	err := gesture.PlayLive(ctx, d, events, longPress+50*time.Millisecond)
	d.Close()
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]gesture.Intent(nil), intents...), nil
}

func applyIntents(ctx context.Context, session *reader.Session, intents []gesture.Intent) error {
	for _, in := range intents {
		res, err := session.HandleIntent(ctx, in)
		if err != nil {
			return err
		}
		out := gestureOutput(res)
		fmt.Fprintf(os.Stdout, "%-10s page %d", res.Kind, res.Page)
		if out.Text != "" {
			fmt.Fprintf(os.Stdout, "  %s", truncate(out.Text, 60))
		}
		if out.Status != "" {
			fmt.Fprintf(os.Stdout, "  (%s)", out.Status)
		}
		fmt.Fprintln(os.Stdout)
	}
	return nil
}
