package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lexilens/internal/annotation"
	"lexilens/internal/config"
	"lexilens/internal/gesture"
	"lexilens/internal/logger"
	"lexilens/internal/reader"
	"lexilens/internal/sentence"
	"lexilens/internal/store"
	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

var sentenceCmd = &cobra.Command{
	Use:   "sentence [source-id]",
	Short: "Reconstruct the sentence around a word of a page",
	Long: `Find the sentence containing a word using the page geometry only, and
print its text and the selection geometry that would be stored for it.

The word is given by its index in the page (see "lexilens ocr") or by a point
in page percent.`,
	Example: `  lexilens sentence 3f6c... --page 2 --word 17
  lexilens sentence 3f6c... --page 2 --x 41.5 --y 30.2`,
	Args: cobra.ExactArgs(1),
	RunE: runSentence,
}

var tapCmd = &cobra.Command{
	Use:   "tap [source-id]",
	Short: "Look up the word at a point of a page",
	Long: `Simulate a tap at a point given in page percent. A saved vocabulary
annotation under the point is shown; otherwise the word is looked up.
With --save the lookup is stored as a vocabulary annotation.`,
	Example: `  lexilens tap 3f6c... --page 1 --x 20 --y 11 --save`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGesture(cmd, args, gesture.Tap)
	},
}

var pressCmd = &cobra.Command{
	Use:   "press [source-id]",
	Short: "Analyze the sentence at a point of a page",
	Long: `Simulate a long-press at a point given in page percent. A saved
annotation under the point is shown; otherwise the enclosing sentence is
reconstructed and its grammar analyzed. With --save the analysis is stored
as a highlight and scheduled for review. With --memo a memo is stored.`,
	Example: `  lexilens press 3f6c... --page 1 --x 20 --y 11 --save
  lexilens press 3f6c... --page 1 --x 20 --y 11 --memo "ask about this"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGesture(cmd, args, gesture.LongPress)
	},
}

func init() {
	rootCmd.AddCommand(sentenceCmd)
	rootCmd.AddCommand(tapCmd)
	rootCmd.AddCommand(pressCmd)

	sentenceCmd.Flags().Int("page", 1, "Page number (1-based)")
	sentenceCmd.Flags().Int("word", -1, "Word index on the page")
	sentenceCmd.Flags().Float64("x", -1, "Horizontal position in page percent")
	sentenceCmd.Flags().Float64("y", -1, "Vertical position in page percent")

	for _, c := range []*cobra.Command{tapCmd, pressCmd} {
		c.Flags().Int("page", 1, "Page number (1-based)")
		c.Flags().Float64("x", 0, "Horizontal position in page percent")
		c.Flags().Float64("y", 0, "Vertical position in page percent")
		c.Flags().Bool("save", false, "Store the result as an annotation")
		c.Flags().String("memo", "", "Store a memo over the selection")
		c.Flags().Bool("json", false, "Output as JSON")
		_ = c.MarkFlagRequired("x")
		_ = c.MarkFlagRequired("y")
	}
}

func runSentence(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sentence")

	pageNum, _ := cmd.Flags().GetInt("page")
	wordIdx, _ := cmd.Flags().GetInt("word")
	x, _ := cmd.Flags().GetFloat64("x")
	y, _ := cmd.Flags().GetFloat64("y")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	page, err := st.GetPage(cmd.Context(), args[0], pageNum)
	if err != nil {
		return err
	}

	if wordIdx < 0 {
		idx, ok := annotation.WordAt(page.Words, x, y)
		if !ok {
			return fmt.Errorf("no word at %.2f,%.2f on page %d", x, y, pageNum)
		}
		wordIdx = idx
	}
	if wordIdx >= len(page.Words) {
		return fmt.Errorf("page %d has %d words", pageNum, len(page.Words))
	}

	target := page.Words[wordIdx]
	var rect annotation.SelectionRect
	text := target.Text
	if s := sentence.FindSentenceAt(page.Words, wordIdx); s != nil {
		rect = annotation.BuildFromSentence(*s, pageNum)
		text = s.Text
	} else {
		log.Info().Str("word", target.Text).Msg("No sentence found, using the word alone")
		rect = annotation.BuildFromWord(target, pageNum)
	}

	th := sentence.AdaptiveThresholds(page.Words, wordIdx)
	log.Debug().
		Float64("h_threshold", th.Horizontal).
		Float64("v_threshold", th.Vertical).
		Msg("Adaptive thresholds")

	encoded, err := rect.Encode()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, text)
	fmt.Fprintln(os.Stdout, encoded)
	return nil
}

// GestureOutput represents the JSON output of tap and press.
type GestureOutput struct {
	Kind       string                   `json:"kind"`
	Text       string                   `json:"text,omitempty"`
	Selection  annotation.SelectionRect `json:"selection"`
	Placement  string                   `json:"placement,omitempty"`
	Status     string                   `json:"status,omitempty"`
	Result     interface{}              `json:"result,omitempty"`
	Annotation string                   `json:"annotation_id,omitempty"`
}

func runGesture(cmd *cobra.Command, args []string, kind gesture.Kind) error {
	log := logger.WithComponent("reader")

	pageNum, _ := cmd.Flags().GetInt("page")
	x, _ := cmd.Flags().GetFloat64("x")
	y, _ := cmd.Flags().GetFloat64("y")
	save, _ := cmd.Flags().GetBool("save")
	memo, _ := cmd.Flags().GetString("memo")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	ctx, cancel := createContextWithTimeout(cfg.LookupTimeout+cfg.ReconcileTimeout+5*time.Second, log)
	defer cancel()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	lk, err := newLookupService(cfg, false, log)
	if err != nil {
		return err
	}

	session, err := openSession(ctx, cfg, st, lk, args[0])
	if err != nil {
		return err
	}
	if pageNum != 1 {
		if err := session.GoToPage(ctx, pageNum); err != nil {
			return err
		}
	}

	res, err := session.HandleIntent(ctx, gesture.Intent{
		Kind:  kind,
		Point: gesture.Point{X: x, Y: y},
		Zoom:  gesture.Identity(),
	})
	if err != nil {
		return err
	}
	if res.Kind == reader.ResultNone {
		return fmt.Errorf("no word at %.2f,%.2f on page %d", x, y, pageNum)
	}

	out := gestureOutput(res)
	if save || memo != "" {
		id, err := saveResult(ctx, session, res, memo, log)
		if err != nil {
			return err
		}
		out.Annotation = id
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printGestureOutput(os.Stdout, out, res)
	return nil
}

func openSession(ctx context.Context, cfg *config.Config, st *store.Store, lk services.LookupService, sourceID string) (*reader.Session, error) {
	src, err := st.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return reader.Open(ctx, *src, st, st, lk, reader.Options{
		LookupTimeout:    cfg.LookupTimeout,
		ReconcileTimeout: cfg.ReconcileTimeout,
	})
}

func gestureOutput(res *reader.Result) GestureOutput {
	out := GestureOutput{
		Kind:      res.Kind.String(),
		Text:      res.Text(),
		Selection: res.Selection,
		Placement: string(res.Placement),
		Status:    res.Status,
	}
	switch {
	case res.Hit != nil:
		out.Result = res.Hit.Annotation
		if res.Hit.HasAnalysis {
			out.Result = analysisPayload(res.Hit.Analysis)
		}
	case res.Lookup != nil:
		out.Result = res.Lookup
	case res.Grammar != nil:
		out.Result = res.Grammar
	}
	return out
}

func analysisPayload(a annotation.Analysis) interface{} {
	switch a.Kind {
	case annotation.KindVocabulary:
		return a.Vocabulary
	case annotation.KindGrammar:
		return a.Grammar
	case annotation.KindDefinition:
		return a.Definition
	}
	return nil
}

// saveResult stores res and waits for the store to confirm it.
func saveResult(ctx context.Context, session *reader.Session, res *reader.Result, memo string, log zerolog.Logger) (string, error) {
	if res.Kind == reader.ResultExisting {
		return "", fmt.Errorf("an annotation is already saved here (%s)", res.Hit.Annotation.ID)
	}

	var (
		local *models.Annotation
		err   error
	)
	if memo != "" {
		local, err = session.SaveMemo(ctx, res, memo)
	} else {
		local, err = session.Save(ctx, res)
	}
	if err != nil {
		return "", err
	}
	session.Wait()

	for _, a := range session.Annotations() {
		if a.ClientKey == local.ClientKey && !a.Pending {
			log.Info().Str("annotation_id", a.ID).Msg("Annotation stored")
			return a.ID, nil
		}
	}
	return "", errors.New(reader.StatusSaveFailed)
}

func printGestureOutput(w io.Writer, out GestureOutput, res *reader.Result) {
	fmt.Fprintf(w, "%s: %s\n", out.Kind, out.Text)
	if out.Status != "" {
		fmt.Fprintf(w, "  %s\n", out.Status)
	}
	switch {
	case res.Hit != nil:
		fmt.Fprintf(w, "  saved %s annotation %s\n", res.Hit.Annotation.Type, res.Hit.Annotation.ID)
		if res.Hit.HasAnalysis {
			printAnalysis(w, res.Hit.Analysis)
		}
	case res.Lookup != nil:
		if res.Lookup.Phonetic != "" {
			fmt.Fprintf(w, "  %s\n", res.Lookup.Phonetic)
		}
		if res.Lookup.Definition != "" {
			fmt.Fprintf(w, "  %s\n", res.Lookup.Definition)
		}
	case res.Grammar != nil:
		if res.Grammar.Translation != "" {
			fmt.Fprintf(w, "  %s\n", res.Grammar.Translation)
		}
		t := newTable(w, "Words", "Type", "Explanation")
		for _, p := range res.Grammar.Patterns {
			t.AppendRow([]interface{}{strings.Join(p.Words, " "), p.Type, truncate(p.Explanation, 60)})
		}
		t.Render()
	}
	if out.Annotation != "" {
		fmt.Fprintf(w, "  saved as %s\n", out.Annotation)
	}
}

func printAnalysis(w io.Writer, a annotation.Analysis) {
	switch a.Kind {
	case annotation.KindVocabulary:
		fmt.Fprintf(w, "  %s %s\n  %s\n", a.Vocabulary.Word, a.Vocabulary.Phonetic, a.Vocabulary.Definition)
	case annotation.KindDefinition:
		fmt.Fprintf(w, "  %s\n", a.Definition.Definition)
	case annotation.KindGrammar:
		fmt.Fprintf(w, "  %s\n", a.Grammar.Translation)
		for _, p := range a.Grammar.Patterns {
			fmt.Fprintf(w, "  - %s (%s): %s\n", strings.Join(p.Words, " "), p.Type, p.Explanation)
		}
	}
}
