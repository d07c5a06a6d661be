package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lexilens/internal/logger"
	"lexilens/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Spaced repetition of highlighted sentences",
}

var reviewDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List review items due today",
	Args:  cobra.NoArgs,
	RunE:  runReviewDue,
}

var reviewGradeCmd = &cobra.Command{
	Use:   "grade [review-id]",
	Short: "Record a review outcome and reschedule the item",
	Example: `  lexilens review grade 9b1d... --correct
  lexilens review grade 9b1d... --correct=false`,
	Args: cobra.ExactArgs(1),
	RunE: runReviewGrade,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewDueCmd)
	reviewCmd.AddCommand(reviewGradeCmd)

	reviewGradeCmd.Flags().Bool("correct", false, "The item was remembered")
	_ = reviewGradeCmd.MarkFlagRequired("correct")
}

func runReviewDue(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("review")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	items, err := review.NewQueue(st).Due(cmd.Context())
	if err != nil {
		return err
	}

	t := newTable(os.Stdout, "Review", "Text", "Due", "Interval", "Ease", "Reps")
	for _, item := range items {
		text := ""
		if a, err := st.GetAnnotation(cmd.Context(), item.AnnotationID); err == nil {
			text = a.SelectedText
		} else {
			log.Warn().Err(err).Str("annotation_id", item.AnnotationID).Msg("Review item without annotation")
		}
		t.AppendRow([]interface{}{
			item.ID, truncate(text, 50), item.NextReviewDate.Format("2006-01-02"),
			fmt.Sprintf("%dd", item.IntervalDays), fmt.Sprintf("%.2f", item.EaseFactor), item.Repetitions,
		})
	}
	t.AppendFooter([]interface{}{"", fmt.Sprintf("%d due", len(items))})
	t.Render()
	return nil
}

func runReviewGrade(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("review")
	correct, _ := cmd.Flags().GetBool("correct")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	item, err := st.GetReview(cmd.Context(), args[0])
	if err != nil {
		return handleServiceError(err, log)
	}
	next, err := review.NewQueue(st).Grade(cmd.Context(), *item, correct)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Next review %s (in %d days, ease %.2f)\n",
		next.NextReviewDate.Format("2006-01-02"), next.IntervalDays, next.EaseFactor)
	return nil
}
