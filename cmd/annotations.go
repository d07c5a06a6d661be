package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lexilens/internal/annotation"
	"lexilens/internal/logger"
)

var annotationsCmd = &cobra.Command{
	Use:     "annotations",
	Aliases: []string{"ann"},
	Short:   "List and delete saved annotations",
}

var annotationsListCmd = &cobra.Command{
	Use:   "list [source-id]",
	Short: "List the annotations of a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotationsList,
}

var annotationsDeleteCmd = &cobra.Command{
	Use:   "delete [annotation-id]",
	Short: "Delete an annotation and its review item",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotationsDelete,
}

func init() {
	rootCmd.AddCommand(annotationsCmd)
	annotationsCmd.AddCommand(annotationsListCmd)
	annotationsCmd.AddCommand(annotationsDeleteCmd)

	annotationsListCmd.Flags().Int("page", 0, "Only show annotations of this page")
}

func runAnnotationsList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("annotations")
	page, _ := cmd.Flags().GetInt("page")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	list, err := st.ListBySource(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	t := newTable(os.Stdout, "ID", "Type", "Page", "Text", "Analysis", "Created")
	shown := 0
	for _, a := range list {
		hit, ok := annotation.Decode(a)
		if !ok {
			log.Warn().Str("annotation_id", a.ID).Msg("Skipping annotation with unreadable geometry")
			continue
		}
		if page > 0 && hit.Rect.Page != page {
			continue
		}
		kind := "-"
		if hit.HasAnalysis {
			kind = hit.Analysis.Kind.String()
		}
		text := a.SelectedText
		if a.MemoContent != "" {
			text += " [" + a.MemoContent + "]"
		}
		t.AppendRow([]interface{}{a.ID, a.Type, hit.Rect.Page, truncate(text, 50), kind, a.CreatedAt.Local().Format("2006-01-02 15:04")})
		shown++
	}
	t.AppendFooter([]interface{}{"", "", "", fmt.Sprintf("%d annotations", shown)})
	t.Render()
	return nil
}

func runAnnotationsDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("annotations")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return handleServiceError(err, log)
	}
	fmt.Fprintf(os.Stdout, "Deleted %s\n", args[0])
	return nil
}
