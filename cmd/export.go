package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lexilens/internal/logger"
	"lexilens/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export vocabulary and highlights to a Google Sheet",
	Long: `Append every vocabulary and highlight annotation that is not in the
sheet yet, with its next review date, to the GOOGLE_SHEET_WORKSHEET tab of
GOOGLE_SHEET_URL. Rows are matched on the annotation ID column, so running
the export again only adds new annotations.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL`,
	Example: `  lexilens export
  lexilens export --sheet Japanese --dry-run`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("sheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	exportCmd.Flags().Bool("dry-run", false, "Print the rows instead of writing them")
	exportCmd.Flags().Duration("timeout", 2*time.Minute, "Export timeout")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	sheetName, _ := cmd.Flags().GetString("sheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	if sheetName == "" {
		sheetName = cfg.GoogleSheetWorksheet
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	entries, err := st.ListDeck(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("entries", len(entries)).Str("sheet", sheetName).Msg("Exporting deck")

	if dryRun {
		t := newTable(os.Stdout, "Type", "Text", "Definition / Translation", "Next Review", "ID")
		for _, e := range entries {
			row := sheets.BuildRow(e)
			meaning := row.Definition
			if meaning == "" {
				meaning = row.Translation
			}
			t.AppendRow([]interface{}{row.Type, truncate(row.Text, 40), truncate(meaning, 40), row.NextReview, shortID(row.AnnotationID)})
		}
		t.Render()
		return nil
	}

	if err := cfg.RequireSheets(); err != nil {
		return err
	}
	svc, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create sheets service")
		return fmt.Errorf("failed to create sheets service: %w", err)
	}

	written, err := svc.ExportDeck(ctx, entries, sheetName)
	if err != nil {
		return handleServiceError(err, log)
	}
	fmt.Fprintf(os.Stdout, "Exported %d new rows to %q (%d already present)\n", written, sheetName, len(entries)-written)
	return nil
}
