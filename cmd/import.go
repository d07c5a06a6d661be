package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lexilens/internal/ingest"
	"lexilens/internal/logger"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a screenshot or PDF as a new source",
	Long: `Recognize the words of an image or PDF and store them as a new source.

Images become a one-page source. PDFs are sent whole to Document AI when
OCR_BACKEND=documentai; otherwise every page is rendered at IMPORT_DPI and
recognized with Cloud Vision, IMPORT_WORKERS pages at a time.`,
	Example: `  lexilens import chapter1.pdf --title "Chapter 1"
  lexilens import screenshot.png`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List imported sources",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(sourcesCmd)

	importCmd.Flags().String("title", "", "Source title (default: file name)")
	importCmd.Flags().Duration("timeout", 10*time.Minute, "Processing timeout")
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")

	title, _ := cmd.Flags().GetString("title")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	if _, err := validateInputFile(args[0], log); err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	backend, err := newOCRBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := backend.close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR client")
		}
	}()

	importer := ingest.NewImporter(st, backend.images, backend.docs, ingest.Options{
		DPI:     cfg.ImportDPI,
		Workers: cfg.ImportWorkers,
	})
	src, err := importer.Import(ctx, args[0], title)
	if err != nil {
		return handleServiceError(err, log)
	}

	fmt.Fprintf(os.Stdout, "Imported %q as %s (%s, %d pages)\n", src.Title, src.ID, src.Kind, src.PageCount)
	return nil
}

func runSources(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sources")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	sources, err := st.ListSources(cmd.Context())
	if err != nil {
		return err
	}

	t := newTable(os.Stdout, "ID", "Title", "Kind", "Pages", "Imported")
	for _, s := range sources {
		t.AppendRow([]interface{}{s.ID, truncate(s.Title, 40), s.Kind, s.PageCount, s.CreatedAt.Local().Format("2006-01-02 15:04")})
	}
	t.Render()
	return nil
}
