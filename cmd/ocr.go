package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lexilens/internal/logger"
	"lexilens/internal/ocr"
	"lexilens/pkg/models"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image-file]",
	Short: "Recognize the positioned words of a page image",
	Long: `Run OCR on a single page image and print every word with its bounding
box in percent of the page.

The backend is chosen by OCR_BACKEND (vision or documentai).

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID - for the documentai backend`,
	Example: `  # Print the words of a screenshot as a table
  lexilens ocr page.png

  # Save words as JSON
  lexilens ocr page.png --json -o words.json

  # The file holds a base64 image or data URL instead of raw bytes
  lexilens ocr capture.txt --base64`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	FileName           string           `json:"file_name"`
	FileSize           int64            `json:"file_size"`
	Width              int              `json:"width,omitempty"`
	Height             int              `json:"height,omitempty"`
	Words              []models.OcrWord `json:"words"`
	ProcessedAt        time.Time        `json:"processed_at"`
	ProcessingDuration string           `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Bool("base64", false, "Input file contains a base64 image or data URL")
	ocrCmd.Flags().Duration("timeout", 2*time.Minute, "Processing timeout")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	isBase64, _ := cmd.Flags().GetBool("base64")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	path := args[0]
	fileInfo, err := validateInputFile(path, log)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	backend, err := newOCRBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := backend.close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR client")
		}
	}()

	log.Info().
		Str("file", path).
		Int64("size", fileInfo.Size()).
		Str("backend", cfg.OCRBackend).
		Msg("Starting OCR processing")

	start := time.Now()
	var page *models.SourcePage
	if isBase64 {
		var words []models.OcrWord
		words, err = ocr.ExtractFromBase64(ctx, backend.images, string(data))
		page = &models.SourcePage{Page: 1, Words: words}
	} else {
		page, err = backend.images.ExtractWords(ctx, data)
	}
	if err != nil {
		return handleServiceError(err, log)
	}

	log.Info().
		Int("words", len(page.Words)).
		Dur("duration", time.Since(start)).
		Msg("OCR processing completed successfully")

	out := OCROutput{
		FileName:           filepath.Base(fileInfo.Name()),
		FileSize:           fileInfo.Size(),
		Width:              page.Width,
		Height:             page.Height,
		Words:              page.Words,
		ProcessedAt:        time.Now(),
		ProcessingDuration: time.Since(start).String(),
	}
	return writeOutput(outputPath, log, func(w io.Writer) error {
		if jsonOutput {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		t := newTable(w, "#", "Text", "Conf", "X", "Y", "W", "H")
		for i, word := range page.Words {
			b := word.BBox
			t.AppendRow([]interface{}{i, word.Text,
				fmt.Sprintf("%.2f", word.Confidence),
				fmt.Sprintf("%.2f", b.X), fmt.Sprintf("%.2f", b.Y),
				fmt.Sprintf("%.2f", b.Width), fmt.Sprintf("%.2f", b.Height)})
		}
		t.AppendFooter([]interface{}{"", fmt.Sprintf("%d words", len(page.Words))})
		t.Render()
		return nil
	})
}

// validateInputFile checks if the file exists, is readable and within the size limit
func validateInputFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", path).Msg("File not found")
			return nil, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().Str("file", path).Msg("Permission denied accessing file")
			return nil, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}
	if fileInfo.Size() > ocr.MaxFileSizeBytes {
		log.Error().
			Str("file", path).
			Int64("size", fileInfo.Size()).
			Int64("max_size", ocr.MaxFileSizeBytes).
			Msg("File exceeds maximum size limit")
		return nil, fmt.Errorf("file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), ocr.MaxFileSizeBytes)
	}
	return fileInfo, nil
}

// writeOutput writes to outputPath, or stdout when it is empty.
func writeOutput(outputPath string, log zerolog.Logger, write func(w io.Writer) error) error {
	if outputPath == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		log.Error().Err(err).Str("output_file", outputPath).Msg("Failed to create output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", outputPath).Msg("Results written to file")
	return nil
}
