package ocr_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"lexilens/internal/ocr"
	"lexilens/pkg/models"
)

type fixedPage struct{}

func (fixedPage) ExtractWords(context.Context, []byte) (*models.SourcePage, error) {
	return &models.SourcePage{Page: 1, Words: []models.OcrWord{
		{Text: "Good", BBox: models.BBox{X: 10, Y: 10, Width: 8, Height: 3}},
		{Text: "morning.", BBox: models.BBox{X: 20, Y: 10, Width: 14, Height: 3}},
	}}, nil
}

// ExampleExtractFromBase64 shows how screenshot uploads are turned into words.
func ExampleExtractFromBase64() {
	upload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG..."))

	words, err := ocr.ExtractFromBase64(context.Background(), fixedPage{}, upload)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, w := range words {
		fmt.Printf("%s at %.0f%%,%.0f%%\n", w.Text, w.BBox.X, w.BBox.Y)
	}
	// Output:
	// Good at 10%,10%
	// morning. at 20%,10%
}

// ExampleOCRError shows matching wrapped OCR failures.
func ExampleOCRError() {
	err := ocr.WrapOCRError("ExtractWords", ocr.ErrEmptyDocument, "blank page")
	fmt.Println(errors.Is(err, ocr.ErrEmptyDocument))
	fmt.Println(err)
	// Output:
	// true
	// ocr: ExtractWords failed: blank page: document contains no readable text
}
