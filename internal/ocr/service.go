// Package ocr recognizes positioned words on page images and PDFs.
//
// Every backend returns models.SourcePage values whose word boxes are in
// percentage-of-page units, so the rest of the application never sees
// pixel or normalized coordinates.
//
// Backends:
//   - VisionService: Google Cloud Vision DOCUMENT_TEXT_DETECTION on single images
//   - DocumentAIService: Google Document AI OCR processor on PDFs and images
//
// Credentials are read from GOOGLE_CREDENTIALS (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (file path), falling back to the
// application default credentials.
package ocr

import (
	"context"
	"encoding/base64"
	"os"
	"strings"

	"google.golang.org/api/option"

	"lexilens/pkg/models"
)

// MaxFileSizeBytes is the maximum request size for synchronous processing (20MB)
const MaxFileSizeBytes = 20 * 1024 * 1024

// WordExtractor recognizes the words of a single page image.
type WordExtractor interface {
	ExtractWords(ctx context.Context, image []byte) (*models.SourcePage, error)
}

// DocumentExtractor recognizes the words of every page of a PDF.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, pdf []byte) ([]models.SourcePage, error)
}

// ExtractFromBase64 decodes a base64 image, optionally given as a data URL,
// and returns its words.
func ExtractFromBase64(ctx context.Context, ext WordExtractor, imageBase64 string) ([]models.OcrWord, error) {
	const op = "ExtractFromBase64"

	payload := imageBase64
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, WrapOCRError(op, ErrInvalidImage, "base64 decode: "+err.Error())
	}

	page, err := ext.ExtractWords(ctx, data)
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	return page.Words, nil
}

// credentialOptions picks credentials from the environment the same way
// for every Google client.
func credentialOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

// boxFromCorners converts a pixel or unit bounding box to page percentages.
func boxFromCorners(minX, minY, maxX, maxY, width, height float64) models.BBox {
	return models.BBox{
		X:      minX / width * 100,
		Y:      minY / height * 100,
		Width:  (maxX - minX) / width * 100,
		Height: (maxY - minY) / height * 100,
	}
}
