package ocr

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"lexilens/internal/logger"
	"lexilens/pkg/models"
)

// DocumentAIConfig identifies the OCR processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Timeout     time.Duration
}

// ProcessorName returns the fully qualified processor resource name.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIService implements DocumentExtractor and WordExtractor using a
// Document AI OCR processor.
type DocumentAIService struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIService creates a Document AI client on the regional endpoint.
func NewDocumentAIService(ctx context.Context, config DocumentAIConfig) (*DocumentAIService, error) {
	const op = "NewDocumentAIService"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "project and processor id are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	opts := credentialOptions()
	hasCreds := len(opts) > 0
	if config.Location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		if !hasCreds {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// ExtractDocument recognizes every page of a PDF.
func (d *DocumentAIService) ExtractDocument(ctx context.Context, pdf []byte) ([]models.SourcePage, error) {
	const op = "ExtractDocument"

	if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}
	doc, err := d.process(ctx, pdf, "application/pdf")
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	pages, err := pagesFromDocument(doc)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Document AI response")
	}
	d.log.Info().Int("pages", len(pages)).Msg("document recognized")
	return pages, nil
}

// ExtractWords recognizes a single image.
func (d *DocumentAIService) ExtractWords(ctx context.Context, image []byte) (*models.SourcePage, error) {
	const op = "ExtractWords"

	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		return nil, WrapOCRError(op, ErrInvalidImage, "content is not an image")
	}
	doc, err := d.process(ctx, image, mime)
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	pages, err := pagesFromDocument(doc)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Document AI response")
	}
	return &pages[0], nil
}

func (d *DocumentAIService) process(ctx context.Context, content []byte, mime string) (*documentaipb.Document, error) {
	if len(content) > MaxFileSizeBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(content))
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mime,
			},
		},
	}
	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRFailed, err)
	}
	if resp.Document == nil {
		return nil, fmt.Errorf("%w: no document in response", ErrOCRFailed)
	}
	return resp.Document, nil
}

// pagesFromDocument converts Document AI tokens to words in page percentages.
func pagesFromDocument(doc *documentaipb.Document) ([]models.SourcePage, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, ErrEmptyDocument
	}
	text := []rune(doc.Text)
	pages := make([]models.SourcePage, 0, len(doc.Pages))
	total := 0

	for i, p := range doc.Pages {
		var width, height float64
		if p.Dimension != nil {
			width, height = float64(p.Dimension.Width), float64(p.Dimension.Height)
		}
		page := models.SourcePage{Page: i + 1, Width: int(width), Height: int(height)}
		for _, token := range p.Tokens {
			if token.Layout == nil {
				continue
			}
			word := strings.TrimSpace(anchorText(text, token.Layout.TextAnchor))
			if word == "" {
				continue
			}
			box, ok := documentBox(token.Layout.BoundingPoly, width, height)
			if !ok {
				continue
			}
			page.Words = append(page.Words, models.OcrWord{
				Text:       word,
				Confidence: float64(token.Layout.Confidence),
				BBox:       box,
			})
		}
		total += len(page.Words)
		pages = append(pages, page)
	}
	if total == 0 {
		return nil, ErrEmptyDocument
	}
	return pages, nil
}

func anchorText(text []rune, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		b.WriteString(string(text[start:end]))
	}
	return b.String()
}

func documentBox(poly *documentaipb.BoundingPoly, width, height float64) (models.BBox, bool) {
	if poly == nil {
		return models.BBox{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	extend := func(x, y float64) {
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	switch {
	case len(poly.NormalizedVertices) > 0:
		for _, v := range poly.NormalizedVertices {
			extend(float64(v.X), float64(v.Y))
		}
		width, height = 1, 1
	case len(poly.Vertices) > 0 && width > 0 && height > 0:
		for _, v := range poly.Vertices {
			extend(float64(v.X), float64(v.Y))
		}
	default:
		return models.BBox{}, false
	}
	return boxFromCorners(minX, minY, maxX, maxY, width, height), true
}

// Close closes the underlying Document AI client.
func (d *DocumentAIService) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
