package ocr

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"lexilens/internal/logger"
	"lexilens/pkg/models"
)

// VisionService implements WordExtractor using Google Cloud Vision.
type VisionService struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewVisionService creates a Vision client with credentials from the environment.
func NewVisionService(ctx context.Context) (*VisionService, error) {
	const op = "NewVisionService"

	opts := credentialOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}
	return NewVisionServiceWithClient(client), nil
}

// NewVisionServiceWithClient wraps an existing client.
func NewVisionServiceWithClient(client *vision.ImageAnnotatorClient) *VisionService {
	return &VisionService{client: client, log: logger.WithComponent("vision")}
}

// ExtractWords runs document text detection on one image.
func (v *VisionService) ExtractWords(ctx context.Context, image []byte) (*models.SourcePage, error) {
	const op = "ExtractWords"

	if len(image) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("file size: %d bytes", len(image)))
	}
	if !strings.HasPrefix(http.DetectContentType(image), "image/") {
		return nil, WrapOCRError(op, ErrInvalidImage, "content is not an image")
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	page, err := pageFromVision(resp.Responses[0])
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}
	v.log.Debug().Int("words", len(page.Words)).Int("width", page.Width).Int("height", page.Height).Msg("image recognized")
	return page, nil
}

// pageFromVision converts a Vision response to words in page percentages.
// Vertices are pixels; normalized vertices are used when pixels are absent.
func pageFromVision(resp *visionpb.AnnotateImageResponse) (*models.SourcePage, error) {
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrOCRFailed, resp.Error.Message)
	}
	full := resp.FullTextAnnotation
	if full == nil || len(full.Pages) == 0 {
		return nil, ErrEmptyDocument
	}

	vp := full.Pages[0]
	out := &models.SourcePage{Page: 1, Width: int(vp.Width), Height: int(vp.Height)}
	for _, block := range vp.Blocks {
		for _, paragraph := range block.Paragraphs {
			for _, word := range paragraph.Words {
				var text strings.Builder
				for _, symbol := range word.Symbols {
					text.WriteString(symbol.Text)
				}
				if strings.TrimSpace(text.String()) == "" {
					continue
				}
				box, ok := visionBox(word.BoundingBox, float64(vp.Width), float64(vp.Height))
				if !ok {
					continue
				}
				out.Words = append(out.Words, models.OcrWord{
					Text:       text.String(),
					Confidence: float64(word.Confidence),
					BBox:       box,
				})
			}
		}
	}
	if len(out.Words) == 0 {
		return nil, ErrEmptyDocument
	}
	return out, nil
}

func visionBox(poly *visionpb.BoundingPoly, width, height float64) (models.BBox, bool) {
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
	case len(poly.Vertices) > 0 && width > 0 && height > 0:
		for _, v := range poly.Vertices {
			extend(float64(v.X), float64(v.Y))
		}
	case len(poly.NormalizedVertices) > 0:
		for _, v := range poly.NormalizedVertices {
			extend(float64(v.X), float64(v.Y))
		}
		width, height = 1, 1
	default:
		return models.BBox{}, false
	}
	return boxFromCorners(minX, minY, maxX, maxY, width, height), true
}

// Close closes the underlying Vision client.
func (v *VisionService) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
