package ocr

import (
	"context"
	"errors"
	"math"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/genproto/googleapis/rpc/status"

	"lexilens/pkg/models"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-4 }

func visionWord(text string, conf float32, x0, y0, x1, y1 int32) *visionpb.Word {
	w := &visionpb.Word{
		Confidence: conf,
		BoundingBox: &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
			{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
		}},
	}
	for _, r := range text {
		w.Symbols = append(w.Symbols, &visionpb.Symbol{Text: string(r)})
	}
	return w
}

func TestPageFromVision(t *testing.T) {
	resp := &visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{
			Pages: []*visionpb.Page{{
				Width:  1000,
				Height: 2000,
				Blocks: []*visionpb.Block{{
					Paragraphs: []*visionpb.Paragraph{{
						Words: []*visionpb.Word{
							visionWord("Hello", 0.98, 100, 200, 300, 240),
							visionWord("world.", 0.91, 320, 200, 500, 240),
							visionWord(" ", 0.5, 510, 200, 520, 240),
						},
					}},
				}},
			}},
		},
	}

	page, err := pageFromVision(resp)
	if err != nil {
		t.Fatalf("pageFromVision: %v", err)
	}
	if len(page.Words) != 2 {
		t.Fatalf("got %d words, want 2", len(page.Words))
	}
	w := page.Words[0]
	if w.Text != "Hello" || !near(w.Confidence, 0.98) {
		t.Errorf("word = %+v", w)
	}
	want := models.BBox{X: 10, Y: 10, Width: 20, Height: 2}
	if !near(w.BBox.X, want.X) || !near(w.BBox.Y, want.Y) || !near(w.BBox.Width, want.Width) || !near(w.BBox.Height, want.Height) {
		t.Errorf("bbox = %+v, want %+v", w.BBox, want)
	}
	if page.Width != 1000 || page.Height != 2000 {
		t.Errorf("page size = %dx%d", page.Width, page.Height)
	}
}

func TestPageFromVisionNormalizedVertices(t *testing.T) {
	word := &visionpb.Word{
		Symbols: []*visionpb.Symbol{{Text: "a"}},
		BoundingBox: &visionpb.BoundingPoly{NormalizedVertices: []*visionpb.NormalizedVertex{
			{X: 0.25, Y: 0.5}, {X: 0.5, Y: 0.5}, {X: 0.5, Y: 0.75}, {X: 0.25, Y: 0.75},
		}},
	}
	resp := &visionpb.AnnotateImageResponse{FullTextAnnotation: &visionpb.TextAnnotation{
		Pages: []*visionpb.Page{{Blocks: []*visionpb.Block{{Paragraphs: []*visionpb.Paragraph{{Words: []*visionpb.Word{word}}}}}}},
	}}
	page, err := pageFromVision(resp)
	if err != nil {
		t.Fatalf("pageFromVision: %v", err)
	}
	b := page.Words[0].BBox
	if !near(b.X, 25) || !near(b.Y, 50) || !near(b.Width, 25) || !near(b.Height, 25) {
		t.Errorf("bbox = %+v", b)
	}
}

func TestPageFromVisionErrors(t *testing.T) {
	if _, err := pageFromVision(&visionpb.AnnotateImageResponse{}); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty response: %v", err)
	}
	failed := &visionpb.AnnotateImageResponse{Error: &status.Status{Message: "quota"}}
	if _, err := pageFromVision(failed); !errors.Is(err, ErrOCRFailed) {
		t.Errorf("failed response: %v", err)
	}
}

func TestPagesFromDocument(t *testing.T) {
	token := func(start, end int64, x0, y0, x1, y1 float32) *documentaipb.Document_Page_Token {
		return &documentaipb.Document_Page_Token{Layout: &documentaipb.Document_Page_Layout{
			Confidence: 0.9,
			TextAnchor: &documentaipb.Document_TextAnchor{TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
				{StartIndex: start, EndIndex: end},
			}},
			BoundingPoly: &documentaipb.BoundingPoly{NormalizedVertices: []*documentaipb.NormalizedVertex{
				{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
			}},
		}}
	}
	doc := &documentaipb.Document{
		Text: "Café au lait\nNext page",
		Pages: []*documentaipb.Document_Page{
			{
				Dimension: &documentaipb.Document_Page_Dimension{Width: 612, Height: 792},
				Tokens: []*documentaipb.Document_Page_Token{
					token(0, 5, 0.1, 0.1, 0.2, 0.12),
					token(5, 8, 0.21, 0.1, 0.25, 0.12),
					token(8, 13, 0.26, 0.1, 0.33, 0.12),
				},
			},
			{
				Dimension: &documentaipb.Document_Page_Dimension{Width: 612, Height: 792},
				Tokens: []*documentaipb.Document_Page_Token{
					token(13, 18, 0.1, 0.1, 0.2, 0.12),
					token(18, 22, 0.21, 0.1, 0.3, 0.12),
				},
			},
		},
	}

	pages, err := pagesFromDocument(doc)
	if err != nil {
		t.Fatalf("pagesFromDocument: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages", len(pages))
	}
	var got []string
	for _, w := range pages[0].Words {
		got = append(got, w.Text)
	}
	if len(got) != 3 || got[0] != "Café" || got[1] != "au" || got[2] != "lait" {
		t.Errorf("page 1 words = %q", got)
	}
	if pages[1].Page != 2 || pages[1].Words[1].Text != "page" {
		t.Errorf("page 2 = %+v", pages[1])
	}
	b := pages[0].Words[0].BBox
	if !near(b.X, 10) || !near(b.Width, 10) || !near(b.Height, 2) {
		t.Errorf("bbox = %+v", b)
	}
}

type stubExtractor struct {
	got []byte
}

func (s *stubExtractor) ExtractWords(_ context.Context, image []byte) (*models.SourcePage, error) {
	s.got = image
	return &models.SourcePage{Page: 1, Words: []models.OcrWord{{Text: "hi"}}}, nil
}

func TestExtractFromBase64(t *testing.T) {
	stub := &stubExtractor{}
	words, err := ExtractFromBase64(context.Background(), stub, "data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("ExtractFromBase64: %v", err)
	}
	if string(stub.got) != "hello" || len(words) != 1 {
		t.Errorf("got %q, %d words", stub.got, len(words))
	}

	_, err = ExtractFromBase64(context.Background(), stub, "not base64!")
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("bad input error = %v", err)
	}
	var ocrErr *OCRError
	if !errors.As(err, &ocrErr) || ocrErr.Op != "ExtractFromBase64" {
		t.Errorf("error not wrapped as OCRError: %v", err)
	}
}
