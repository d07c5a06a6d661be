// Package ingest turns image and PDF files into stored sources with OCR
// words per page.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lexilens/internal/logger"
	"lexilens/internal/ocr"
	"lexilens/pkg/models"
)

// ErrUnsupported is returned for files that are neither images nor PDFs.
var ErrUnsupported = errors.New("unsupported file type")

const (
	KindImage = "image"
	KindPDF   = "pdf"
)

// SourceWriter stores an imported source.
type SourceWriter interface {
	CreateSource(ctx context.Context, title, kind string, pages []models.SourcePage) (*models.Source, error)
}

// Options tunes an Importer.
type Options struct {
	DPI     float64 // page render resolution for image OCR of PDFs
	Workers int     // pages recognized in parallel
}

// Importer reads files, recognizes their words and stores them.
type Importer struct {
	store  SourceWriter
	images ocr.WordExtractor
	docs   ocr.DocumentExtractor
	open   func(pdf []byte) (PageRenderer, error)
	opts   Options
	log    zerolog.Logger
}

// NewImporter returns an importer. When docs is nil, PDFs are rendered page
// by page and sent to images.
func NewImporter(store SourceWriter, images ocr.WordExtractor, docs ocr.DocumentExtractor, opts Options) *Importer {
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Importer{
		store:  store,
		images: images,
		docs:   docs,
		open:   OpenPDF,
		opts:   opts,
		log:    logger.WithComponent("ingest"),
	}
}

// Import stores the file at path as a new source. title defaults to the
// file name without extension.
func (im *Importer) Import(ctx context.Context, path, title string) (*models.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return im.ImportBytes(ctx, title, data)
}

// ImportBytes stores data as a new source.
func (im *Importer) ImportBytes(ctx context.Context, title string, data []byte) (*models.Source, error) {
	start := time.Now()
	kind, err := detectKind(data)
	if err != nil {
		return nil, err
	}

	var pages []models.SourcePage
	switch {
	case kind == KindImage:
		if im.images == nil {
			return nil, fmt.Errorf("no image OCR backend configured")
		}
		page, err := im.images.ExtractWords(ctx, data)
		if err != nil {
			return nil, err
		}
		page.Page = 1
		pages = []models.SourcePage{*page}
	case im.docs != nil:
		pages, err = im.docs.ExtractDocument(ctx, data)
		if err != nil {
			return nil, err
		}
	default:
		pages, err = im.recognizeRendered(ctx, data)
		if err != nil {
			return nil, err
		}
	}

	src, err := im.store.CreateSource(ctx, title, kind, pages)
	if err != nil {
		return nil, err
	}
	im.log.Info().
		Str("source_id", src.ID).
		Str("kind", kind).
		Int("pages", len(pages)).
		Dur("took", time.Since(start)).
		Msg("source imported")
	return src, nil
}

// recognizeRendered renders every PDF page and recognizes the pages in
// parallel, keeping page order.
func (im *Importer) recognizeRendered(ctx context.Context, pdf []byte) ([]models.SourcePage, error) {
	if im.images == nil {
		return nil, fmt.Errorf("no image OCR backend configured")
	}
	doc, err := im.open(pdf)
	if err != nil {
		return nil, ocr.WrapOCRError("RenderPDF", ocr.ErrInvalidPDF, err.Error())
	}
	defer doc.Close()

	pages := make([]models.SourcePage, doc.NumPage())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Workers)
	for i := range pages {
		g.Go(func() error {
			img, err := doc.PagePNG(i, im.opts.DPI)
			if err != nil {
				return fmt.Errorf("render page %d: %w", i+1, err)
			}
			page, err := im.images.ExtractWords(gctx, img)
			if errors.Is(err, ocr.ErrEmptyDocument) {
				// Blank pages stay in the source so page numbers line up.
				im.log.Warn().Int("page", i+1).Msg("no text on page")
				pages[i] = models.SourcePage{Page: i + 1}
				return nil
			}
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			page.Page = i + 1
			pages[i] = *page
			im.log.Debug().Int("page", i+1).Int("words", len(page.Words)).Msg("page recognized")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func detectKind(data []byte) (string, error) {
	mime := http.DetectContentType(data)
	switch {
	case mime == "application/pdf":
		return KindPDF, nil
	case strings.HasPrefix(mime, "image/"):
		return KindImage, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, mime)
}
