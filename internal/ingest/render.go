package ingest

import (
	"bytes"
	"image/png"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// PageRenderer rasterizes the pages of a PDF.
type PageRenderer interface {
	NumPage() int
	PagePNG(index int, dpi float64) ([]byte, error)
	Close() error
}

type fitzRenderer struct {
	mu  sync.Mutex
	doc *fitz.Document
}

// OpenPDF opens an in-memory PDF with MuPDF.
func OpenPDF(pdf []byte) (PageRenderer, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, err
	}
	return &fitzRenderer{doc: doc}, nil
}

func (r *fitzRenderer) NumPage() int { return r.doc.NumPage() }

// PagePNG renders the zero-based page at dpi and encodes it as PNG.
func (r *fitzRenderer) PagePNG(index int, dpi float64) ([]byte, error) {
	r.mu.Lock()
	img, err := r.doc.ImageDPI(index, dpi)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *fitzRenderer) Close() error { return r.doc.Close() }
