package mupdf

import (
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// Document is an in-memory PDF opened with go-fitz (MuPDF, no external tools needed).
// go-fitz serializes access internally, so a Document may be shared by goroutines.
type Document struct {
	doc   *fitz.Document
	pages int
}

// Open parses a PDF held in memory.
func Open(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to open PDF: empty input")
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Document{doc: doc, pages: doc.NumPage()}, nil
}

// NumPage returns the number of pages in the document.
func (d *Document) NumPage() int { return d.pages }

// Fragments returns the embedded text items of a 1-based page in document
// order, one per line as laid out by MuPDF. Line text is kept as is,
// indentation included; only whitespace-only lines and line terminators are
// dropped.
func (d *Document) Fragments(pageNum int) ([]string, error) {
	idx, err := d.index(pageNum)
	if err != nil {
		return nil, err
	}
	text, err := d.doc.Text(idx)
	if err != nil {
		return nil, fmt.Errorf("extract text from page %d: %w", pageNum, err)
	}

	out := splitLines(text)
	log.Debug().Int("page", pageNum).Int("fragments", len(out)).Msg("Extracted page text with go-fitz")
	return out, nil
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// Render rasterizes a 1-based page at the given resolution.
func (d *Document) Render(pageNum int, dpi float64) (image.Image, error) {
	idx, err := d.index(pageNum)
	if err != nil {
		return nil, err
	}
	img, err := d.doc.ImageDPI(idx, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}
	return img, nil
}

// Close releases the MuPDF context.
func (d *Document) Close() error {
	return d.doc.Close()
}

// go-fitz uses 0-based indexing
func (d *Document) index(pageNum int) (int, error) {
	if pageNum < 1 || pageNum > d.pages {
		return 0, fmt.Errorf("page %d out of range (document has %d pages)", pageNum, d.pages)
	}
	return pageNum - 1, nil
}
