package orchestrator

import (
	"context"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/local/ocrextractor/internal/imagerender"
	"github.com/local/ocrextractor/internal/metrics"
	"github.com/local/ocrextractor/internal/model"
)

// PageSource is an opened document that yields text items and raster images
// per 1-based page.
type PageSource interface {
	NumPage() int
	Fragments(pageNum int) ([]string, error)
	Render(pageNum int, dpi float64) (image.Image, error)
}

// ClassifyOptions controls the text/image decision and the rendering of image pages.
type ClassifyOptions struct {
	Threshold   int // a page is text when its trimmed text has more runes than this
	DPI         int
	Quality     int
	ColorMode   imagerender.ColorMode
	MaxInflight int // 0 = one goroutine per page
}

// DefaultClassifyOptions are 20 characters, 300 DPI and maximum JPEG quality.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{Threshold: 20, DPI: 300, Quality: imagerender.MaxQuality, ColorMode: imagerender.ColorRGB}
}

// Classifier decides per page whether embedded text is used or the page is
// rendered for recognition.
type Classifier struct {
	src  PageSource
	opts ClassifyOptions
}

func NewClassifier(src PageSource, opts ClassifyOptions) *Classifier {
	if opts.DPI <= 0 {
		opts.DPI = 300
	}
	if opts.ColorMode == "" {
		opts.ColorMode = imagerender.ColorRGB
	}
	return &Classifier{src: src, opts: opts}
}

// ClassifyPage builds the Page for pageNum. Render failures are fatal
// (*Error of kind render).
func (c *Classifier) ClassifyPage(pageNum int) (model.Page, error) {
	frags, err := c.src.Fragments(pageNum)
	if err != nil {
		// unreadable text layer: let recognition handle the page
		log.Warn().Err(err).Int("page", pageNum).Msg("text extraction failed, rendering page")
		frags = nil
	}
	text := strings.Join(frags, " ")

	if utf8.RuneCountInString(strings.TrimSpace(text)) > c.opts.Threshold {
		metrics.ObservePageClassified(string(model.KindText))
		log.Debug().Int("page", pageNum).Str("classification", string(model.KindText)).Int("chars", len(text)).Msg("page classified")
		return model.TextPage(pageNum, text), nil
	}

	jpegBytes, w, h, err := imagerender.RenderPageToJPEG(c.src, pageNum, c.opts.DPI, c.opts.Quality, c.opts.ColorMode)
	if err != nil {
		return model.Page{}, renderError(pageNum, err)
	}
	metrics.ObservePageClassified(string(model.KindImage))
	log.Debug().Int("page", pageNum).Str("classification", string(model.KindImage)).Int("width", w).Int("height", h).Msg("page classified")
	return model.ImagePage(pageNum, jpegBytes, "image/jpeg"), nil
}

// ClassifyAll classifies pages concurrently and returns them in input order.
// The first failure cancels the remaining work. onPage, when set, is called
// once per classified page from the worker goroutines.
func (c *Classifier) ClassifyAll(ctx context.Context, pages []int, onPage func(model.Page)) ([]model.Page, error) {
	out := make([]model.Page, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	if c.opts.MaxInflight > 0 {
		g.SetLimit(c.opts.MaxInflight)
	}
	for i, n := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := c.ClassifyPage(n)
			if err != nil {
				return err
			}
			out[i] = p
			if onPage != nil {
				onPage(p)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
