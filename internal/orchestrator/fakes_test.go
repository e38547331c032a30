package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/local/ocrextractor/internal/ai"
)

// fakeSource serves canned fragments; pages listed in renderErr fail to render.
type fakeSource struct {
	fragments map[int][]string
	fragErr   map[int]error
	renderErr map[int]error
	pages     int

	mu       sync.Mutex
	rendered []int
	closed   bool
}

func (f *fakeSource) NumPage() int { return f.pages }

func (f *fakeSource) Fragments(pageNum int) ([]string, error) {
	if err := f.fragErr[pageNum]; err != nil {
		return nil, err
	}
	return f.fragments[pageNum], nil
}

func (f *fakeSource) Render(pageNum int, dpi float64) (image.Image, error) {
	if err := f.renderErr[pageNum]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.rendered = append(f.rendered, pageNum)
	f.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

// fakeRecognizer answers from a per-page table keyed by call order.
type fakeRecognizer struct {
	text  func(req ai.Request) (string, error)
	mu    sync.Mutex
	calls []ai.Request
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Do(ctx context.Context, req ai.Request) (ai.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.text == nil {
		return ai.Response{Text: fmt.Sprintf("recognized %d", req.PageID)}, nil
	}
	t, err := f.text(req)
	return ai.Response{Text: t}, err
}

var errBoom = errors.New("boom")
