//go:build !tesseract

package ai

import (
    "context"
    "fmt"
)

const tesseractCompiled = false

// TesseractClient is the stand-in used when the binary is built without the
// tesseract tag. Calls report ErrNotConfigured so runs degrade instead of failing.
type TesseractClient struct {
    langs []string
}

func NewTesseractClient(langs ...string) *TesseractClient {
    return &TesseractClient{langs: langs}
}

func (c *TesseractClient) Name() string { return "tesseract" }

func (c *TesseractClient) Do(ctx context.Context, req Request) (Response, error) {
    return Response{}, fmt.Errorf("%w: tesseract support not compiled in, rebuild with -tags tesseract", ErrNotConfigured)
}
