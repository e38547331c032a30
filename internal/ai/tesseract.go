//go:build tesseract

package ai

import (
    "context"
    "fmt"

    "github.com/otiai10/gosseract/v2"
)

const tesseractCompiled = true

// TesseractClient recognizes text locally through libtesseract.
type TesseractClient struct {
    langs []string
}

// NewTesseractClient needs the tesseract build tag and the native library.
func NewTesseractClient(langs ...string) *TesseractClient {
    return &TesseractClient{langs: langs}
}

func (c *TesseractClient) Name() string { return "tesseract" }

// Do runs one recognition. gosseract clients are not safe for concurrent use,
// so every call gets its own.
func (c *TesseractClient) Do(ctx context.Context, req Request) (Response, error) {
    if len(req.Image) == 0 { return Response{}, ErrEmptyImage }
    if err := ctx.Err(); err != nil { return Response{}, err }

    type result struct {
        text string
        err  error
    }
    done := make(chan result, 1)
    go func() {
        text, err := c.recognize(req.Image)
        done <- result{text, err}
    }()
    select {
    case <-ctx.Done():
        // the native call cannot be interrupted; its result is discarded
        return Response{}, ctx.Err()
    case r := <-done:
        if r.err != nil { return Response{}, fmt.Errorf("tesseract: %w", r.err) }
        return Response{Text: r.text}, nil
    }
}

func (c *TesseractClient) recognize(image []byte) (string, error) {
    client := gosseract.NewClient()
    defer client.Close()

    if len(c.langs) > 0 {
        if err := client.SetLanguage(c.langs...); err != nil { return "", fmt.Errorf("language: %w", err) }
    }
    if err := client.SetImageFromBytes(image); err != nil { return "", fmt.Errorf("image: %w", err) }
    return client.Text()
}
