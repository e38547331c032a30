package orchestrator

import (
    "bytes"
    "fmt"

    "github.com/pdfcpu/pdfcpu/pkg/api"
)

// CountPages returns the page count declared by the PDF page tree, as read
// by pdfcpu. Run checks it against the pages MuPDF can open; pdfcpu is
// stricter than MuPDF, so a failure here is not fatal on its own.
func CountPages(data []byte) (n int, err error) {
    defer func() {
        // pdfcpu panics on some malformed cross-reference tables
        if r := recover(); r != nil {
            n, err = 0, fmt.Errorf("pdf page count failed: %v", r)
        }
    }()
    n, err = api.PageCount(bytes.NewReader(data), nil)
    if err != nil {
        return 0, fmt.Errorf("pdf page count failed: %w", err)
    }
    return n, nil
}
