package ai

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "time"
)

// DefaultPrompt is sent with every page image.
const DefaultPrompt = "You are an advanced OCR (Optical Character Recognition) system. Extract all text from this image. " +
    "Preserve the original line breaks and structure as accurately as possible. " +
    "Do not add any commentary or explanations, only return the extracted text."

// Request represents a text recognition request for one page image.
type Request struct {
    JobID     string
    PageID    int
    Model     string
    Prompt    string // DefaultPrompt when empty
    Image     []byte // raw encoded image
    ImageMIME string // image/jpeg, image/png, image/webp
}

type Response struct {
    Text      string
    TokensIn  int
    TokensOut int
}

// Client recognizes the text on a page image.
type Client interface {
    Name() string
    Do(ctx context.Context, req Request) (Response, error)
}

var (
    // ErrNotConfigured means no credential or engine is available. Callers
    // degrade to simulated output instead of failing the run.
    ErrNotConfigured = errors.New("recognition service not configured")
    ErrRateLimited   = errors.New("rate_limited")
    ErrEmptyImage    = errors.New("empty image")
)

func IsNotConfigured(err error) bool { return errors.Is(err, ErrNotConfigured) }
func IsRateLimited(err error) bool   { return errors.Is(err, ErrRateLimited) }

// HTTPError is a non-2xx answer from a recognition provider.
type HTTPError struct {
    Provider   string
    StatusCode int
    Body       string
}

func (e *HTTPError) Error() string {
    if e.Body == "" {
        return fmt.Sprintf("%s status %d", e.Provider, e.StatusCode)
    }
    return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Option tweaks an HTTP-backed client.
type Option func(*httpOptions)

type httpOptions struct {
    baseURL string
    client  *http.Client
    model   string
}

// WithBaseURL points the client at another endpoint (proxies, tests).
func WithBaseURL(u string) Option { return func(o *httpOptions) { o.baseURL = u } }

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option { return func(o *httpOptions) { o.client = c } }

// WithModel sets the default model used when a request carries none.
func WithModel(m string) Option {
    return func(o *httpOptions) {
        if m != "" { o.model = m }
    }
}

func buildOptions(baseURL, model string, opts []Option) httpOptions {
    o := httpOptions{baseURL: baseURL, model: model, client: &http.Client{Timeout: 5 * time.Minute}}
    for _, fn := range opts {
        fn(&o)
    }
    return o
}

func promptOf(req Request) string {
    if req.Prompt != "" { return req.Prompt }
    return DefaultPrompt
}

func mimeOf(req Request) string {
    if req.ImageMIME != "" { return req.ImageMIME }
    return "image/jpeg"
}
