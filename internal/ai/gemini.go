package ai

import (
    "bytes"
    "context"
    "encoding/base64"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Gemini generateContent endpoint with an inline image.
type GeminiClient struct {
    http    *http.Client
    apiKey  string
    baseURL string
    model   string
}

// NewGeminiClient builds a client for the given credential. An empty key is
// accepted; every call then reports ErrNotConfigured.
func NewGeminiClient(apiKey string, opts ...Option) *GeminiClient {
    o := buildOptions(geminiBaseURL, "gemini-2.5-flash", opts)
    return &GeminiClient{http: o.client, apiKey: apiKey, baseURL: strings.TrimRight(o.baseURL, "/"), model: o.model}
}

func (c *GeminiClient) Name() string { return "gemini" }

type geminiPart struct {
    Text       string            `json:"text,omitempty"`
    InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
    MimeType string `json:"mime_type"`
    Data     string `json:"data"`
}

type geminiContent struct {
    Role  string       `json:"role"`
    Parts []geminiPart `json:"parts"`
}

type geminiReq struct {
    Contents []geminiContent `json:"contents"`
}

type geminiResp struct {
    Candidates []struct {
        Content struct {
            Parts []struct {
                Text string `json:"text"`
            } `json:"parts"`
        } `json:"content"`
    } `json:"candidates"`
    UsageMetadata struct {
        PromptTokenCount     int `json:"promptTokenCount"`
        CandidatesTokenCount int `json:"candidatesTokenCount"`
    } `json:"usageMetadata"`
}

func (c *GeminiClient) Do(ctx context.Context, req Request) (Response, error) {
    if c.apiKey == "" { return Response{}, fmt.Errorf("%w: missing GEMINI_API_KEY", ErrNotConfigured) }
    if len(req.Image) == 0 { return Response{}, ErrEmptyImage }

    model := req.Model
    if model == "" { model = c.model }

    payload := geminiReq{Contents: []geminiContent{{
        Role: "user",
        Parts: []geminiPart{
            {InlineData: &geminiInlineData{MimeType: mimeOf(req), Data: base64.StdEncoding.EncodeToString(req.Image)}},
            {Text: promptOf(req)},
        },
    }}}

    body, err := json.Marshal(payload)
    if err != nil { return Response{}, err }
    endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
    if err != nil { return Response{}, err }
    httpReq.Header.Set("x-goog-api-key", c.apiKey)
    httpReq.Header.Set("Content-Type", "application/json")

    resp, err := c.http.Do(httpReq)
    if err != nil { return Response{}, err }
    defer resp.Body.Close()

    if err := checkStatus(c.Name(), resp); err != nil { return Response{}, err }

    var r geminiResp
    if err := json.NewDecoder(resp.Body).Decode(&r); err != nil { return Response{}, fmt.Errorf("decode gemini response: %w", err) }

    var sb strings.Builder
    if len(r.Candidates) > 0 {
        for _, p := range r.Candidates[0].Content.Parts {
            sb.WriteString(p.Text)
        }
    }
    return Response{
        Text:      sb.String(),
        TokensIn:  r.UsageMetadata.PromptTokenCount,
        TokensOut: r.UsageMetadata.CandidatesTokenCount,
    }, nil
}

// checkStatus maps non-2xx provider answers to ErrRateLimited or *HTTPError.
func checkStatus(provider string, resp *http.Response) error {
    if resp.StatusCode == http.StatusTooManyRequests {
        return fmt.Errorf("%s: %w", provider, ErrRateLimited)
    }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
        return &HTTPError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
    }
    return nil
}
