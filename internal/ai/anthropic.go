package ai

import (
    "bytes"
    "context"
    "encoding/base64"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"

type AnthropicClient struct{
    http    *http.Client
    apiKey  string
    baseURL string
    model   string
}

func NewAnthropicClient(apiKey string, opts ...Option) *AnthropicClient {
    o := buildOptions(anthropicBaseURL, "claude-3-5-sonnet-latest", opts)
    return &AnthropicClient{http: o.client, apiKey: apiKey, baseURL: strings.TrimRight(o.baseURL, "/"), model: o.model}
}
func (c *AnthropicClient) Name() string { return "anthropic" }

type anthropicBlock struct {
    Type   string           `json:"type"`
    Text   string           `json:"text,omitempty"`
    Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
    Type      string `json:"type"`
    MediaType string `json:"media_type"`
    Data      string `json:"data"`
}

type anthropicMsgReq struct {
    Model     string `json:"model"`
    MaxTokens int    `json:"max_tokens"`
    Messages  []struct {
        Role    string           `json:"role"`
        Content []anthropicBlock `json:"content"`
    } `json:"messages"`
}

type anthropicMsgResp struct {
    Content []struct{ Type string `json:"type"`; Text string `json:"text"` } `json:"content"`
    Usage   struct{ InputTokens int `json:"input_tokens"`; OutputTokens int `json:"output_tokens"` } `json:"usage"`
}

func (c *AnthropicClient) Do(ctx context.Context, req Request) (Response, error) {
    if c.apiKey == "" { return Response{}, fmt.Errorf("%w: missing ANTHROPIC_API_KEY", ErrNotConfigured) }
    if len(req.Image) == 0 { return Response{}, ErrEmptyImage }
    model := req.Model
    if model == "" { model = c.model }

    payload := anthropicMsgReq{Model: model, MaxTokens: 4096}
    payload.Messages = append(payload.Messages, struct {
        Role    string           `json:"role"`
        Content []anthropicBlock `json:"content"`
    }{Role: "user", Content: []anthropicBlock{
        {Type: "image", Source: &anthropicSource{Type: "base64", MediaType: mimeOf(req), Data: base64.StdEncoding.EncodeToString(req.Image)}},
        {Type: "text", Text: promptOf(req)},
    }})
    body, err := json.Marshal(payload)
    if err != nil { return Response{}, err }
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
    if err != nil { return Response{}, err }
    httpReq.Header.Set("x-api-key", c.apiKey)
    httpReq.Header.Set("anthropic-version", "2023-06-01")
    httpReq.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(httpReq)
    if err != nil { return Response{}, err }
    defer resp.Body.Close()
    if err := checkStatus(c.Name(), resp); err != nil { return Response{}, err }
    var r anthropicMsgResp
    if err := json.NewDecoder(resp.Body).Decode(&r); err != nil { return Response{}, fmt.Errorf("decode anthropic response: %w", err) }
    var sb strings.Builder
    for _, b := range r.Content {
        if b.Type == "" || b.Type == "text" { sb.WriteString(b.Text) }
    }
    return Response{Text: sb.String(), TokensIn: r.Usage.InputTokens, TokensOut: r.Usage.OutputTokens}, nil
}
