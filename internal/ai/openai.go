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

const openAIBaseURL = "https://api.openai.com/v1"

type OpenAIClient struct{
    http    *http.Client
    apiKey  string
    baseURL string
    model   string
}

func NewOpenAIClient(apiKey string, opts ...Option) *OpenAIClient {
    o := buildOptions(openAIBaseURL, "gpt-4.1-mini", opts)
    return &OpenAIClient{http: o.client, apiKey: apiKey, baseURL: strings.TrimRight(o.baseURL, "/"), model: o.model}
}
func (c *OpenAIClient) Name() string { return "openai" }

type openAIMessage struct {
    Role    string                   `json:"role"`
    Content []map[string]interface{} `json:"content"`
}

type openAIChatReq struct {
    Model       string          `json:"model"`
    Messages    []openAIMessage `json:"messages"`
    Temperature float64         `json:"temperature"`
    MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChatResp struct {
    Choices []struct {
        Message struct {
            Content string `json:"content"`
        } `json:"message"`
    } `json:"choices"`
    Usage struct {
        PromptTokens     int `json:"prompt_tokens"`
        CompletionTokens int `json:"completion_tokens"`
    } `json:"usage"`
}

func (c *OpenAIClient) Do(ctx context.Context, req Request) (Response, error) {
    if c.apiKey == "" {
        return Response{}, fmt.Errorf("%w: missing OPENAI_API_KEY", ErrNotConfigured)
    }
    if len(req.Image) == 0 {
        return Response{}, ErrEmptyImage
    }

    model := req.Model
    if model == "" {
        model = c.model
    }

    // Vision message: page image as data URL followed by the OCR instruction
    imageURL := fmt.Sprintf("data:%s;base64,%s", mimeOf(req), base64.StdEncoding.EncodeToString(req.Image))
    userContent := []map[string]interface{}{
        {
            "type":      "image_url",
            "image_url": map[string]string{"url": imageURL, "detail": "high"},
        },
        {
            "type": "text",
            "text": promptOf(req),
        },
    }

    payload := openAIChatReq{
        Model:       model,
        Messages:    []openAIMessage{{Role: "user", Content: userContent}},
        Temperature: 0,
        MaxTokens:   4096,
    }

    body, err := json.Marshal(payload)
    if err != nil {
        return Response{}, err
    }
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
    if err != nil {
        return Response{}, err
    }
    httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
    httpReq.Header.Set("Content-Type", "application/json")

    resp, err := c.http.Do(httpReq)
    if err != nil {
        return Response{}, err
    }
    defer resp.Body.Close()

    if err := checkStatus(c.Name(), resp); err != nil {
        return Response{}, err
    }

    var r openAIChatResp
    if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
        return Response{}, fmt.Errorf("decode openai response: %w", err)
    }
    if len(r.Choices) == 0 {
        return Response{TokensIn: r.Usage.PromptTokens}, nil
    }

    return Response{
        Text:      r.Choices[0].Message.Content,
        TokensIn:  r.Usage.PromptTokens,
        TokensOut: r.Usage.CompletionTokens,
    }, nil
}
