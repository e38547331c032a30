package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/ocrextractor/internal/config"
)

var pageJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 'j', 'p', 'g'}

func TestGeminiClientSendsInlineImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var body geminiReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		parts := body.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Equal(t, "image/jpeg", parts[0].InlineData.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(pageJPEG), parts[0].InlineData.Data)
		assert.Equal(t, DefaultPrompt, parts[1].Text)

		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"world"}]}}],
			"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":3}}`)
	}))
	defer srv.Close()

	c := NewGeminiClient("secret", WithBaseURL(srv.URL))
	resp, err := c.Do(context.Background(), Request{PageID: 1, Image: pageJPEG, ImageMIME: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", resp.Text)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 3, resp.TokensOut)
}

func TestGeminiClientNoCandidatesIsEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	resp, err := NewGeminiClient("k", WithBaseURL(srv.URL)).Do(context.Background(), Request{Image: pageJPEG})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}

func TestClientsWithoutCredentialReportNotConfigured(t *testing.T) {
	clients := []Client{NewGeminiClient(""), NewOpenAIClient(""), NewAnthropicClient("")}
	for _, c := range clients {
		t.Run(c.Name(), func(t *testing.T) {
			_, err := c.Do(context.Background(), Request{Image: pageJPEG})
			require.Error(t, err)
			assert.True(t, IsNotConfigured(err))
		})
	}
}

func TestProviderStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"rate limited", http.StatusTooManyRequests, func(t *testing.T, err error) {
			assert.True(t, IsRateLimited(err))
		}},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var he *HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, 500, he.StatusCode)
			assert.Equal(t, "boom", he.Body)
			assert.False(t, IsNotConfigured(err))
		}},
		{"bad key", http.StatusForbidden, func(t *testing.T, err error) {
			var he *HTTPError
			require.True(t, errors.As(err, &he))
			assert.Contains(t, err.Error(), "403")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, "boom")
			}))
			defer srv.Close()

			for _, c := range []Client{
				NewGeminiClient("k", WithBaseURL(srv.URL)),
				NewOpenAIClient("k", WithBaseURL(srv.URL)),
				NewAnthropicClient("k", WithBaseURL(srv.URL)),
			} {
				_, err := c.Do(context.Background(), Request{Image: pageJPEG})
				require.Error(t, err, c.Name())
				tt.check(t, err)
			}
		})
	}
}

func TestOpenAIClientVisionPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body openAIChatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		require.Len(t, body.Messages, 1)
		img := body.Messages[0].Content[0]["image_url"].(map[string]interface{})
		assert.Contains(t, img["url"], "data:image/png;base64,")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"line 1\nline 2"}}],"usage":{"prompt_tokens":5,"completion_tokens":4}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", WithBaseURL(srv.URL), WithModel("gpt-test"))
	resp, err := c.Do(context.Background(), Request{Image: pageJPEG, ImageMIME: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2", resp.Text)
	assert.Equal(t, 4, resp.TokensOut)
}

func TestAnthropicClientImageBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ak", r.Header.Get("x-api-key"))
		var body anthropicMsgReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 1)
		blocks := body.Messages[0].Content
		require.Len(t, blocks, 2)
		assert.Equal(t, "image", blocks[0].Type)
		assert.Equal(t, "image/webp", blocks[0].Source.MediaType)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"scanned"}],"usage":{"input_tokens":9,"output_tokens":1}}`)
	}))
	defer srv.Close()

	resp, err := NewAnthropicClient("ak", WithBaseURL(srv.URL)).Do(context.Background(), Request{Image: pageJPEG, ImageMIME: "image/webp"})
	require.NoError(t, err)
	assert.Equal(t, "scanned", resp.Text)
}

func TestEmptyImageRejected(t *testing.T) {
	_, err := NewGeminiClient("k").Do(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestFactory(t *testing.T) {
	tests := []struct {
		engine string
		name   string
	}{
		{"", "gemini"}, {"gemini", "gemini"}, {"OpenAI", "openai"},
		{"anthropic", "anthropic"}, {"tesseract", "tesseract"},
	}
	for _, tt := range tests {
		c, err := New(config.OCRConfig{Engine: tt.engine})
		require.NoError(t, err, tt.engine)
		assert.Equal(t, tt.name, c.Name())
	}

	_, err := New(config.OCRConfig{Engine: "abbyy"})
	assert.Error(t, err)

	assert.False(t, Configured(config.OCRConfig{Engine: "gemini"}))
	assert.True(t, Configured(config.OCRConfig{Engine: "gemini", GeminiAPIKey: "x"}))
	assert.True(t, Configured(config.OCRConfig{Engine: "openai", OpenAIAPIKey: "x"}))
	assert.False(t, Configured(config.OCRConfig{Engine: "abbyy"}))
}
