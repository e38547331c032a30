package ai

import (
    "fmt"
    "strings"

    "github.com/local/ocrextractor/internal/config"
)

// New builds the recognizer selected by OCR_ENGINE. A missing credential is
// not an error here; the client reports ErrNotConfigured per call.
func New(cfg config.OCRConfig, opts ...Option) (Client, error) {
    switch strings.ToLower(cfg.Engine) {
    case "", "gemini":
        return NewGeminiClient(cfg.GeminiAPIKey, append([]Option{WithModel(cfg.GeminiModel)}, opts...)...), nil
    case "openai":
        return NewOpenAIClient(cfg.OpenAIAPIKey, append([]Option{WithModel(cfg.OpenAIModel)}, opts...)...), nil
    case "anthropic":
        return NewAnthropicClient(cfg.AnthropicAPIKey, append([]Option{WithModel(cfg.AnthropicModel)}, opts...)...), nil
    case "tesseract":
        return NewTesseractClient(cfg.TesseractLangs...), nil
    default:
        return nil, fmt.Errorf("unknown OCR_ENGINE %q", cfg.Engine)
    }
}

// Configured reports whether the selected engine has the credential it needs.
func Configured(cfg config.OCRConfig) bool {
    switch strings.ToLower(cfg.Engine) {
    case "", "gemini":
        return cfg.GeminiAPIKey != ""
    case "openai":
        return cfg.OpenAIAPIKey != ""
    case "anthropic":
        return cfg.AnthropicAPIKey != ""
    case "tesseract":
        return tesseractCompiled
    }
    return false
}
