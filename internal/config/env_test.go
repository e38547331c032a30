package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"OCR_ENGINE", "GEMINI_API_KEY", "API_KEY", "RENDER_DPI", "JPEG_QUALITY",
		"TEXT_THRESHOLD", "OCR_MAX_INFLIGHT", "REDIS_URL", "RESULT_TTL", "PORT", "INPUT_ROOT", "INPUT_ALLOWED_HOSTS", "AXIOM_BATCH_SIZE"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "gemini", cfg.OCR.Engine)
	assert.Equal(t, "gemini-2.5-flash", cfg.OCR.GeminiModel)
	assert.Empty(t, cfg.OCR.GeminiAPIKey)
	assert.Equal(t, 0, cfg.OCR.MaxInflight)
	assert.Equal(t, 300, cfg.Extraction.RenderDPI)
	assert.Equal(t, 100, cfg.Extraction.JPEGQuality)
	assert.Equal(t, 20, cfg.Extraction.TextThreshold)
	assert.Empty(t, cfg.Store.RedisURL)
	assert.Equal(t, time.Hour, cfg.Store.ResultTTL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Server.InputRoot)
	assert.Empty(t, cfg.Server.AllowedHosts)
	assert.Equal(t, []string{"eng"}, cfg.OCR.TesseractLangs)
	assert.Equal(t, 200, cfg.Axiom.BatchSize)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OCR_ENGINE", "OpenAI")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("OCR_MAX_INFLIGHT", "-3")
	t.Setenv("JPEG_QUALITY", "400")
	t.Setenv("RESULT_TTL", "15m")
	t.Setenv("TESSERACT_LANGS", "por+eng, spa")
	t.Setenv("INPUT_ROOT", "/srv/inputs")
	t.Setenv("INPUT_ALLOWED_HOSTS", "Docs.Example.com, cdn.example.com")
	t.Setenv("AXIOM_BATCH_SIZE", "50")

	cfg := FromEnv()

	assert.Equal(t, "openai", cfg.OCR.Engine)
	assert.Equal(t, "legacy-key", cfg.OCR.GeminiAPIKey)
	assert.Equal(t, 0, cfg.OCR.MaxInflight)
	assert.Equal(t, 100, cfg.Extraction.JPEGQuality)
	assert.Equal(t, 15*time.Minute, cfg.Store.ResultTTL)
	assert.Equal(t, []string{"por", "eng", "spa"}, cfg.OCR.TesseractLangs)
	assert.Equal(t, "/srv/inputs", cfg.Server.InputRoot)
	assert.Equal(t, []string{"docs.example.com", "cdn.example.com"}, cfg.Server.AllowedHosts)
	assert.Equal(t, 50, cfg.Axiom.BatchSize)
}

func TestParseHelpers(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true}, {"TRUE", true}, {" yes ", true}, {"on", true},
		{"0", false}, {"", false}, {"nope", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseBool(tt.in), tt.in)
	}
	assert.Equal(t, 7, parseInt("x", 7))
	assert.Equal(t, 5*time.Second, parseDuration("bogus", 5*time.Second))
}
