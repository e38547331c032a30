package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
    BatchSize     int
}

// OCRConfig selects and configures the recognition engine used for image pages.
type OCRConfig struct {
    Engine          string // "gemini"|"openai"|"anthropic"|"tesseract"
    GeminiAPIKey    string
    GeminiModel     string
    OpenAIAPIKey    string
    OpenAIModel     string
    AnthropicAPIKey string
    AnthropicModel  string
    TesseractLangs  []string
    Timeout         time.Duration
    MaxInflight     int // 0 = unbounded
}

// ExtractionConfig holds the page classification and rendering knobs.
type ExtractionConfig struct {
    RenderDPI     int
    JPEGQuality   int
    TextThreshold int
    MaxUploadMB   int
    ColorMode     string // "rgb"|"gray"
}

// StoreConfig defines where job state and artifacts live.
type StoreConfig struct {
    RedisURL  string // empty = in-memory
    ResultTTL time.Duration
}

// S3Config configures s3:// inputs. Bucket is only checked by the status check.
type S3Config struct {
    Bucket          string
    Region          string
    Endpoint        string // S3-compatible stores (MinIO)
    AccessKeyID     string
    SecretAccessKey string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
    Port            string
    ShutdownTimeout time.Duration
    // InputRoot is the only directory /process_file may read from; empty
    // disables local paths over HTTP.
    InputRoot       string
    // AllowedHosts lists the hosts /process_file may fetch http(s) URLs from.
    AllowedHosts    []string
}

// Config is the top-level configuration.
type Config struct {
    Logging    LoggingConfig
    Axiom      AxiomConfig
    OCR        OCRConfig
    Extraction ExtractionConfig
    Store      StoreConfig
    S3         S3Config
    Server     ServerConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/ocrextractor.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_ocrextractor",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
        BatchSize:     parseInt(getEnv("AXIOM_BATCH_SIZE", "200"), 200),
    }

    // Recognition defaults; API_KEY is the legacy name of the Gemini credential.
    cfg.OCR = OCRConfig{
        Engine:          strings.ToLower(getEnv("OCR_ENGINE", "gemini")),
        GeminiAPIKey:    getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
        GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
        OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
        OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
        AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
        AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
        TesseractLangs:  parseList(getEnv("TESSERACT_LANGS", "eng")),
        Timeout:         parseDuration(getEnv("OCR_TIMEOUT", "120s"), 120*time.Second),
        MaxInflight:     parseInt(getEnv("OCR_MAX_INFLIGHT", "0"), 0),
    }
    if cfg.OCR.MaxInflight < 0 { cfg.OCR.MaxInflight = 0 }

    cfg.Extraction = ExtractionConfig{
        RenderDPI:     parseInt(getEnv("RENDER_DPI", "300"), 300),
        JPEGQuality:   parseInt(getEnv("JPEG_QUALITY", "100"), 100),
        TextThreshold: parseInt(getEnv("TEXT_THRESHOLD", "20"), 20),
        MaxUploadMB:   parseInt(getEnv("MAX_UPLOAD_MB", "100"), 100),
        ColorMode:     strings.ToLower(getEnv("RENDER_COLOR", "rgb")),
    }
    if cfg.Extraction.JPEGQuality < 1 || cfg.Extraction.JPEGQuality > 100 { cfg.Extraction.JPEGQuality = 100 }
    if cfg.Extraction.RenderDPI <= 0 { cfg.Extraction.RenderDPI = 300 }

    cfg.Store = StoreConfig{
        RedisURL:  getEnv("REDIS_URL", ""),
        ResultTTL: parseDuration(getEnv("RESULT_TTL", "1h"), time.Hour),
    }

    cfg.S3 = S3Config{
        Bucket:          getEnv("AWS_S3_BUCKET", ""),
        Region:          getEnv("AWS_REGION", ""),
        Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
        AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
        SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
    }

    cfg.Server = ServerConfig{
        Port:            getEnv("PORT", "8080"),
        ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
        InputRoot:       getEnv("INPUT_ROOT", ""),
        AllowedHosts:    parseList(strings.ToLower(getEnv("INPUT_ALLOWED_HOSTS", ""))),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func parseList(s string) []string {
    var out []string
    for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '+' }) {
        if p = strings.TrimSpace(p); p != "" { out = append(out, p) }
    }
    return out
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
