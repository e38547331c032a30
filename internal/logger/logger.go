package logger

import (
    "bytes"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/axiomhq/axiom-go/axiom/ingest"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    lumberjack "gopkg.in/natefinch/lumberjack.v2"

    "github.com/local/ocrextractor/internal/config"
)

const defaultService = "ocrextractor"

// Options defines logger initialization parameters.
type Options struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool

    // Axiom
    SendToAxiom  bool
    AxiomAPIKey  string
    AxiomOrgID   string
    AxiomDataset string
    AxiomFlush   time.Duration
    AxiomBatch   int

    // Service tags every event shipped to Axiom.
    Service      string
    // Console overrides stdout; nil means os.Stdout.
    Console      io.Writer
}

// OptionsFromConfig maps the env config onto logger options.
func OptionsFromConfig(cfg config.Config) Options {
    return Options{
        Level:        cfg.Logging.Level,
        Pretty:       cfg.Logging.Pretty,
        File:         cfg.Logging.File,
        MaxSizeMB:    cfg.Logging.MaxSizeMB,
        MaxBackups:   cfg.Logging.MaxBackups,
        MaxAgeDays:   cfg.Logging.MaxAgeDays,
        Compress:     cfg.Logging.Compress,
        SendToAxiom:  cfg.Axiom.Send,
        AxiomAPIKey:  cfg.Axiom.APIKey,
        AxiomOrgID:   cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush:   cfg.Axiom.FlushInterval,
        AxiomBatch:   cfg.Axiom.BatchSize,
        Service:      defaultService,
    }
}

var (
    global zerolog.Logger
    ship   *shipper
)

// Init sets up global logger: file rotation, optional console, optional Axiom forwarding.
func Init(opts Options) error {
    // Ensure log directory exists
    if opts.File != "" {
        if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
            return fmt.Errorf("create logs dir: %w", err)
        }
    }

    // Build writers
    var writers []io.Writer

    if opts.File != "" {
        writers = append(writers, &lumberjack.Logger{
            Filename:   opts.File,
            MaxSize:    opts.MaxSizeMB,
            MaxBackups: opts.MaxBackups,
            MaxAge:     opts.MaxAgeDays,
            Compress:   opts.Compress,
        })
    }

    console := opts.Console
    if console == nil { console = os.Stdout }
    if opts.Pretty {
        cw := zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
        writers = append(writers, cw)
    } else {
        writers = append(writers, console)
    }

    // Optional Axiom writer (info+)
    if opts.SendToAxiom && opts.AxiomAPIKey != "" {
        s, err := newAxiomShipper(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, shipperOptions{
            BatchSize:  opts.AxiomBatch,
            FlushEvery: opts.AxiomFlush,
            Errors:     os.Stderr,
        })
        if err != nil {
            // log to stderr and continue without Axiom
            fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
        } else {
            ship = s
            service := opts.Service
            if service == "" { service = defaultService }
            writers = append(writers, &axiomWriter{ship: s, service: service})
        }
    }

    out := io.MultiWriter(writers...)

    // Global zerolog config
    zerolog.TimeFieldFormat = time.RFC3339
    lvl, err := zerolog.ParseLevel(opts.Level)
    if err != nil {
        lvl = zerolog.InfoLevel
    }

    global = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
    log.Logger = global
    return nil
}

// Close ships events still queued for Axiom.
func Close() {
    if ship == nil { return }
    if err := ship.Close(); err != nil {
        fmt.Fprintf(os.Stderr, "axiom: %v\n", err)
    }
    ship = nil
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// ForJob returns a child logger tagged with the job id.
func ForJob(jobID string) zerolog.Logger {
    return log.Logger.With().Str("job_id", jobID).Logger()
}

// Convenience methods
func Debug(msg string) { global.Debug().Msg(msg) }
func Info(msg string)  { global.Info().Msg(msg) }
func Warn(msg string)  { global.Warn().Msg(msg) }
func Error(msg string) { global.Error().Msg(msg) }

// axiomWriter turns zerolog JSON lines into Axiom events. Debug lines stay
// local; lines that are not JSON are shipped as info messages.
type axiomWriter struct {
    ship    *shipper
    service string
}

func (w *axiomWriter) Write(p []byte) (int, error) {
    ev := axiom.Event{}
    if err := json.Unmarshal(p, &ev); err != nil {
        ev = axiom.Event{"message": string(bytes.TrimSpace(p)), "level": "info"}
    }
    if lvl, _ := ev["level"].(string); lvl == zerolog.LevelDebugValue || lvl == zerolog.LevelTraceValue {
        return len(p), nil
    }
    ev["service"] = w.service
    if _, ok := ev[ingest.TimestampField]; !ok {
        ev[ingest.TimestampField] = time.Now()
    }
    w.ship.enqueue(ev)
    return len(p), nil
}
