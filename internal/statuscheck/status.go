package statuscheck

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/local/ocrextractor/internal/mupdf"
)

// Pinger models the minimal store capability we need for status checks.
type Pinger interface {
    Ping(ctx context.Context) error
}

// BucketPinger checks access to an S3 bucket.
type BucketPinger interface {
    Ping(ctx context.Context, bucket string) error
}

// Checker aggregates health checks for the dependencies of a run.
type Checker struct {
    store      Pinger
    s3         BucketPinger
    s3Bucket   string
    engine     string
    configured bool
}

// Options configures the Checker.
type Options struct {
    Store            Pinger
    S3               BucketPinger
    S3Bucket         string
    Engine           string
    EngineConfigured bool
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    Store      Status `json:"store"`
    S3         Status `json:"s3"`
    Recognizer Status `json:"recognizer"`
    MuPDF      Status `json:"mupdf"`
}

// Healthy reports whether a run can complete without degraded output.
func (s Summary) Healthy() bool { return s.Store.OK && s.Recognizer.OK && s.MuPDF.OK }

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
    return &Checker{
        store:      opts.Store,
        s3:         opts.S3,
        s3Bucket:   opts.S3Bucket,
        engine:     opts.Engine,
        configured: opts.EngineConfigured,
    }
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
    return Summary{
        Store:      c.checkStore(ctx),
        S3:         c.checkS3(ctx),
        Recognizer: c.checkRecognizer(),
        MuPDF:      c.checkMuPDF(),
    }
}

func (c *Checker) checkStore(ctx context.Context) Status {
    if c.store == nil {
        return Status{OK: false, Message: "client unavailable"}
    }
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := c.store.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
    if c.s3 == nil || c.s3Bucket == "" {
        return Status{OK: false, Message: "Bucket not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := c.s3.Ping(ctx, c.s3Bucket); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkRecognizer() Status {
    if !c.configured {
        return Status{OK: false, Message: fmt.Sprintf("%s not configured, image pages get simulated text", c.engine)}
    }
    return Status{OK: true, Message: fmt.Sprintf("%s configured", c.engine)}
}

// samplePDF is a one-page document; MuPDF rebuilds its missing xref table.
const samplePDF = "%PDF-1.4\n" +
    "1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
    "2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
    "3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 10 10] >>\nendobj\n" +
    "trailer\n<< /Root 1 0 R >>\n%%EOF\n"

func (c *Checker) checkMuPDF() Status {
    doc, err := mupdf.Open([]byte(samplePDF))
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    defer doc.Close()
    if doc.NumPage() != 1 {
        return Status{OK: false, Message: fmt.Sprintf("sample document has %d pages", doc.NumPage())}
    }
    return Status{OK: true, Message: "Available"}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}
