package dispatcher

import (
    "context"
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"

    "github.com/local/ocrextractor/internal/ai"
    "github.com/local/ocrextractor/internal/metrics"
    "github.com/local/ocrextractor/internal/model"
)

// NoTextPlaceholder replaces an empty recognition result.
const NoTextPlaceholder = "[No text found on this page]"

// SimulatedText is the stand-in text used when no recognizer is configured.
func SimulatedText(page int) string {
    return fmt.Sprintf("[SIMULATED OCR] Page %d: text recognition is not configured, this page was not read.", page)
}

type Config struct {
    MaxInflight int           // 0 = unbounded
    Timeout     time.Duration // per recognition call, 0 = none
    Model       string
    Prompt      string
}

// Dispatcher resolves classified pages into extracted text.
type Dispatcher struct {
    cfg    Config
    client ai.Client
}

func New(cfg Config, client ai.Client) *Dispatcher {
    return &Dispatcher{cfg: cfg, client: client}
}

// Resolve returns one ExtractedPage per input page, sorted by page number.
// Text pages pass through; image pages go to the recognizer concurrently.
// ai.ErrNotConfigured degrades the page to simulated text, any other
// recognition error aborts and is returned as *PageError. onPage, if set,
// is called once per resolved page, never concurrently.
func (d *Dispatcher) Resolve(ctx context.Context, jobID string, pages []model.Page, onPage func(model.ExtractedPage)) ([]model.ExtractedPage, error) {
    out := make([]model.ExtractedPage, len(pages))
    var mu sync.Mutex
    report := func(i int, ep model.ExtractedPage) {
        out[i] = ep
        metrics.ObservePageResolved(string(ep.Source))
        if onPage == nil { return }
        mu.Lock()
        defer mu.Unlock()
        onPage(ep)
    }

    g, gctx := errgroup.WithContext(ctx)
    if d.cfg.MaxInflight > 0 { g.SetLimit(d.cfg.MaxInflight) }

    for i, p := range pages {
        if p.Kind == model.KindText {
            report(i, model.ExtractedPage{PageNumber: p.Number, Text: p.Text, Source: model.SourceText})
            continue
        }
        g.Go(func() error {
            ep, err := d.recognize(gctx, jobID, p)
            if err != nil { return err }
            report(i, ep)
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return nil, err
    }

    sort.SliceStable(out, func(a, b int) bool { return out[a].PageNumber < out[b].PageNumber })
    return out, nil
}

func (d *Dispatcher) recognize(ctx context.Context, jobID string, p model.Page) (model.ExtractedPage, error) {
    if err := ctx.Err(); err != nil { return model.ExtractedPage{}, err }
    if d.client == nil {
        return d.simulated(jobID, p, ai.ErrNotConfigured), nil
    }

    callCtx := ctx
    if d.cfg.Timeout > 0 {
        var cancel context.CancelFunc
        callCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
        defer cancel()
    }

    start := time.Now()
    resp, err := d.client.Do(callCtx, ai.Request{
        JobID:     jobID,
        PageID:    p.Number,
        Model:     d.cfg.Model,
        Prompt:    d.cfg.Prompt,
        Image:     p.Image,
        ImageMIME: p.MIMEType,
    })
    dur := time.Since(start)
    metrics.ObserveRecognition(d.client.Name(), classifyResult(resp.Text, err), dur)

    switch {
    case ai.IsNotConfigured(err):
        return d.simulated(jobID, p, err), nil
    case err != nil:
        log.Error().Err(err).Str("job_id", jobID).Int("page", p.Number).Str("provider", d.client.Name()).Dur("duration", dur).Msg("recognition failed")
        return model.ExtractedPage{}, &PageError{Page: p.Number, Provider: d.client.Name(), Err: err}
    case resp.Text == "":
        log.Info().Str("job_id", jobID).Int("page", p.Number).Msg("recognizer returned no text")
        return model.ExtractedPage{PageNumber: p.Number, Text: NoTextPlaceholder, Source: model.SourcePlaceholder}, nil
    }

    log.Info().Str("job_id", jobID).Int("page", p.Number).Str("provider", d.client.Name()).
        Int("chars", len(resp.Text)).Int("tokens_in", resp.TokensIn).Int("tokens_out", resp.TokensOut).
        Dur("duration", dur).Msg("page recognized")
    return model.ExtractedPage{PageNumber: p.Number, Text: resp.Text, Source: model.SourceOCR}, nil
}

func (d *Dispatcher) simulated(jobID string, p model.Page, cause error) model.ExtractedPage {
    log.Warn().Err(cause).Str("job_id", jobID).Int("page", p.Number).Msg("recognizer not configured, using simulated text")
    return model.ExtractedPage{PageNumber: p.Number, Text: SimulatedText(p.Number), Source: model.SourceSimulated, Degraded: true}
}
