package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/rs/zerolog"

    "github.com/local/ocrextractor/internal/ai"
    "github.com/local/ocrextractor/internal/assembler"
    "github.com/local/ocrextractor/internal/config"
    "github.com/local/ocrextractor/internal/dispatcher"
    "github.com/local/ocrextractor/internal/filetype"
    "github.com/local/ocrextractor/internal/imagerender"
    "github.com/local/ocrextractor/internal/logger"
    "github.com/local/ocrextractor/internal/metrics"
    "github.com/local/ocrextractor/internal/model"
    "github.com/local/ocrextractor/internal/mupdf"
)

// Document is an opened PDF.
type Document interface {
    PageSource
    Close() error
}

// Opener parses PDF bytes.
type Opener func(data []byte) (Document, error)

type Dependencies struct {
    Recognizer ai.Client
    Detector   *filetype.Detector
    Open       Opener                        // defaults to mupdf.Open
    CountPages func(data []byte) (int, error) // defaults to CountPages
}

type Options struct {
    Classify ClassifyOptions
    Dispatch dispatcher.Config
}

// Orchestrator runs the extraction pipeline:
// detect -> plan chunks -> classify pages -> resolve text -> assemble artifacts.
type Orchestrator struct {
    deps       Dependencies
    opts       Options
    dispatcher *dispatcher.Dispatcher
}

func New(deps Dependencies, opts Options) *Orchestrator {
    if deps.Detector == nil { deps.Detector = filetype.New() }
    if deps.Open == nil {
        deps.Open = func(data []byte) (Document, error) { return mupdf.Open(data) }
    }
    if deps.CountPages == nil { deps.CountPages = CountPages }
    if opts.Classify == (ClassifyOptions{}) { opts.Classify = DefaultClassifyOptions() }
    return &Orchestrator{deps: deps, opts: opts, dispatcher: dispatcher.New(opts.Dispatch, deps.Recognizer)}
}

// Result is everything a finished run produced.
type Result struct {
    JobID     string
    FileName  string
    MIMEType  string
    NumPages  int
    Chunks    []model.Chunk
    Pages     []model.ExtractedPage
    Artifacts []model.Artifact
    Degraded  bool
    Duration  time.Duration
}

// Validate checks that the input is a supported type. It runs before any
// chunk planning so bad uploads can be rejected synchronously.
func (o *Orchestrator) Validate(in Input) (*filetype.FileTypeInfo, error) {
    info, err := o.deps.Detector.DetectBytes(in.Data, in.Name)
    if err != nil {
        return nil, inputError(fmt.Sprintf("cannot read %q", in.Name), err)
    }
    if !info.Supported {
        return info, inputError(fmt.Sprintf("%q is not a PDF or image (%s)", in.Name, info.MIMEType), nil)
    }
    return info, nil
}

// Run processes one input end to end. On failure the observer is moved back
// to IDLE and the error is returned as *Error.
func (o *Orchestrator) Run(ctx context.Context, jobID string, in Input, obs Observer) (*Result, error) {
    if obs == nil { obs = nopObserver{} }
    obs = &serialObserver{inner: obs}
    lg := logger.ForJob(jobID)
    start := time.Now()
    finish := metrics.RunStarted()

    emit := func(typ LogType, format string, args ...any) {
        obs.Log(LogEntry{Time: time.Now(), Message: fmt.Sprintf(format, args...), Type: typ})
    }
    fail := func(err error) (*Result, error) {
        var runErr *Error
        if !errors.As(err, &runErr) {
            err = &Error{Kind: KindRecognition, Message: "run aborted", Err: err}
        }
        emit(LogWarning, "Error: %s", err.Error())
        obs.SetState(StateIdle)
        finish("error", string(KindOf(err)))
        lg.Error().Err(err).Str("kind", string(KindOf(err))).Dur("duration", time.Since(start)).Msg("run failed")
        return nil, err
    }

    obs.SetState(StateUploading)
    emit(LogInfo, "Starting processing for %q.", in.Name)
    lg.Info().Str("file", in.Name).Int("bytes", len(in.Data)).Msg("run started")

    info, err := o.Validate(in)
    if err != nil { return fail(err) }

    res := &Result{JobID: jobID, FileName: in.Name, MIMEType: info.MIMEType}
    size := int64(len(in.Data))
    obs.SetState(StateSplitting)

    var doc Document
    if info.IsImage {
        res.NumPages = 1
        emit(LogInfo, "%s detected. Processing as a single page.", info.Description)
    } else {
        doc, err = o.deps.Open(in.Data)
        if err != nil { return fail(inputError("cannot open PDF", err)) }
        defer doc.Close()

        res.NumPages = doc.NumPage()
        if err := o.checkPageTree(&lg, in.Data, res.NumPages); err != nil { return fail(err) }
        if res.NumPages <= 0 { return fail(inputError("PDF has no pages", nil)) }
    }

    res.Chunks = PlanChunks(res.NumPages, size)
    sizeMB := float64(size) / mib
    switch {
    case size < SplitThresholdBytes:
        emit(LogInfo, "File size (%.2fMB) < 10MB. Processing directly.", sizeMB)
    case size < LargeFileThresholdBytes:
        emit(LogInfo, "File size (%.2fMB) is between 10-19MB. Splitting into %d part(s).", sizeMB, len(res.Chunks))
    default:
        emit(LogInfo, "File size (%.2fMB) >= 19MB. Splitting into %d part(s) of up to %d pages.", sizeMB, len(res.Chunks), LargeChunkPages)
    }
    lg.Info().Int("pages", res.NumPages).Int("chunks", len(res.Chunks)).Str("mime", info.MIMEType).Msg("chunks planned")
    emit(LogSuccess, "Split plan complete.")

    obs.SetState(StateExtracting)
    done := 0
    onPage := func(ep model.ExtractedPage) {
        done++
        obs.PageDone(ep.PageNumber, res.NumPages)
    }
    for _, c := range res.Chunks {
        if len(res.Chunks) > 1 {
            emit(LogInfo, "Extracting part %d (pages %d-%d)...", c.Index, c.First(), c.Last())
        }

        var pages []model.Page
        if info.IsImage {
            pages = []model.Page{model.ImagePage(1, in.Data, info.MIMEType)}
        } else {
            pages, err = NewClassifier(doc, o.opts.Classify).ClassifyAll(ctx, c.Pages, nil)
            if err != nil { return fail(asRunError(err, KindRender)) }
        }
        text, images := countKinds(pages)
        if images > 0 { emit(LogInfo, "%d page(s) with embedded text, %d page(s) sent to OCR.", text, images) }

        extracted, err := o.dispatcher.Resolve(ctx, jobID, pages, onPage)
        if err != nil {
            var pe *dispatcher.PageError
            if errors.As(err, &pe) {
                return fail(&Error{Kind: KindRecognition, Page: pe.Page, Message: "text recognition failed", Err: pe.Err})
            }
            return fail(&Error{Kind: KindRecognition, Message: "text recognition failed", Err: err})
        }
        for _, ep := range extracted {
            res.Degraded = res.Degraded || ep.Degraded
        }
        res.Pages = append(res.Pages, extracted...)
    }
    if res.Degraded {
        emit(LogWarning, "Text recognition is not configured. Image pages contain simulated text.")
    }
    emit(LogSuccess, "Text extraction complete (%d page(s)).", done)

    obs.SetState(StateGenerating)
    emit(LogInfo, "Generating output files...")
    res.Artifacts, err = assembler.Assemble(res.Chunks, res.Pages)
    if err != nil { return fail(&Error{Kind: KindAssembly, Message: "cannot build output files", Err: err}) }
    emit(LogSuccess, "Output files generated.")

    res.Duration = time.Since(start)
    obs.SetState(StateDone)
    emit(LogSuccess, "Processing complete!")
    finish("ok", "")
    lg.Info().Int("pages", res.NumPages).Int("artifacts", len(res.Artifacts)).Bool("degraded", res.Degraded).Dur("duration", res.Duration).Msg("run finished")
    return res, nil
}

// asRunError keeps *Error values and wraps anything else (context
// cancellation) with the given kind.
func asRunError(err error, kind ErrorKind) error {
    var runErr *Error
    if errors.As(err, &runErr) { return err }
    return &Error{Kind: kind, Message: "run aborted", Err: err}
}

func countKinds(pages []model.Page) (text, images int) {
    for _, p := range pages {
        if p.Kind == model.KindText { text++ } else { images++ }
    }
    return text, images
}

// OptionsFromConfig maps env configuration onto pipeline options.
func OptionsFromConfig(cfg config.Config) Options {
    return Options{
        Classify: ClassifyOptions{
            Threshold:   cfg.Extraction.TextThreshold,
            DPI:         cfg.Extraction.RenderDPI,
            Quality:     cfg.Extraction.JPEGQuality,
            ColorMode:   imagerender.ColorMode(cfg.Extraction.ColorMode),
            MaxInflight: cfg.OCR.MaxInflight,
        },
        Dispatch: dispatcher.Config{
            MaxInflight: cfg.OCR.MaxInflight,
            Timeout:     cfg.OCR.Timeout,
        },
    }
}

// checkPageTree compares the readable page count with the count declared in
// the PDF page tree. Pages that are declared but unreadable would silently
// vanish from the output, so the file is rejected instead.
func (o *Orchestrator) checkPageTree(lg *zerolog.Logger, data []byte, readable int) error {
    declared, err := o.deps.CountPages(data)
    if err != nil {
        lg.Debug().Err(err).Int("pages", readable).Msg("page tree unreadable by pdfcpu, using MuPDF count")
        return nil
    }
    if declared > readable {
        return inputError(fmt.Sprintf("PDF page tree is damaged: %d pages declared, %d readable", declared, readable), nil)
    }
    if declared != readable {
        lg.Warn().Int("declared", declared).Int("readable", readable).Msg("page count mismatch, using MuPDF count")
    }
    return nil
}
