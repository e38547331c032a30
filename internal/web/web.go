package web

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/ocrextractor/internal/filetype"
    "github.com/local/ocrextractor/internal/orchestrator"
    "github.com/local/ocrextractor/internal/statuscheck"
    "github.com/local/ocrextractor/internal/store"
)

// Runner executes extraction runs.
type Runner interface {
    Validate(in orchestrator.Input) (*filetype.FileTypeInfo, error)
    Run(ctx context.Context, jobID string, in orchestrator.Input, obs orchestrator.Observer) (*orchestrator.Result, error)
}

// InputLoader resolves file references sent to /process_file.
type InputLoader interface {
    Load(ctx context.Context, ref string) (orchestrator.Input, error)
}

// StatusReporter provides the /status snapshot.
type StatusReporter interface {
    Summary(ctx context.Context) statuscheck.Summary
}

type Options struct {
    Store          store.JobStore
    Runner         Runner
    Loader         InputLoader
    Status         StatusReporter
    MaxUploadBytes int64 // 0 = unlimited
}

// Server exposes the extraction pipeline over HTTP. Runs execute in the
// background; clients poll /progress and fetch artifacts from /download.
type Server struct {
    store     store.JobStore
    runner    Runner
    loader    InputLoader
    status    StatusReporter
    maxUpload int64

    ctx    context.Context
    cancel context.CancelFunc
    wg     sync.WaitGroup

    mu   sync.Mutex
    runs map[string]*run
}

// run tracks one background job. Store writes go through do so that a reset
// either happens before a write or after it, never in the middle.
type run struct {
    cancel context.CancelFunc

    mu       sync.Mutex
    released bool
}

// do calls fn unless the job has been released.
func (r *run) do(fn func()) bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.released { return false }
    fn()
    return true
}

// release cancels the run and calls fn with all store writes blocked.
func (r *run) release(fn func() error) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.released = true
    r.cancel()
    return fn()
}

func New(opts Options) *Server {
    ctx, cancel := context.WithCancel(context.Background())
    return &Server{
        store:     opts.Store,
        runner:    opts.Runner,
        loader:    opts.Loader,
        status:    opts.Status,
        maxUpload: opts.MaxUploadBytes,
        ctx:       ctx,
        cancel:    cancel,
        runs:      map[string]*run{},
    }
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request){ w.WriteHeader(http.StatusOK); _,_ = w.Write([]byte("ok")) })
    mux.HandleFunc("/status", s.handleStatus)
    mux.HandleFunc("/process_file_upload", s.handleProcessUpload)
    mux.HandleFunc("/process_file", s.handleProcess)
    mux.HandleFunc("/progress/", s.handleProgress)
    mux.HandleFunc("/download/", s.handleDownload)
    mux.HandleFunc("/reset/", s.handleReset)
}

// Shutdown cancels in-flight runs and waits for them to finish or for ctx
// to expire.
func (s *Server) Shutdown(ctx context.Context) error {
    s.cancel()
    done := make(chan struct{})
    go func() { s.wg.Wait(); close(done) }()
    select {
    case <-done:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

// Wait blocks until all background runs have returned.
func (s *Server) Wait() { s.wg.Wait() }

type processReq struct {
    FilePath string `json:"file_path"`
    FileURL  string `json:"file_url"`
}

type processResp struct {
    Status   string                 `json:"status"`
    JobID    string                 `json:"job_id,omitempty"`
    Message  string                 `json:"message"`
    Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

func writeInputError(w http.ResponseWriter, err error) {
    writeJSON(w, http.StatusBadRequest, processResp{Status: "error", Message: err.Error()})
}

// handleProcessUpload accepts a multipart upload with the document in the "file" field.
func (s *Server) handleProcessUpload(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    if s.maxUpload > 0 {
        // multipart framing adds a little on top of the file itself
        r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
    }
    if err := r.ParseMultipartForm(64 << 20); err != nil { // 64MB in memory before temp files
        var tooBig *http.MaxBytesError
        if errors.As(err, &tooBig) { http.Error(w, "file too large", http.StatusRequestEntityTooLarge); return }
        http.Error(w, "invalid multipart form", http.StatusBadRequest); return
    }
    defer r.MultipartForm.RemoveAll()
    file, hdr, err := r.FormFile("file")
    if err != nil { http.Error(w, "missing file", http.StatusBadRequest); return }
    defer file.Close()
    if s.maxUpload > 0 && hdr.Size > s.maxUpload {
        http.Error(w, "file too large", http.StatusRequestEntityTooLarge); return
    }
    data, err := io.ReadAll(file)
    if err != nil { http.Error(w, "read failed", http.StatusInternalServerError); return }

    name := hdr.Filename
    if name == "" { name = "upload" }
    s.start(w, r, orchestrator.Input{Name: name, Data: data}, "upload")
}

// handleProcess loads the document from a path, URL or s3:// reference.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    defer r.Body.Close()
    var req processReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid json", http.StatusBadRequest); return
    }
    ref := req.FilePath
    if ref == "" { ref = req.FileURL }
    if ref == "" { http.Error(w, "missing file_path/file_url", http.StatusBadRequest); return }
    if s.loader == nil { http.Error(w, "file references are not supported", http.StatusNotImplemented); return }

    in, err := s.loader.Load(r.Context(), ref)
    if err != nil {
        if orchestrator.IsInputError(err) { writeInputError(w, err); return }
        log.Error().Err(err).Str("ref", ref).Msg("load failed")
        http.Error(w, "load failed", http.StatusInternalServerError); return
    }
    s.start(w, r, in, "reference")
}

// start validates the input synchronously, records the job and launches
// the run in the background.
func (s *Server) start(w http.ResponseWriter, r *http.Request, in orchestrator.Input, source string) {
    info, err := s.runner.Validate(in)
    if err != nil {
        log.Warn().Err(err).Str("file", in.Name).Msg("input rejected")
        writeInputError(w, err); return
    }

    jobID := uuid.NewString()
    start := time.Now()
    st := store.Status{
        Status:   string(orchestrator.StateIdle),
        Message:  "queued",
        Start:    &start,
        Metadata: map[string]interface{}{"file": in.Name, "mime": info.MIMEType, "bytes": len(in.Data), "source": source},
    }
    if err := s.store.Set(r.Context(), jobID, st); err != nil {
        log.Error().Err(err).Str("job_id", jobID).Msg("status store unavailable")
        http.Error(w, "store unavailable", http.StatusServiceUnavailable); return
    }
    log.Info().Str("job_id", jobID).Str("file", in.Name).Str("mime", info.MIMEType).Str("source", source).Msg("job created")

    runCtx, cancel := context.WithCancel(s.ctx)
    rn := &run{cancel: cancel}
    s.mu.Lock()
    s.runs[jobID] = rn
    s.mu.Unlock()

    s.wg.Add(1)
    go func() {
        defer s.wg.Done()
        defer func() {
            s.mu.Lock()
            delete(s.runs, jobID)
            s.mu.Unlock()
            cancel()
        }()
        s.execute(runCtx, rn, jobID, in, st)
    }()

    writeJSON(w, http.StatusCreated, processResp{
        Status:   "ok",
        JobID:    jobID,
        Message:  "File processing job created successfully",
        Metadata: map[string]interface{}{"file": in.Name, "mime": info.MIMEType, "timestamp": start.Format(time.RFC3339)},
    })
}

func (s *Server) execute(runCtx context.Context, rn *run, jobID string, in orchestrator.Input, st store.Status) {
    obs := &jobObserver{ctx: runCtx, store: s.store, jobID: jobID, st: st, run: rn}
    res, err := s.runner.Run(runCtx, jobID, in, obs)

    // the run context may be canceled on shutdown; the final status still gets written
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    obs.ctx = ctx

    end := time.Now()
    obs.st.End = &end
    if err != nil {
        obs.st.Error = err.Error()
        obs.st.Message = err.Error()
        obs.save()
        return
    }
    saved := rn.do(func() {
        if err := s.store.SaveArtifacts(ctx, jobID, res.Artifacts); err != nil {
            log.Error().Err(err).Str("job_id", jobID).Msg("saving artifacts failed")
            obs.st.Status = string(orchestrator.StateIdle)
            obs.st.Progress = 0
            obs.st.Error = fmt.Sprintf("saving artifacts: %v", err)
            obs.write()
            return
        }
        obs.st.Degraded = res.Degraded
        obs.st.Artifacts = store.Describe(res.Artifacts)
        obs.st.Metadata["total_pages"] = res.NumPages
        obs.st.Metadata["chunks"] = len(res.Chunks)
        obs.st.Metadata["duration_ms"] = res.Duration.Milliseconds()
        obs.write()
    })
    if !saved {
        log.Info().Str("job_id", jobID).Msg("job released before completion, results discarded")
    }
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/progress/")
    st, ok, err := s.store.Get(r.Context(), id)
    if err != nil { http.Error(w, "error", 500); return }
    if !ok { http.Error(w, "not found", http.StatusNotFound); return }
    logs, err := s.store.Logs(r.Context(), id)
    if err != nil { http.Error(w, "error", 500); return }
    if logs == nil { logs = []store.LogLine{} }
    writeJSON(w, http.StatusOK, map[string]any{
        "success":    st.Status == string(orchestrator.StateDone),
        "job_id":     id,
        "status":     st.Status,
        "progress":   st.Progress,
        "message":    st.Message,
        "degraded":   st.Degraded,
        "error":      st.Error,
        "start_time": st.Start,
        "end_time":   st.End,
        "artifacts":  st.Artifacts,
        "metadata":   st.Metadata,
        "logs":       logs,
    })
}

// handleDownload serves /download/{job_id}/{artifact}.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/download/")
    id, name, ok := strings.Cut(rest, "/")
    if !ok || id == "" || name == "" || strings.Contains(name, "/") {
        http.Error(w, "expected /download/{job_id}/{name}", http.StatusBadRequest); return
    }
    a, err := s.store.GetArtifact(r.Context(), id, name)
    if errors.Is(err, store.ErrNotFound) { http.Error(w, "not found", http.StatusNotFound); return }
    if err != nil { http.Error(w, "failed to read", 500); return }
    w.Header().Set("Content-Type", a.MediaType)
    w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
    _, _ = w.Write(a.Content)
}

// handleReset releases everything stored for a job.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    id := strings.TrimPrefix(r.URL.Path, "/reset/")
    if id == "" { http.Error(w, "missing job_id", http.StatusBadRequest); return }
    release := func() error { return s.store.Release(r.Context(), id) }
    s.mu.Lock()
    rn := s.runs[id]
    s.mu.Unlock()
    var err error
    if rn != nil {
        err = rn.release(release)
    } else {
        err = release()
    }
    if err != nil {
        log.Error().Err(err).Str("job_id", id).Msg("reset failed")
        http.Error(w, "reset failed", 500); return
    }
    log.Info().Str("job_id", id).Msg("job released")
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "job_id": id, "status": string(orchestrator.StateIdle)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
    if s.status == nil { http.Error(w, "status unavailable", http.StatusNotImplemented); return }
    sum := s.status.Summary(r.Context())
    code := http.StatusOK
    if !sum.Healthy() { code = http.StatusServiceUnavailable }
    writeJSON(w, code, sum)
}
