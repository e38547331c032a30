package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "os"
    "path"
    "path/filepath"
    "strings"

    "github.com/rs/zerolog/log"

    "github.com/local/ocrextractor/internal/storage"
)

// Input is a document held in memory.
type Input struct {
    Name string
    Data []byte
}

// ObjectFetcher downloads s3://bucket/key references.
type ObjectFetcher interface {
    Fetch(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, error)
}

// Loader resolves a file reference into an Input.
// Supports:
// - file://path or absolute/relative filesystem paths
// - http(s):// URLs
// - s3://bucket/key (when an ObjectFetcher is configured)
//
// A Restricted loader only reads local files inside Root (none when Root is
// empty) and only fetches URLs whose host is in AllowedHosts.
type Loader struct {
    HTTP     *http.Client
    S3       ObjectFetcher
    MaxBytes int64 // 0 = unlimited

    Restricted   bool
    Root         string
    AllowedHosts []string
}

// Load reads ref fully into memory. Unreachable or oversized references are
// input errors.
func (l *Loader) Load(ctx context.Context, ref string) (Input, error) {
    ref = strings.TrimSpace(ref)
    // Strip optional #page fragment if present
    if i := strings.Index(ref, "#"); i >= 0 {
        ref = ref[:i]
    }
    if ref == "" {
        return Input{}, inputError("empty file reference", nil)
    }

    var (
        in  Input
        err error
    )
    switch {
    case strings.HasPrefix(ref, "s3://"):
        in, err = l.loadS3(ctx, ref)
    case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
        in, err = l.loadHTTP(ctx, ref)
    default:
        in, err = l.loadFile(strings.TrimPrefix(ref, "file://"))
    }
    if err != nil {
        if KindOf(err) != "" { return Input{}, err }
        return Input{}, inputError(fmt.Sprintf("cannot read %s", ref), err)
    }
    log.Info().Str("ref", ref).Str("name", in.Name).Int("bytes", len(in.Data)).Msg("loaded input file")
    return in, nil
}

func (l *Loader) loadFile(p string) (Input, error) {
    p, err := l.localPath(p)
    if err != nil { return Input{}, err }
    st, err := os.Stat(p)
    if err != nil { return Input{}, err }
    if st.IsDir() { return Input{}, fmt.Errorf("%s is a directory", p) }
    if err := l.checkSize(st.Size()); err != nil { return Input{}, err }
    data, err := os.ReadFile(p)
    if err != nil { return Input{}, err }
    return Input{Name: filepath.Base(p), Data: data}, nil
}

func (l *Loader) loadHTTP(ctx context.Context, rawURL string) (Input, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
    if err != nil { return Input{}, err }
    if err := l.checkHost(req.URL); err != nil { return Input{}, err }
    client := l.HTTP
    if client == nil { client = http.DefaultClient }
    if l.Restricted {
        // redirects must stay on allowed hosts too
        c := *client
        c.CheckRedirect = func(r *http.Request, via []*http.Request) error {
            if len(via) >= 10 { return errors.New("stopped after 10 redirects") }
            return l.checkHost(r.URL)
        }
        client = &c
    }
    resp, err := client.Do(req)
    if err != nil { return Input{}, err }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK { return Input{}, fmt.Errorf("http %d", resp.StatusCode) }
    if err := l.checkSize(resp.ContentLength); err != nil { return Input{}, err }

    var body io.Reader = resp.Body
    if l.MaxBytes > 0 { body = io.LimitReader(resp.Body, l.MaxBytes+1) }
    data, err := io.ReadAll(body)
    if err != nil { return Input{}, err }
    if err := l.checkSize(int64(len(data))); err != nil { return Input{}, err }

    name := "download"
    if u, err := url.Parse(rawURL); err == nil {
        if b := path.Base(u.Path); b != "/" && b != "." { name = b }
    }
    return Input{Name: name, Data: data}, nil
}

func (l *Loader) loadS3(ctx context.Context, ref string) (Input, error) {
    if l.S3 == nil { return Input{}, errors.New("s3 inputs are not configured") }
    bucket, key, err := storage.ParseURL(ref)
    if err != nil { return Input{}, err }
    data, err := l.S3.Fetch(ctx, bucket, key, l.MaxBytes)
    if err != nil { return Input{}, err }
    return Input{Name: path.Base(key), Data: data}, nil
}

// localPath resolves p for reading. Restricted loaders resolve relative paths
// against Root and refuse anything that ends up outside it.
func (l *Loader) localPath(p string) (string, error) {
    if !l.Restricted { return p, nil }
    if l.Root == "" { return "", errors.New("local files are not accepted") }
    root, err := filepath.Abs(l.Root)
    if err != nil { return "", err }
    if r, err := filepath.EvalSymlinks(root); err == nil { root = r }

    full := p
    if !filepath.IsAbs(full) { full = filepath.Join(root, full) }
    full = filepath.Clean(full)
    if r, err := filepath.EvalSymlinks(full); err == nil { full = r }

    rel, err := filepath.Rel(root, full)
    if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
        return "", fmt.Errorf("%s is outside the input root", p)
    }
    return full, nil
}

func (l *Loader) checkHost(u *url.URL) error {
    if !l.Restricted { return nil }
    host := strings.ToLower(u.Hostname())
    for _, h := range l.AllowedHosts {
        if strings.EqualFold(h, host) { return nil }
    }
    return fmt.Errorf("host %q is not allowed", host)
}

func (l *Loader) checkSize(n int64) error {
    if l.MaxBytes > 0 && n > l.MaxBytes {
        return fmt.Errorf("file is %d bytes, limit is %d: %w", n, l.MaxBytes, storage.ErrTooLarge)
    }
    return nil
}
