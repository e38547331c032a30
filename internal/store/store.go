package store

import (
    "context"
    "errors"
    "time"

    "github.com/local/ocrextractor/internal/config"
    "github.com/local/ocrextractor/internal/model"
)

// ErrNotFound is returned for unknown or expired jobs and artifacts.
var ErrNotFound = errors.New("not found")

type Status struct {
    Status    string                 `json:"status"`
    Progress  int                    `json:"progress"`
    Message   string                 `json:"message"`
    Start     *time.Time             `json:"start_time,omitempty"`
    End       *time.Time             `json:"end_time,omitempty"`
    Degraded  bool                   `json:"degraded"`
    Error     string                 `json:"error,omitempty"`
    Artifacts []ArtifactInfo         `json:"artifacts,omitempty"`
    Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ArtifactInfo describes a stored artifact without its content.
type ArtifactInfo struct {
    Name      string `json:"name"`
    MediaType string `json:"media_type"`
    Chunk     int    `json:"chunk"`
    Size      int    `json:"size"`
}

// LogLine is one entry of a job's run log.
type LogLine struct {
    Time    time.Time `json:"time"`
    Message string    `json:"message"`
    Type    string    `json:"type"`
}

// JobStore keeps transient job state. Everything written for a job expires
// after the store's TTL unless released earlier.
type JobStore interface {
    Set(ctx context.Context, jobID string, st Status) error
    Get(ctx context.Context, jobID string) (Status, bool, error)
    AppendLog(ctx context.Context, jobID string, line LogLine) error
    Logs(ctx context.Context, jobID string) ([]LogLine, error)
    SaveArtifacts(ctx context.Context, jobID string, arts []model.Artifact) error
    GetArtifact(ctx context.Context, jobID, name string) (model.Artifact, error)
    Release(ctx context.Context, jobID string) error
    Ping(ctx context.Context) error
    Close() error
}

// New returns a Redis store when REDIS_URL is set and an in-memory one otherwise.
func New(cfg config.StoreConfig) (JobStore, error) {
    if cfg.RedisURL == "" {
        return NewMemory(cfg.ResultTTL), nil
    }
    return NewRedis(cfg.RedisURL, cfg.ResultTTL)
}

// Describe lists artifacts as ArtifactInfo in their original order.
func Describe(arts []model.Artifact) []ArtifactInfo {
    out := make([]ArtifactInfo, len(arts))
    for i, a := range arts {
        out[i] = ArtifactInfo{Name: a.Name, MediaType: a.MediaType, Chunk: a.Chunk, Size: len(a.Content)}
    }
    return out
}
