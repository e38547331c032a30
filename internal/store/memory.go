package store

import (
    "context"
    "sync"
    "time"

    "github.com/local/ocrextractor/internal/model"
)

type memJob struct {
    status    *Status
    logs      []LogLine
    artifacts map[string]model.Artifact
    expires   time.Time
}

// Memory is a process-local JobStore.
type Memory struct {
    mu   sync.Mutex
    jobs map[string]*memJob
    ttl  time.Duration
    now  func() time.Time
}

// NewMemory creates a store whose jobs expire ttl after their last write (0 = never).
func NewMemory(ttl time.Duration) *Memory {
    return &Memory{jobs: map[string]*memJob{}, ttl: ttl, now: time.Now}
}

// job returns the live entry for jobID, creating it when create is set.
// Callers hold m.mu.
func (m *Memory) job(jobID string, create bool) *memJob {
    now := m.now()
    j, ok := m.jobs[jobID]
    if ok && m.ttl > 0 && now.After(j.expires) {
        delete(m.jobs, jobID)
        ok = false
    }
    if !ok {
        if !create { return nil }
        j = &memJob{artifacts: map[string]model.Artifact{}}
        m.jobs[jobID] = j
    }
    if create { j.expires = now.Add(m.ttl) }
    return j
}

func (m *Memory) sweep() {
    if m.ttl <= 0 { return }
    now := m.now()
    for id, j := range m.jobs {
        if now.After(j.expires) { delete(m.jobs, id) }
    }
}

func (m *Memory) Set(ctx context.Context, jobID string, st Status) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.sweep()
    cp := st
    m.job(jobID, true).status = &cp
    return nil
}

func (m *Memory) Get(ctx context.Context, jobID string) (Status, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    j := m.job(jobID, false)
    if j == nil || j.status == nil { return Status{}, false, nil }
    return *j.status, true, nil
}

func (m *Memory) AppendLog(ctx context.Context, jobID string, line LogLine) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    j := m.job(jobID, true)
    j.logs = append(j.logs, line)
    return nil
}

func (m *Memory) Logs(ctx context.Context, jobID string) ([]LogLine, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    j := m.job(jobID, false)
    if j == nil { return nil, nil }
    return append([]LogLine(nil), j.logs...), nil
}

func (m *Memory) SaveArtifacts(ctx context.Context, jobID string, arts []model.Artifact) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    j := m.job(jobID, true)
    for _, a := range arts {
        j.artifacts[a.Name] = a
    }
    return nil
}

func (m *Memory) GetArtifact(ctx context.Context, jobID, name string) (model.Artifact, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    j := m.job(jobID, false)
    if j == nil { return model.Artifact{}, ErrNotFound }
    a, ok := j.artifacts[name]
    if !ok { return model.Artifact{}, ErrNotFound }
    return a, nil
}

func (m *Memory) Release(ctx context.Context, jobID string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.jobs, jobID)
    return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
func (m *Memory) Close() error                  { return nil }
