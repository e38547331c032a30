package orchestrator

import (
    "sync"
    "time"
)

// State is the coarse stage of a run as shown to users.
type State string

const (
    StateIdle       State = "IDLE"
    StateUploading  State = "UPLOADING"
    StateSplitting  State = "SPLITTING"
    StateExtracting State = "EXTRACTING"
    StateGenerating State = "GENERATING"
    StateDone       State = "DONE"
)

// Progress maps a state to a rough completion percentage.
func (s State) Progress() int {
    switch s {
    case StateUploading:
        return 5
    case StateSplitting:
        return 15
    case StateExtracting:
        return 30
    case StateGenerating:
        return 90
    case StateDone:
        return 100
    }
    return 0
}

type LogType string

const (
    LogInfo    LogType = "info"
    LogSuccess LogType = "success"
    LogWarning LogType = "warning"
)

// LogEntry is one user-facing line of the run log.
type LogEntry struct {
    Time    time.Time `json:"time"`
    Message string    `json:"message"`
    Type    LogType   `json:"type"`
}

// Observer receives run progress. Calls never overlap.
type Observer interface {
    SetState(State)
    Log(LogEntry)
    // PageDone is called once per resolved page.
    PageDone(page, total int)
}

type nopObserver struct{}

func (nopObserver) SetState(State)    {}
func (nopObserver) Log(LogEntry)      {}
func (nopObserver) PageDone(int, int) {}

// Recorder is an in-memory Observer.
type Recorder struct {
    mu     sync.Mutex
    states []State
    logs   []LogEntry
    pages  int
}

func (r *Recorder) SetState(s State) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.states = append(r.states, s)
}

func (r *Recorder) Log(e LogEntry) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.logs = append(r.logs, e)
}

func (r *Recorder) PageDone(page, total int) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.pages++
}

// States returns the states seen so far, in order.
func (r *Recorder) States() []State {
    r.mu.Lock()
    defer r.mu.Unlock()
    return append([]State(nil), r.states...)
}

// Logs returns a copy of the run log.
func (r *Recorder) Logs() []LogEntry {
    r.mu.Lock()
    defer r.mu.Unlock()
    return append([]LogEntry(nil), r.logs...)
}

// Pages returns how many pages were reported done.
func (r *Recorder) Pages() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.pages
}

// serialObserver guards an Observer so concurrent stages can report safely.
type serialObserver struct {
    mu    sync.Mutex
    inner Observer
}

func (s *serialObserver) SetState(st State) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.inner.SetState(st)
}

func (s *serialObserver) Log(e LogEntry) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.inner.Log(e)
}

func (s *serialObserver) PageDone(page, total int) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.inner.PageDone(page, total)
}
