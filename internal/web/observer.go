package web

import (
    "context"

    "github.com/rs/zerolog/log"

    "github.com/local/ocrextractor/internal/orchestrator"
    "github.com/local/ocrextractor/internal/store"
)

// jobObserver mirrors run progress into the job store. The orchestrator
// serializes observer calls; run stops all writes once the job is released.
type jobObserver struct {
    ctx   context.Context
    store store.JobStore
    jobID string
    st    store.Status
    done  int
    run   *run
}

func (o *jobObserver) SetState(state orchestrator.State) {
    o.st.Status = string(state)
    o.st.Progress = state.Progress()
    o.save()
}

func (o *jobObserver) Log(e orchestrator.LogEntry) {
    line := store.LogLine{Time: e.Time, Message: e.Message, Type: string(e.Type)}
    o.st.Message = e.Message
    o.run.do(func() {
        if err := o.store.AppendLog(o.ctx, o.jobID, line); err != nil {
            log.Warn().Err(err).Str("job_id", o.jobID).Msg("append log failed")
        }
        o.write()
    })
}

// PageDone advances progress through the EXTRACTING band (30..90).
func (o *jobObserver) PageDone(page, total int) {
    o.done++
    if total > 0 {
        lo, hi := orchestrator.StateExtracting.Progress(), orchestrator.StateGenerating.Progress()
        o.st.Progress = lo + (hi-lo)*o.done/total
    }
    if o.st.Metadata == nil { o.st.Metadata = map[string]interface{}{} }
    o.st.Metadata["pages_done"] = o.done
    o.st.Metadata["total_pages"] = total
    o.save()
}

func (o *jobObserver) save() { o.run.do(o.write) }

// write stores the status; callers hold the run guard.
func (o *jobObserver) write() {
    if err := o.store.Set(o.ctx, o.jobID, o.st); err != nil {
        log.Warn().Err(err).Str("job_id", o.jobID).Msg("status update failed")
    }
}
