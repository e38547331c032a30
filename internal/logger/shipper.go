package logger

import (
    "context"
    "errors"
    "fmt"
    "io"
    "sync"
    "sync/atomic"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/axiomhq/axiom-go/axiom/ingest"
)

const (
    defaultBatchSize  = 200
    defaultQueueSize  = 1000
    defaultFlushEvery = 10 * time.Second
    ingestTimeout     = 15 * time.Second
)

// ingester is the part of *axiom.Client the shipper needs.
type ingester interface {
    IngestEvents(ctx context.Context, id string, events []axiom.Event, options ...ingest.Option) (*ingest.Status, error)
}

type shipperOptions struct {
    BatchSize  int
    QueueSize  int
    FlushEvery time.Duration
    // Errors receives one line per failed ingest.
    Errors     io.Writer
}

// shipper queues log events and ingests them into one dataset in batches.
// A batch goes out when it reaches BatchSize, on every FlushEvery tick, and
// on Close. Events that do not fit in the queue are counted and dropped.
type shipper struct {
    sink    ingester
    dataset string
    opts    shipperOptions

    queue   chan axiom.Event
    stop    chan struct{}
    done    chan struct{}
    once    sync.Once
    dropped atomic.Int64

    mu      sync.Mutex
    failed  int
    lastErr error
}

func newShipper(sink ingester, dataset string, opts shipperOptions) *shipper {
    if opts.BatchSize <= 0 { opts.BatchSize = defaultBatchSize }
    if opts.QueueSize <= 0 { opts.QueueSize = defaultQueueSize }
    if opts.FlushEvery <= 0 { opts.FlushEvery = defaultFlushEvery }
    if opts.Errors == nil { opts.Errors = io.Discard }
    return &shipper{
        sink:    sink,
        dataset: dataset,
        opts:    opts,
        queue:   make(chan axiom.Event, opts.QueueSize),
        stop:    make(chan struct{}),
        done:    make(chan struct{}),
    }
}

// newAxiomShipper builds an Axiom client and starts shipping to dataset.
func newAxiomShipper(token, orgID, dataset string, opts shipperOptions) (*shipper, error) {
    if dataset == "" { dataset = "dev_" + defaultService }
    clientOpts := []axiom.Option{axiom.SetToken(token)}
    if orgID != "" { clientOpts = append(clientOpts, axiom.SetOrganizationID(orgID)) }
    c, err := axiom.NewClient(clientOpts...)
    if err != nil { return nil, err }
    s := newShipper(c, dataset, opts)
    s.start()
    return s, nil
}

func (s *shipper) start() { go s.run() }

// enqueue never blocks the logging goroutine.
func (s *shipper) enqueue(ev axiom.Event) {
    select {
    case s.queue <- ev:
    default:
        s.dropped.Add(1)
    }
}

func (s *shipper) run() {
    defer close(s.done)
    ticker := time.NewTicker(s.opts.FlushEvery)
    defer ticker.Stop()

    batch := make([]axiom.Event, 0, s.opts.BatchSize)
    send := func() {
        if len(batch) == 0 { return }
        s.ingest(batch)
        batch = make([]axiom.Event, 0, s.opts.BatchSize)
    }
    for {
        select {
        case ev := <-s.queue:
            batch = append(batch, ev)
            if len(batch) >= s.opts.BatchSize { send() }
        case <-ticker.C:
            send()
        case <-s.stop:
            for {
                select {
                case ev := <-s.queue:
                    batch = append(batch, ev)
                    if len(batch) >= s.opts.BatchSize { send() }
                default:
                    send()
                    return
                }
            }
        }
    }
}

func (s *shipper) ingest(batch []axiom.Event) {
    ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
    defer cancel()
    status, err := s.sink.IngestEvents(ctx, s.dataset, batch)
    if err == nil && status != nil && status.Failed > 0 {
        err = fmt.Errorf("%d of %d events rejected", status.Failed, len(batch))
    }
    if err == nil { return }
    // the logger cannot log its own failures
    fmt.Fprintf(s.opts.Errors, "axiom ingest into %s failed: %v\n", s.dataset, err)
    s.mu.Lock()
    s.failed++
    s.lastErr = err
    s.mu.Unlock()
}

// Close ingests what is still queued and reports dropped events and the
// last ingest failure.
func (s *shipper) Close() error {
    s.once.Do(func() { close(s.stop) })
    <-s.done

    var errs []error
    if n := s.dropped.Load(); n > 0 {
        errs = append(errs, fmt.Errorf("%d events dropped, queue full", n))
    }
    s.mu.Lock()
    if s.lastErr != nil {
        errs = append(errs, fmt.Errorf("%d batches failed, last: %w", s.failed, s.lastErr))
    }
    s.mu.Unlock()
    return errors.Join(errs...)
}
