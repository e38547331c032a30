package metrics

import (
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ocrextractor"

var (
    recognitionReqs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "recognition_requests_total",
            Help:      "Total recognition requests by engine and result",
        },
        []string{"engine", "result"},
    )

    recognitionLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: namespace,
            Name:      "recognition_request_duration_seconds",
            Help:      "Duration of recognition requests by engine",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"engine"},
    )

    pagesClassified = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "pages_classified_total",
            Help:      "Pages classified by kind (text, image)",
        },
        []string{"kind"},
    )

    pagesResolved = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "pages_resolved_total",
            Help:      "Extracted pages by text source (text, ocr, placeholder, simulated)",
        },
        []string{"source"},
    )

    runsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "runs_total",
            Help:      "Extraction runs by outcome and error kind",
        },
        []string{"result", "kind"},
    )

    runLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: namespace,
            Name:      "run_duration_seconds",
            Help:      "Duration of extraction runs by outcome",
            Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
        },
        []string{"result"},
    )

    activeRuns = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: namespace,
            Name:      "active_runs",
            Help:      "Extraction runs currently in progress",
        },
    )
)

var registerOnce sync.Once

// Init registers collectors. Safe to call more than once.
func Init() {
    registerOnce.Do(func() {
        prometheus.MustRegister(recognitionReqs, recognitionLatency, pagesClassified, pagesResolved, runsTotal, runLatency, activeRuns)
    })
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveRecognition(engine, result string, dur time.Duration) {
    recognitionReqs.WithLabelValues(engine, result).Inc()
    recognitionLatency.WithLabelValues(engine).Observe(dur.Seconds())
}

func ObservePageClassified(kind string) { pagesClassified.WithLabelValues(kind).Inc() }
func ObservePageResolved(source string) { pagesResolved.WithLabelValues(source).Inc() }

// RunStarted marks a run in progress and returns the function that records its end.
func RunStarted() func(result, kind string) {
    start := time.Now()
    activeRuns.Inc()
    return func(result, kind string) {
        activeRuns.Dec()
        runsTotal.WithLabelValues(result, kind).Inc()
        runLatency.WithLabelValues(result).Observe(time.Since(start).Seconds())
    }
}
