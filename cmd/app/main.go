package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"

    "github.com/local/ocrextractor/internal/ai"
    cfgpkg "github.com/local/ocrextractor/internal/config"
    logpkg "github.com/local/ocrextractor/internal/logger"
    "github.com/local/ocrextractor/internal/metrics"
    "github.com/local/ocrextractor/internal/orchestrator"
    "github.com/local/ocrextractor/internal/statuscheck"
    "github.com/local/ocrextractor/internal/storage"
    "github.com/local/ocrextractor/internal/store"
    web "github.com/local/ocrextractor/internal/web"
)

func main() {
    _ = godotenv.Load()
    cfg := cfgpkg.FromEnv()

    // Init logging
    _ = logpkg.Init(logpkg.OptionsFromConfig(cfg))
    defer logpkg.Close()
    metrics.Init()

    rec, err := ai.New(cfg.OCR)
    if err != nil {
        log.Fatal().Err(err).Msg("invalid OCR configuration")
    }
    configured := ai.Configured(cfg.OCR)
    if !configured {
        log.Warn().Str("engine", rec.Name()).Msg("recognizer not configured; image pages will get simulated text")
    }

    // Job state + artifacts
    js, err := store.New(cfg.Store)
    if err != nil {
        log.Fatal().Err(err).Msg("failed to init job store")
    }
    defer js.Close()

    maxBytes := int64(cfg.Extraction.MaxUploadMB) << 20
    loader := &orchestrator.Loader{
        MaxBytes:     maxBytes,
        Restricted:   true,
        Root:         cfg.Server.InputRoot,
        AllowedHosts: cfg.Server.AllowedHosts,
    }
    checker := statuscheck.Options{Store: js, S3Bucket: cfg.S3.Bucket, Engine: rec.Name(), EngineConfigured: configured}
    s3c, err := storage.NewS3Client(context.Background(), cfg.S3)
    if err != nil {
        log.Warn().Err(err).Msg("s3 client unavailable; s3:// inputs disabled")
    } else {
        loader.S3 = s3c
        checker.S3 = s3c
    }

    orch := orchestrator.New(orchestrator.Dependencies{Recognizer: rec}, orchestrator.OptionsFromConfig(cfg))
    srvWeb := web.New(web.Options{
        Store:          js,
        Runner:         orch,
        Loader:         loader,
        Status:         statuscheck.New(checker),
        MaxUploadBytes: maxBytes,
    })

    mux := http.NewServeMux()
    srvWeb.RegisterRoutes(mux)
    mux.Handle("/metrics", metrics.Handler())

    port := cfg.Server.Port
    srv := &http.Server{Addr: ":" + port, Handler: mux}

    go func(){
        log.Info().Str("engine", rec.Name()).Msgf("HTTP server listening on :%s", port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
    defer cancel()
    _ = srv.Shutdown(ctx)
    if err := srvWeb.Shutdown(ctx); err != nil {
        log.Warn().Err(err).Msg("runs still in flight at shutdown")
    }
    fmt.Println("shutdown complete")
}
