// Command extract runs the extraction pipeline on one document and writes
// the resulting .txt, .json and .html files to a directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/local/ocrextractor/internal/ai"
	"github.com/local/ocrextractor/internal/config"
	"github.com/local/ocrextractor/internal/logger"
	"github.com/local/ocrextractor/internal/model"
	"github.com/local/ocrextractor/internal/orchestrator"
	"github.com/local/ocrextractor/internal/storage"
)

const exitInput = 2

var (
	outDir      string
	engine      string
	maxInflight int
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:           "extract <file|url|s3://bucket/key>",
	Short:         "Extract text from a PDF or image",
	Long:          "Extract text from a PDF or image, using embedded text where present and OCR for scanned pages.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExtract,
}

func init() {
	rootCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the output files")
	rootCmd.Flags().StringVarP(&engine, "engine", "e", "", "OCR engine (gemini, openai, anthropic, tesseract); defaults to OCR_ENGINE")
	rootCmd.Flags().IntVar(&maxInflight, "max-inflight", -1, "Maximum concurrent pages (0 = unbounded); defaults to OCR_MAX_INFLIGHT")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the run log")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if orchestrator.IsInputError(err) {
		return exitInput
	}
	return 1
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	if engine != "" {
		cfg.OCR.Engine = engine
	}
	if maxInflight >= 0 {
		cfg.OCR.MaxInflight = maxInflight
	}

	// keep stderr for the progress bar and run log; structured logs go to the file
	opts := logger.OptionsFromConfig(cfg)
	opts.Console = io.Discard
	_ = logger.Init(opts)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := ai.New(cfg.OCR)
	if err != nil {
		return err
	}

	loader := &orchestrator.Loader{MaxBytes: int64(cfg.Extraction.MaxUploadMB) << 20}
	if s3c, err := storage.NewS3Client(ctx, cfg.S3); err == nil {
		loader.S3 = s3c
	} else {
		log.Debug().Err(err).Msg("s3 client unavailable")
	}
	in, err := loader.Load(ctx, args[0])
	if err != nil {
		return err
	}

	obs := newCLIObserver(cmd.ErrOrStderr(), !quiet)
	orch := orchestrator.New(orchestrator.Dependencies{Recognizer: rec}, orchestrator.OptionsFromConfig(cfg))
	res, err := orch.Run(ctx, "cli", in, obs)
	obs.finish()
	if err != nil {
		return err
	}

	paths, err := writeArtifacts(outDir, res.Artifacts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	if res.Degraded {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: OCR engine not configured, image pages contain simulated text")
	}
	return nil
}

// writeArtifacts writes every artifact into dir and returns the paths written.
func writeArtifacts(dir string, arts []model.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	paths := make([]string, 0, len(arts))
	for _, a := range arts {
		if a.Name == "" || a.Name != filepath.Base(a.Name) {
			return paths, errors.New("invalid artifact name " + a.Name)
		}
		p := filepath.Join(dir, a.Name)
		if err := os.WriteFile(p, a.Content, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", a.Name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// cliObserver prints the run log and drives a page progress bar.
type cliObserver struct {
	w       io.Writer
	showLog bool
	bar     *progressbar.ProgressBar
}

func newCLIObserver(w io.Writer, showLog bool) *cliObserver {
	return &cliObserver{w: w, showLog: showLog}
}

func (o *cliObserver) SetState(s orchestrator.State) {}

func (o *cliObserver) Log(e orchestrator.LogEntry) {
	if !o.showLog {
		return
	}
	if o.bar != nil {
		_ = o.bar.Clear()
	}
	fmt.Fprintf(o.w, "[%s] %-7s %s\n", e.Time.Format("15:04:05"), e.Type, e.Message)
}

func (o *cliObserver) PageDone(page, total int) {
	if o.bar == nil {
		o.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(o.w),
			progressbar.OptionSetDescription("pages"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = o.bar.Add(1)
}

func (o *cliObserver) finish() {
	if o.bar != nil {
		_ = o.bar.Finish()
	}
}
