package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/omeister/jpegbatch/internal/domain"
	"github.com/omeister/jpegbatch/internal/engine"
	"github.com/omeister/jpegbatch/internal/fetcher"
	"github.com/omeister/jpegbatch/internal/infra/config"
	"github.com/omeister/jpegbatch/internal/infra/logger"
	"github.com/omeister/jpegbatch/internal/listfile"
	"github.com/omeister/jpegbatch/internal/store"
	"github.com/omeister/jpegbatch/internal/writer"
)

var fetchFlags struct {
	outDir       string
	createDir    bool
	overwrite    bool
	concurrency  int
	maxRetries   int
	timeout      time.Duration
	maxFileSize  int64
	maxRedirects int
	rateLimit    float64
	noProgress   bool
}

var fetchCmd = &cobra.Command{
	Use:   "fetch FILE",
	Short: "Download every JPEG URL listed in FILE",
	Long: `Reads a text file with one URL per line and downloads each JPEG into the
output directory. Exits 0 when everything was written, 1 when some lines
were rejected or failed, 2 when the run could not start at all.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringVarP(&fetchFlags.outDir, "out", "o", "", "output directory for downloaded files")
	f.BoolVarP(&fetchFlags.createDir, "create", "c", false, "create the output directory if it does not exist")
	f.BoolVarP(&fetchFlags.overwrite, "force", "f", false, "overwrite files left by earlier runs")
	f.IntVar(&fetchFlags.concurrency, "concurrency", 0, "number of parallel downloads")
	f.IntVar(&fetchFlags.maxRetries, "max-retries", 0, "attempt budget per URL")
	f.DurationVar(&fetchFlags.timeout, "timeout", 0, "per-request timeout")
	f.Int64Var(&fetchFlags.maxFileSize, "max-file-size", 0, "largest accepted body in bytes")
	f.IntVar(&fetchFlags.maxRedirects, "max-redirects", 0, "redirect limit per request")
	f.Float64Var(&fetchFlags.rateLimit, "rate-limit", 0, "requests per second across all workers (0 = unlimited)")
	f.BoolVar(&fetchFlags.noProgress, "no-progress", false, "disable the progress bar")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFetchFlags(cmd, cfg)

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	lines, err := listfile.Read(args[0])
	if err != nil {
		return err
	}

	// Precondition: checked once, before any worker starts.
	if err := writer.EnsureDir(cfg.Download.OutDir, cfg.Download.CreateDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fetcher.NewClient(fetcher.Options{
		Timeout:           cfg.Download.RequestTimeout,
		MaxBodySize:       cfg.Download.MaxFileSize,
		MaxRedirects:      cfg.Download.MaxRedirects,
		RequestsPerSecond: cfg.Download.RateLimit,
		UserAgent:         cfg.Download.UserAgent,
	})

	opts := engine.Options{
		Concurrency: cfg.Download.Concurrency,
		MaxRetries:  cfg.Download.MaxRetries,
	}

	var bar *progressbar.ProgressBar
	if !fetchFlags.noProgress {
		bar = progressbar.NewOptions(len(lines),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		opts.OnOutcome = func(domain.Outcome) { _ = bar.Add(1) }
	}

	eng := engine.New(client, writer.New(cfg.Download.OutDir, cfg.Download.Overwrite), log, opts)

	startedAt := time.Now()
	log.Info("starting batch of %d lines into %s", len(lines), cfg.Download.OutDir)
	report := eng.Run(ctx, lines)

	if bar != nil {
		_ = bar.Finish()
	}

	if cfg.Store.SQLitePath != "" {
		if err := saveRun(cfg, report, startedAt); err != nil {
			log.Error("could not record run: %v", err)
		}
	}

	renderReport(report)

	if !report.Clean() {
		exitCode = ExitPartialFailure
	}
	return nil
}

// applyFetchFlags lets explicit flags win over config file values.
func applyFetchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Download.OutDir = fetchFlags.outDir
	}
	if flags.Changed("create") {
		cfg.Download.CreateDir = fetchFlags.createDir
	}
	if flags.Changed("force") {
		cfg.Download.Overwrite = fetchFlags.overwrite
	}
	if flags.Changed("concurrency") {
		cfg.Download.Concurrency = fetchFlags.concurrency
	}
	if flags.Changed("max-retries") {
		cfg.Download.MaxRetries = fetchFlags.maxRetries
	}
	if flags.Changed("timeout") {
		cfg.Download.RequestTimeout = fetchFlags.timeout
	}
	if flags.Changed("max-file-size") {
		cfg.Download.MaxFileSize = fetchFlags.maxFileSize
	}
	if flags.Changed("max-redirects") {
		cfg.Download.MaxRedirects = fetchFlags.maxRedirects
	}
	if flags.Changed("rate-limit") {
		cfg.Download.RateLimit = fetchFlags.rateLimit
	}
}

func saveRun(cfg *config.Config, report *domain.Report, startedAt time.Time) error {
	st, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.SaveRun(&domain.Run{
		ID:         ksuid.New().String(),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Report:     report,
	})
}

func renderReport(report *domain.Report) {
	fmt.Printf("%d total: %d written, %d rejected, %d failed\n",
		report.Total, len(report.Written), len(report.Rejected), len(report.Failed))

	for _, o := range report.Rejected {
		fmt.Printf("  rejected %q: %s\n", o.Input, o.Reason)
	}
	for _, o := range report.Failed {
		fmt.Printf("  failed %q after %d attempt(s): %s\n", o.Input, o.Attempts, o.Reason)
	}
}
