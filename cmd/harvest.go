package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/templatelab/harvester/internal/api"
	"github.com/templatelab/harvester/internal/artifact"
	"github.com/templatelab/harvester/internal/config"
	"github.com/templatelab/harvester/internal/harvest"
	"github.com/templatelab/harvester/internal/id/uuid"
	"github.com/templatelab/harvester/internal/logging"
	"github.com/templatelab/harvester/internal/notify"
	"github.com/templatelab/harvester/internal/platform"
	"github.com/templatelab/harvester/internal/progress"
	"github.com/templatelab/harvester/internal/sink"
)

// newHarvestCmd creates the 'harvest' subcommand, which runs one full
// collection pass for a single platform.
func newHarvestCmd() *cobra.Command {
	var (
		maxRecords int
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "harvest <platform>",
		Short: "Runs one harvest for the named platform",
		Long: `Fetches the platform's template listing, then walks it record by
record: extract (browser platforms only), validate, normalize, and
append to the sink. SIGINT or SIGTERM stops the run at the next record
boundary without losing committed work.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarvest(cmd.Context(), args[0], maxRecords, dryRun)
		},
	}
	cmd.Flags().IntVar(&maxRecords, "max-records", 0, "cap on records processed (0 = platform config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the pipeline without writing a durable artifact")
	return cmd
}

func runHarvest(ctx context.Context, platformName string, maxRecords int, dryRun bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pcfg, err := cfg.Platform(platformName)
	if err != nil {
		return err
	}

	baseLogger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()

	runID, err := uuid.NewGenerator().NewID()
	if err != nil {
		return err
	}
	logger := logging.ForRun(baseLogger, runID, platformName)

	sig := harvest.NewSignal()
	stopSignals := bindSignals(sig, logger)
	defer stopSignals()

	if cfg.Metrics.Enabled {
		srv := api.NewServer(cfg.Metrics.Port, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics shutdown failed", zap.Error(err))
			}
		}()
	}

	driver, err := platform.New(platformName, pcfg, logger)
	if err != nil {
		return fmt.Errorf("build %s driver: %w", platformName, err)
	}
	defer func() {
		if err := driver.Close(ctx); err != nil {
			logger.Warn("driver close failed", zap.Error(err))
		}
	}()

	runSink, err := buildSink(ctx, cfg, dryRun, logger)
	if err != nil {
		return err
	}

	reporter, captured, cleanupNotify, err := buildReporters(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupNotify()

	if maxRecords <= 0 {
		maxRecords = pcfg.MaxRecords
	}
	orch := harvest.New(harvest.Params{
		Config: harvest.RunConfig{
			Platform:       platformName,
			BatchSize:      pcfg.BatchSize,
			BatchDelay:     pcfg.BatchDelay(),
			RateLimitDelay: pcfg.RateLimitDelay(),
			MaxRetries:     pcfg.MaxRetries,
			RetryDelay:     pcfg.RetryDelay(),
			MaxRecords:     maxRecords,
			ProgressEvery:  pcfg.ProgressEvery,
		},
		RunID:      runID,
		Fetcher:    driver.Fetcher,
		Extractor:  driver.Extractor,
		Normalizer: driver.Normalizer,
		Sink:       runSink,
		Signal:     sig,
		Reporter:   reporter,
		Logger:     logger,
	})

	stats, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("harvest %s: %w", platformName, err)
	}

	logger.Info("harvest finished",
		zap.Int("total", stats.Total),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)

	// Upload applies to file artifacts only; Postgres rows are already
	// shared.
	if cfg.Artifact.Bucket != "" && cfg.Database.DSN == "" && captured.evt.Artifact != "" {
		uploadArtifact(ctx, cfg.Artifact, captured.evt.Artifact, logger)
	}
	return nil
}

// bindSignals forwards SIGINT/SIGTERM onto the cooperative cancellation
// signal. A second interrupt is absorbed; the loop already knows.
func bindSignals(sig *harvest.Signal, logger *zap.Logger) func() {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range ch {
			if sig.Trigger() {
				logger.Warn("interrupt received, finishing current record and saving progress")
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}

func buildSink(ctx context.Context, cfg config.Config, dryRun bool, logger *zap.Logger) (harvest.Sink, error) {
	if dryRun {
		logger.Warn("dry run: records will not be persisted")
		return &sink.MemorySink{}, nil
	}
	if cfg.Database.DSN != "" {
		pg, err := sink.NewPostgresSink(ctx, sink.PostgresConfig{
			DSN:   cfg.Database.DSN,
			Table: cfg.Database.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("build postgres sink: %w", err)
		}
		return pg, nil
	}
	return sink.NewCSVSink(cfg.Output.Dir, logger), nil
}

// capturedEvent records the final progress event so the command can act
// on the artifact location after the run.
type capturedEvent struct {
	evt progress.Event
}

func (c *capturedEvent) Report(evt progress.Event) {
	if evt.Stage == progress.StageRunDone {
		c.evt = evt
	}
}

func buildReporters(ctx context.Context, cfg config.Config, logger *zap.Logger) (progress.Reporter, *capturedEvent, func(), error) {
	captured := &capturedEvent{}
	reporters := progress.MultiReporter{
		progress.NewLogReporter(logger),
		captured,
	}
	cleanup := func() {}

	if cfg.Metrics.Enabled {
		reporters = append(reporters, progress.NewPromReporter())
	}
	if cfg.Notify.Topic != "" {
		pub, err := notify.NewPublisher(ctx, cfg.Notify.ProjectID, cfg.Notify.Topic)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("build notifier: %w", err)
		}
		reporters = append(reporters, notify.NewReporter(pub, logger))
		cleanup = pub.Close
	}
	return reporters, captured, cleanup, nil
}

func uploadArtifact(ctx context.Context, cfg config.ArtifactConfig, localPath string, logger *zap.Logger) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		logger.Warn("artifact upload skipped, storage client failed", zap.Error(err))
		return
	}
	defer func() { _ = client.Close() }()

	uploader, err := artifact.NewUploader(client, artifact.Config{
		Bucket: cfg.Bucket,
		Prefix: cfg.Prefix,
	})
	if err != nil {
		logger.Warn("artifact upload skipped", zap.Error(err))
		return
	}
	uri, err := uploader.Upload(ctx, localPath)
	if err != nil {
		logger.Warn("artifact upload failed", zap.Error(err))
		return
	}
	logger.Info("artifact uploaded", zap.String("uri", uri))
}
