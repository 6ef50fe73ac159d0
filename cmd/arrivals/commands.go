package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	extract "github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/service"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/events/handler"
	"github.com/FACorreiaa/visitor-arrivals/pkg/cron"
)

func newExtractCmd(a *app) *cobra.Command {
	var bucket, key string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the ranking tables of one report PDF to CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := InitDependencies(cmd.Context(), a.cfg, a.logger, needs{})
			if err != nil {
				return err
			}
			defer deps.Close()

			result, err := deps.ExtractService.Process(cmd.Context(), extract.ObjectRef{Bucket: bucket, Key: key})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows -> %s/%s\n", result.Rows, result.CSVBucket, result.CSVKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "source bucket")
	cmd.Flags().StringVar(&key, "key", "", "source PDF key")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newDispatchCmd(a *app) *cobra.Command {
	var bucket, key string

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Start a transform job run for a staged CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := InitDependencies(cmd.Context(), a.cfg, a.logger, needs{broker: true})
			if err != nil {
				return err
			}
			defer deps.Close()

			runID, err := deps.Dispatcher.Dispatch(cmd.Context(), bucket, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), runID)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "bucket of the staged CSV")
	cmd.Flags().StringVar(&key, "key", "", "key of the staged CSV")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newTransformCmd(a *app) *cobra.Command {
	var srcPath, outputPath, processedPrefix, sink string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Reshape the newest staged CSV into the partitioned dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pc := &a.cfg.Pipeline
			if cmd.Flags().Changed("src-path") {
				pc.SrcPath = srcPath
			}
			if cmd.Flags().Changed("output-path") {
				pc.OutputPath = outputPath
			}
			if cmd.Flags().Changed("processed-prefix") {
				pc.ProcessedPrefix = processedPrefix
			}
			if cmd.Flags().Changed("sink") {
				pc.Sink = sink
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			deps, err := InitDependencies(cmd.Context(), a.cfg, a.logger, needs{})
			if err != nil {
				return err
			}
			defer deps.Close()

			result, err := deps.TransformService.Run(cmd.Context(), deps.TransformJob())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: year %d, %d records in %d partitions\n",
				result.Source.Key, result.Year, result.Records, result.Partitions)
			return nil
		},
	}

	cmd.Flags().StringVar(&srcPath, "src-path", "", "source pattern, e.g. s3://bucket/staging/*.csv (env SRC_PATH)")
	cmd.Flags().StringVar(&outputPath, "output-path", "", "dataset root, e.g. s3://bucket/dataset/ (env OUTPUT_PATH)")
	cmd.Flags().StringVar(&processedPrefix, "processed-prefix", "", "archive prefix for the consumed source (env PROCESSED_PREFIX)")
	cmd.Flags().StringVar(&sink, "sink", "", "dataset sink: parquet or postgres (env DATASET_SINK)")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL dataset schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := InitDependencies(cmd.Context(), a.cfg, a.logger, needs{database: true})
			if err != nil {
				return err
			}
			defer deps.Close()

			return deps.DB.RunMigrations(cmd.Context())
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume storage events and transform jobs, and serve the webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := InitDependencies(cmd.Context(), a.cfg, a.logger, needs{broker: true})
			if err != nil {
				return err
			}
			defer deps.Close()

			return serve(cmd.Context(), deps)
		},
	}
}

func serve(ctx context.Context, deps *Dependencies) error {
	cfg := deps.Config
	logger := deps.Logger

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: handler.New(deps.Router, handler.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			EnableMetrics:  cfg.Observability.MetricsEnabled,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if spec := cfg.Schedule.TransformSweep; spec != "" {
		scheduler := cron.NewScheduler(deps.TransformService, deps.TransformJob(), logger)
		if err := scheduler.Start(spec); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Broker.Consume(gctx, cfg.Broker.EventsQueue, "arrivals-events", deps.Router.HandleMessage)
	})
	g.Go(func() error {
		return deps.Broker.Consume(gctx, cfg.Broker.JobsQueue, "arrivals-worker", deps.Worker.HandleMessage)
	})
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	logger.Info("service stopped")
	return err
}
