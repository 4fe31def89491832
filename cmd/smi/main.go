package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BTBurke/smi"
	"github.com/BTBurke/smi/pkg/export"
	"github.com/BTBurke/smi/pkg/metric"
	"github.com/BTBurke/smi/pkg/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "smi",
	Short:         "Simulated machine telemetry and its analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new dataset and replace the persisted one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, p *smi.Pipeline) error {
			g, err := p.Generate()
			if err != nil {
				return err
			}
			fmt.Printf("Generated %d readings for %v from %s to %s\nWrote %s\n",
				g.Rows, g.Machines, g.Start.Format("2006-01-02 15:04"), g.End.Format("2006-01-02 15:04"), g.Path)
			return nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Analyze the selected machine and window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, p *smi.Pipeline) error {
			if err := ensureData(p); err != nil {
				return err
			}
			sel, err := p.Select(p.DefaultQuery())
			if err != nil {
				return err
			}
			a, err := p.Analyze(sel, p.Config().Column)
			if err != nil {
				return err
			}
			return smi.Render(os.Stdout, a, p.Config().Format)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the selected readings as CSV, to the object store when one is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, p *smi.Pipeline) error {
			if err := ensureData(p); err != nil {
				return err
			}
			sel, err := p.Select(p.DefaultQuery())
			if err != nil {
				return err
			}
			name, err := p.Publish(ctx, sel)
			switch {
			case errors.Is(err, smi.ErrNoUploader):
				data, err := export.Encode(sel.Readings)
				if err != nil {
					return err
				}
				name = export.FileName(sel.Machine)
				if err := os.WriteFile(name, data, 0644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
			case err != nil:
				return err
			}
			fmt.Printf("Exported %d readings to %s\n", len(sel.Readings), name)
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, p *smi.Pipeline) error {
			if err := ensureData(p); err != nil {
				return err
			}
			log := zap.L()
			go func() {
				if err := p.Store().Watch(ctx, nil); err != nil {
					log.Warn("dataset watcher stopped, external changes are detected on read", zap.Error(err))
				}
			}()
			cfg := p.Config()
			return server.New(p, log, cfg.RegenRate).ListenAndServe(ctx, cfg.Addr)
		})
	},
}

func init() {
	smi.AddFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(generateCmd, reportCmd, exportCmd, serveCmd)
}

// run builds the pipeline from the flags of cmd and calls fn with a context canceled on interrupt
func run(cmd *cobra.Command, fn func(ctx context.Context, p *smi.Pipeline) error) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	opts, err := smi.Options(cmd.Flags())
	if err != nil {
		return fmt.Errorf("could not parse configuration: %w", err)
	}
	cfg, errs := smi.NewConfig(opts...)
	if len(errs) > 0 {
		fmt.Println("Error in config:")
		for _, e := range errs {
			fmt.Println(e)
		}
		os.Exit(1)
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	reporter := smi.NewErrorReporter(os.Getenv("ROLLBAR_TOKEN"), os.Getenv("environment"), cfg.NoErrorReports)
	defer reporter.Wait()

	popts := []smi.PipelineOption{
		smi.WithLogger(log),
		smi.WithCollectors(metric.NewCollectors()),
		smi.WithErrorReporter(reporter),
	}
	if cfg.S3Endpoint != "" && cfg.S3Bucket != "" {
		u, err := export.NewS3(export.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Insecure:  cfg.S3Insecure,
			Prefix:    cfg.S3Prefix,
			Logger:    log,
		})
		if err != nil {
			return err
		}
		popts = append(popts, smi.WithUploader(u))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, smi.NewPipeline(cfg, popts...))
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// ensureData generates the dataset when none has been persisted yet
func ensureData(p *smi.Pipeline) error {
	if _, err := os.Stat(p.Store().Path()); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	if _, err := p.Generate(); err != nil {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
