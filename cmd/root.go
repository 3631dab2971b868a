package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/roadflow/config"
	"github.com/kilianp07/roadflow/core/pipeline"
	"github.com/kilianp07/roadflow/infra/dataio"
	"github.com/kilianp07/roadflow/infra/logger"
	"github.com/kilianp07/roadflow/infra/metrics"
	"github.com/kilianp07/roadflow/infra/mqtt"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "roadflow",
	Short: "Traffic speed forecasting over a sensor graph",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("main")
	sink, err := metrics.NewSink(cfg.Metrics, logger.New("metrics"))
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	if cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusAddr, logg); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}

	obs, err := dataio.LoadMatrix(cfg.Data.SpeedCSV, dataio.Options{
		SkipHeader: cfg.Data.SkipHeader,
		Transpose:  cfg.Data.Transpose,
	})
	if err != nil {
		return fmt.Errorf("load observations: %w", err)
	}
	adj, err := dataio.LoadMatrix(cfg.Data.AdjCSV, dataio.Options{SkipHeader: cfg.Data.SkipHeader})
	if err != nil {
		return fmt.Errorf("load adjacency: %w", err)
	}

	p, err := pipeline.New(pipeline.Params{
		SeqLen:       cfg.Data.SeqLen,
		PreLen:       cfg.Data.PreLen,
		TrainPortion: cfg.Data.TrainPortion,
		Layers:       cfg.Model.Layers(),
		Epochs:       cfg.Training.Epochs,
		BatchSize:    cfg.Training.BatchSize,
		LearningRate: cfg.Training.LearningRate,
		Seed:         cfg.Training.Seed,
	}, logger.New("pipeline"), sink)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	res, err := p.Run(ctx, obs, adj)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPublisher(cfg.MQTT, logger.New("mqtt"))
		if err != nil {
			return fmt.Errorf("mqtt publisher: %w", err)
		}
		defer pub.Close()
		if err := pub.PublishReport(res.RunID, res.Report); err != nil {
			return fmt.Errorf("publish report: %w", err)
		}
	}

	logg.Infof("run %s finished: model mae=%.4f naive mae=%.4f mase=%.4f rmse=%.4f",
		res.RunID, res.Report.ModelMAE, res.Report.NaiveMAE, res.Report.MeanMASE, res.Report.RMSE)

	// Keep the exposition endpoint up so the final gauges can be scraped.
	if cfg.Metrics.PrometheusEnabled {
		logg.Infof("serving metrics on %s until interrupted", cfg.Metrics.PrometheusAddr)
		<-ctx.Done()
	}
	return nil
}
