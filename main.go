package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/gidra39/clearml-results/clearml"
	"github.com/gidra39/clearml-results/config"
	"github.com/gidra39/clearml-results/messaging"
	"github.com/gidra39/clearml-results/report"
	"github.com/gidra39/clearml-results/results"
	"github.com/gidra39/clearml-results/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	serviceName = "clearml-results"

	defaultTaskID      = "1bbfcd5652cd4558a007a1b54a4cb67a"
	defaultMetricTitle = "Average Precision | IOU=0.50"
	defaultPlotTitle   = "Precision-Recall @IOU:0.3"
)

func main() {
	taskID := flag.String("task-id", defaultTaskID, "ClearML task ID to read")
	metricTitle := flag.String("metric", defaultMetricTitle, "Metric title whose last values are printed")
	plotTitle := flag.String("plot", defaultPlotTitle, "Plot title whose series are printed")
	notify := flag.Bool("notify", false, "Send a task summary through the configured message channels")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("debug mode enabled - verbose logging activated")
	}

	configuration := config.LoadConfig(".env", "config.json", "config.yaml")
	ctx := context.Background()

	if configuration.OTLPTraceEndpoint != "" {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  serviceName,
			OTLPEndpoint: configuration.OTLPTraceEndpoint,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize tracing")
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to flush traces")
			}
		}()
	}

	log.Info().Str("host", configuration.ClearMLAPIHost).Str("task_id", *taskID).Msg("reading task results")

	client := clearml.New(configuration, clearml.WithDebug(*debug))
	task, err := results.New(ctx, client, *taskID)
	if err != nil {
		log.Fatal().Err(err).Str("task_id", *taskID).Msg("failed to fetch task results")
	}

	if err := report.PrintTask(os.Stdout, task, *metricTitle, *plotTitle); err != nil {
		log.Fatal().Err(err).Str("task_id", *taskID).Msg("failed to print task results")
	}

	if *notify {
		summary, err := report.Summary(task)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build task summary")
		}
		if err := messaging.SendNotification(ctx, summary, configuration); err != nil {
			log.Fatal().Err(err).Msg("failed to send notification")
		}
	}
}
