// Command segmenter detects silence gaps in cleaned audio and slices it
// into bounded, non-silent chunks for the rest of the pipeline to fan out
// over.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tuan6100/audio-pipeline/internal/audio"
	"github.com/tuan6100/audio-pipeline/internal/broker"
	"github.com/tuan6100/audio-pipeline/internal/commands"
	"github.com/tuan6100/audio-pipeline/internal/config"
	"github.com/tuan6100/audio-pipeline/internal/container"
	"github.com/tuan6100/audio-pipeline/internal/events"
	"github.com/tuan6100/audio-pipeline/internal/logger"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
	"github.com/tuan6100/audio-pipeline/internal/segmentengine"
	"github.com/tuan6100/audio-pipeline/internal/telemetry"
	"github.com/tuan6100/audio-pipeline/internal/worker"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const serviceName = "segmenter"

func main() {
	if err := logger.Initialize(getEnvOrDefault("LOG_LEVEL", "info"), getEnvOrDefault("LOG_FILE", serviceName+".log")); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Close()
	logger.Log.Info("=== segmenter starting ===")

	if err := godotenv.Load(); err != nil {
		logger.Log.Warn("no .env file found, using system environment variables")
	}

	cfg, err := config.Load(serviceName)
	if err != nil {
		logger.FatalWithFields("failed to load config", err)
	}

	var tracerProvider *trace.TracerProvider
	if cfg.OTelEnabled {
		tracerProvider, err = telemetry.InitTracer(telemetry.Config{
			ServiceName:  serviceName,
			Environment:  getEnvOrDefault("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Enabled:      true,
			SamplingRate: getEnvFloat("OTEL_TRACE_SAMPLER_RATE", 1.0),
		})
		if err != nil {
			logger.Log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tracerProvider.Shutdown(ctx)
			}()
		}
	}

	metrics.Initialize()

	c := container.New().WithConfig(cfg).WithLogger(logger.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	objStore, err := objectstore.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
	if err != nil {
		logger.FatalWithFields("failed to initialize object store", err)
	}
	c.WithObjectStore(objStore)

	conn, err := broker.Dial(cfg.AMQPURL)
	if err != nil {
		logger.FatalWithFields("failed to connect to broker", err)
	}
	c.WithBrokerConnection(conn).OnCleanup(func(context.Context) error { return conn.Close() })

	producer := broker.NewProducer(conn)
	consumer := broker.NewConsumer(conn, serviceName)
	c.WithProducer(producer).WithConsumer(consumer)

	audioProcessor := audio.NewProcessor(fmt.Sprintf("/tmp/audio_pipeline/%s", serviceName), cfg.FFmpegExtraArgs...)
	c.WithAudioProcessor(audioProcessor)

	if err := c.Validate(container.RoleWorker); err != nil {
		logger.FatalWithFields("missing required dependencies", err)
	}

	engine := segmentengine.New(audioProcessor)

	compute := func(ctx context.Context, raw json.RawMessage) (any, error) {
		var cmd commands.SegmentCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return nil, fmt.Errorf("decode cmd.segment: %w", err)
		}

		localPath, err := objectstore.DownloadToFile(ctx, objStore, cmd.InputPath, ".wav")
		if err != nil {
			return nil, err
		}
		defer os.Remove(localPath)

		bounds, err := engine.Run(ctx, localPath)
		if err != nil {
			return nil, err
		}

		segments := make([]events.SegmentBounds, 0, len(bounds))
		for _, b := range bounds {
			chunkPath, err := audioProcessor.ExtractRange(ctx, localPath, b.StartMS, b.EndMS)
			if err != nil {
				return nil, fmt.Errorf("extract chunk %d: %w", b.Index, err)
			}
			key := fmt.Sprintf("segments/%s/chunk_%04d.wav", cmd.JobID, b.Index)
			uploadErr := objStore.PutFile(ctx, key, chunkPath)
			os.Remove(chunkPath)
			if uploadErr != nil {
				return nil, fmt.Errorf("upload chunk %d: %w", b.Index, uploadErr)
			}
			segments = append(segments, events.SegmentBounds{
				Index:   b.Index,
				Path:    key,
				StartMS: b.StartMS,
				EndMS:   b.EndMS,
			})
		}

		return events.SegmentCompletedEvent{JobID: cmd.JobID, AudioPath: cmd.InputPath, Segments: segments}, nil
	}

	harness := &worker.Harness{Broker: consumer, Producer: producer, Objects: objStore, Logger: logger.Log}
	stage := worker.StageConfig{
		ConsumeExchange:   commands.ExchangeCommands,
		ConsumeRoutingKey: "cmd.segment",
		PublishExchange:   events.ExchangeWorkerEvents,
		PublishRoutingKey: "segment.done",
		MaxRetries:        cfg.MaxRetries,
		Compute:           compute,
	}
	if err := harness.Run(ctx, stage); err != nil {
		logger.FatalWithFields("failed to subscribe", err)
	}
	logger.Log.Info("segmenter consuming cmd.segment")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down segmenter...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := c.Cleanup(shutdownCtx); err != nil {
		logger.Log.Error("error during cleanup", zap.Error(err))
	}
	logger.Log.Info("segmenter exited")
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
		return f
	}
	return def
}
