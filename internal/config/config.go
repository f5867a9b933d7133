// Package config loads the pipeline's environment-driven configuration,
// failing fast on anything required that is missing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"
)

// Config holds every environment-driven setting shared across the
// orchestrator and worker binaries.
type Config struct {
	ServiceName string

	LogLevel string
	LogFile  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	JobTTL        time.Duration

	AMQPURL     string
	MaxRetries  int

	S3Bucket   string
	S3Region   string
	S3Endpoint string

	HTTPPort string

	OTelEnabled bool

	// FFmpegExtraArgs are operator-supplied extra ffmpeg arguments for the
	// normalization command, tokenized the same way a shell would.
	FFmpegExtraArgs []string
}

// Load reads Config from the environment. serviceName identifies the
// calling binary (used to namespace its broker queues); it is not read
// from the environment since each cmd/ entrypoint knows its own name.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		ServiceName:   serviceName,
		LogLevel:      getEnvDefault("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		RedisHost:     getEnvDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		HTTPPort:      getEnvDefault("PORT", "8080"),
		OTelEnabled:   os.Getenv("OTEL_ENABLED") == "true",
	}

	amqpURL := os.Getenv("AMQP_URL")
	if amqpURL == "" {
		return nil, fmt.Errorf("config: AMQP_URL environment variable not set - required to reach the broker")
	}
	cfg.AMQPURL = amqpURL

	s3Bucket := os.Getenv("S3_BUCKET")
	if s3Bucket == "" {
		return nil, fmt.Errorf("config: S3_BUCKET environment variable not set")
	}
	cfg.S3Bucket = s3Bucket
	cfg.S3Region = getEnvDefault("AWS_REGION", "us-east-1")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")

	jobTTL, err := getEnvDurationDefault("JOB_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JobTTL = jobTTL

	maxRetries, err := getEnvIntDefault("MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cfg.MaxRetries = maxRetries

	if raw := os.Getenv("FFMPEG_EXTRA_ARGS"); raw != "" {
		args, err := shlex.Split(raw)
		if err != nil {
			return nil, fmt.Errorf("config: FFMPEG_EXTRA_ARGS is not valid shell-style args: %w", err)
		}
		cfg.FFmpegExtraArgs = args
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDurationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration (e.g. 1h), got %q: %w", key, v, err)
	}
	return d, nil
}
