package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrObjectNotFound is returned by GetBytes/ReadJSON when the key does not exist.
var ErrObjectNotFound = errors.New("objectstore: object not found")

const deleteBatchSize = 1000

// S3Store implements Store against an S3-compatible object store (AWS S3 or
// a MinIO-style endpoint, per Endpoint being non-empty).
type S3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
}

// NewS3Store builds an S3Store. If endpoint is non-empty, a custom S3-compatible
// endpoint is used (path-style addressing) instead of AWS's regional default.
func NewS3Store(ctx context.Context, region, bucket, endpoint string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

// PutBytes writes content to a local temp file then uploads it, so a
// crash mid-write never leaves a partially-uploaded object visible remotely.
func (s *S3Store) PutBytes(ctx context.Context, key string, data []byte, contentType string) error {
	tmp, err := os.CreateTemp("", "objectstore-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return s.putFile(ctx, key, tmpPath, contentType)
}

// PutFile uploads an already-materialized local file.
func (s *S3Store) PutFile(ctx context.Context, key, localPath string) error {
	return s.putFile(ctx, key, localPath, contentTypeFor(localPath))
}

func (s *S3Store) putFile(ctx context.Context, key, localPath, contentType string) error {
	ctx, span := otel.Tracer("objectstore").Start(ctx, "objectstore.put")
	defer span.End()
	span.SetAttributes(attribute.String("objectstore.key", key))

	start := time.Now()
	f, err := os.Open(localPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to open %s for upload: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	recordOp("put", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// GetBytes downloads an object fully into memory.
func (s *S3Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer("objectstore").Start(ctx, "objectstore.get")
	defer span.End()
	span.SetAttributes(attribute.String("objectstore.key", key))

	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	recordOp("get", time.Since(start), err)
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", key, err)
	}
	return data, nil
}

// ReadJSON downloads an object and unmarshals it into out.
func (s *S3Store) ReadJSON(ctx context.Context, key string, out interface{}) error {
	data, err := s.GetBytes(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// ListKeys lists every object key under prefix, excluding "directory" markers.
func (s *S3Store) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// DeletePrefix deletes every object under prefix, batched at deleteBatchSize
// per DeleteObjects call as AWS requires.
func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.ListKeys(ctx, prefix)
	if err != nil {
		return err
	}

	for i := 0; i < len(keys); i += deleteBatchSize {
		end := i + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]

		objects := make([]s3types.ObjectIdentifier, len(batch))
		for j, k := range batch {
			objects[j] = s3types.ObjectIdentifier{Key: aws.String(k)}
		}

		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: objects},
		}); err != nil {
			return fmt.Errorf("failed to delete batch under %s: %w", prefix, err)
		}
	}
	return nil
}

// PresignPut returns a short-lived presigned PUT URL for direct client upload.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// NewUploadKey generates a fresh, unguessable raw-upload key.
func NewUploadKey(jobID, originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("raw/%s/%s%s", jobID, uuid.NewString(), ext)
}

func recordOp(operation string, duration time.Duration, err error) {
	m := metrics.Get()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ObjectStoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.ObjectStoreOperationsTotal.WithLabelValues(operation, status).Inc()
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}
