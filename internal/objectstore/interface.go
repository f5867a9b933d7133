package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store defines the object storage operations every pipeline component
// depends on. Defined as an interface so workers and the orchestrator can
// be tested against a fake without a live S3-compatible endpoint.
type Store interface {
	PutBytes(ctx context.Context, key string, data []byte, contentType string) error
	PutFile(ctx context.Context, key, localPath string) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	ReadJSON(ctx context.Context, key string, out interface{}) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) error
	PresignPut(ctx context.Context, key, contentType string) (string, error)
}

// Ensure S3Store implements Store.
var _ Store = (*S3Store)(nil)

// PutJSON marshals v and writes it to key with a JSON content type.
func PutJSON(ctx context.Context, store Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return store.PutBytes(ctx, key, data, "application/json")
}
