package transcriptsync

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
)

type fakeStore struct {
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) PutBytes(ctx context.Context, key string, data []byte, contentType string) error {
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) PutFile(ctx context.Context, key, localPath string) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeStore) GetBytes(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, objectstore.ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeStore) ReadJSON(ctx context.Context, key string, out interface{}) error {
	data, err := f.GetBytes(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeStore) ListKeys(ctx context.Context, prefix string) ([]string, error) { return nil, nil }

func (f *fakeStore) DeletePrefix(ctx context.Context, prefix string) error { return nil }

func (f *fakeStore) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func TestService_Sync_InitializesMissingMetadata(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	result, err := svc.Sync(context.Background(), "job-1", []Segment{
		{Start: 0, End: 1.5, Text: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, 1, result.SegmentsCount)
	assert.Len(t, result.WrittenKeys, 3)

	var meta map[string]interface{}
	require.NoError(t, store.ReadJSON(context.Background(), "results/job-1/metadata.json", &meta))
	results := meta["results"].(map[string]interface{})
	aligned := results["transcript_aligned"].([]interface{})
	require.Len(t, aligned, 1)
	line := aligned[0].(map[string]interface{})
	assert.Equal(t, "UNKNOWN", line["speaker"])

	txt, err := store.GetBytes(context.Background(), "results/job-1/transcript.txt")
	require.NoError(t, err)
	assert.Contains(t, string(txt), "hello")

	var final []map[string]interface{}
	require.NoError(t, store.ReadJSON(context.Background(), "analysis/job-1/transcript_final.json", &final))
	require.Len(t, final, 1)
}

func TestService_Sync_MergesIntoExistingMetadata(t *testing.T) {
	store := newFakeStore()
	existing := map[string]interface{}{
		"job_id": "job-2",
		"status": "COMPLETED",
		"assets": map[string]interface{}{"original": "raw/job-2/"},
		"results": map[string]interface{}{
			"transcript_aligned": []interface{}{},
		},
	}
	require.NoError(t, objectstore.PutJSON(context.Background(), store, "results/job-2/metadata.json", existing))

	svc := New(store)
	_, err := svc.Sync(context.Background(), "job-2", []Segment{{Start: 2, End: 3, Text: "edited"}})
	require.NoError(t, err)

	var meta map[string]interface{}
	require.NoError(t, store.ReadJSON(context.Background(), "results/job-2/metadata.json", &meta))
	assert.Equal(t, "COMPLETED", meta["status"])
	assets := meta["assets"].(map[string]interface{})
	assert.Equal(t, "raw/job-2/", assets["original"])
}

func TestService_Sync_RequiresJobID(t *testing.T) {
	store := newFakeStore()
	svc := New(store)
	_, err := svc.Sync(context.Background(), "", nil)
	require.Error(t, err)
}
