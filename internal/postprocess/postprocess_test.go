package postprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuan6100/audio-pipeline/internal/events"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
	"github.com/tuan6100/audio-pipeline/internal/pipeline"
	"github.com/tuan6100/audio-pipeline/internal/recognizeengine"
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

func (f *fakeStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *fakeStore) DeletePrefix(ctx context.Context, prefix string) error { return nil }

func (f *fakeStore) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func TestProcessor_Run_AlignsWordsAcrossChunks(t *testing.T) {
	store := newFakeStore()
	jobID := "job-1"

	records := []pipeline.SegmentRecord{
		{Index: 0, StartMS: 0, EndMS: 2000, TranscriptS3Path: "transcripts/job-1/0.json"},
		{Index: 1, StartMS: 2000, EndMS: 4000, TranscriptS3Path: "transcripts/job-1/1.json"},
	}
	require.NoError(t, objectstore.PutJSON(context.Background(), store, fmt.Sprintf("analysis/%s/segments_manifest.json", jobID), records))

	turns := []events.SpeakerTurn{
		{Speaker: "SPEAKER_00", Start: 0, End: 4},
	}
	require.NoError(t, objectstore.PutJSON(context.Background(), store, fmt.Sprintf("analysis/%s/diarization.json", jobID), turns))

	chunk0 := []recognizeengine.Word{{Word: "hello", Start: 0, End: 0.5}}
	chunk1 := []recognizeengine.Word{{Word: "world", Start: 0, End: 0.5}}
	require.NoError(t, objectstore.PutJSON(context.Background(), store, "transcripts/job-1/0.json", chunk0))
	require.NoError(t, objectstore.PutJSON(context.Background(), store, "transcripts/job-1/1.json", chunk1))

	p := New(store)
	evt, err := p.Run(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, evt.JobID)
	assert.Equal(t, "COMPLETED", evt.Status)
	assert.Equal(t, "results/job-1/metadata.json", evt.MetadataPath)

	var metadata Metadata
	require.NoError(t, store.ReadJSON(context.Background(), evt.MetadataPath, &metadata))
	require.Len(t, metadata.Results.TranscriptAligned, 1)
	line := metadata.Results.TranscriptAligned[0]
	assert.Equal(t, "SPEAKER_00", line.Speaker)
	assert.Contains(t, line.Text, "hello")
	assert.Contains(t, line.Text, "world")
	// second chunk's word should be offset by its 2s chunk start
	assert.InDelta(t, 2.5, line.End, 0.01)

	txt, err := store.GetBytes(context.Background(), "results/job-1/transcript.txt")
	require.NoError(t, err)
	assert.Contains(t, string(txt), "SPEAKER_00: hello world")

	var final []TranscriptLine
	require.NoError(t, store.ReadJSON(context.Background(), "analysis/job-1/transcript_final.json", &final))
	require.Len(t, final, 1)
}

func TestProcessor_Run_MissingManifestFails(t *testing.T) {
	store := newFakeStore()
	p := New(store)
	_, err := p.Run(context.Background(), "missing-job")
	require.Error(t, err)
}
