package objectstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"results/job/metadata.json", "application/json"},
		{"results/job/transcript.txt", "text/plain; charset=utf-8"},
		{"hls/job/master.m3u8", "application/vnd.apple.mpegurl"},
		{"hls/job/seg0.ts", "video/mp2t"},
		{"raw/job/input.wav", "audio/wav"},
		{"raw/job/input.mp3", "audio/mpeg"},
		{"raw/job/input.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, contentTypeFor(tt.path))
		})
	}
}

func TestNewUploadKey(t *testing.T) {
	key := NewUploadKey("job-123", "input.wav")
	assert.True(t, strings.HasPrefix(key, "raw/job-123/"))
	assert.True(t, strings.HasSuffix(key, ".wav"))
}

func TestNewUploadKey_DefaultsExtension(t *testing.T) {
	key := NewUploadKey("job-123", "noext")
	assert.True(t, strings.HasSuffix(key, ".bin"))
}
