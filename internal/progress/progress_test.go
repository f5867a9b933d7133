package progress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/tuan6100/audio-pipeline/internal/pipeline"
	"go.uber.org/zap"
)

type fakeJobStore struct {
	job           *pipeline.Job
	err           error
	subscribeHit  bool
}

func (f *fakeJobStore) GetJob(ctx context.Context, jobID string) (*pipeline.Job, error) {
	return f.job, f.err
}

func (f *fakeJobStore) Subscribe(ctx context.Context, jobID string) *redis.PubSub {
	f.subscribeHit = true
	return nil
}

func TestHandler_Stream_TerminalJobClosesWithoutSubscribing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeJobStore{job: &pipeline.Job{ID: "job-1", Status: pipeline.StatusCompleted, Progress: 100}}
	h := NewHandler(fake, zap.NewNop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/progress", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	h.Stream(c)

	assert.False(t, fake.subscribeHit, "a terminal job's first frame should end the stream without subscribing")
	assert.Contains(t, w.Body.String(), `"status":"COMPLETED"`)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}

func TestHandler_Stream_UnknownJobReturns404(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeJobStore{err: errors.New("not found"), job: nil}
	h := NewHandler(fake, zap.NewNop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing/progress", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Stream(c)
	assert.Equal(t, 404, w.Code)
}
