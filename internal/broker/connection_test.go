package broker

import (
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeRoutingKey(t *testing.T) {
	assert.Equal(t, "job_uploaded", sanitizeRoutingKey("job.uploaded"))
	assert.Equal(t, "jobsall", sanitizeRoutingKey("jobs*"))
	assert.Equal(t, "jobsany", sanitizeRoutingKey("jobs#"))
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 0, retryCount(amqp.Table{}))
	assert.Equal(t, 2, retryCount(amqp.Table{"x-retry": int32(2)}))
	assert.Equal(t, 3, retryCount(amqp.Table{"x-retry": 3}))
}

func TestWithRetryHeader(t *testing.T) {
	original := amqp.Table{"foo": "bar"}
	updated := withRetryHeader(original, 1)

	assert.Equal(t, "bar", updated["foo"])
	assert.Equal(t, 1, updated["x-retry"])
	// original must not be mutated
	_, hasRetry := original["x-retry"]
	assert.False(t, hasRetry)
}
