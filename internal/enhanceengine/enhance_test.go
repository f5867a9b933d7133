package enhanceengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRMS_Empty(t *testing.T) {
	assert.Equal(t, 0.0, rms(nil))
}

func TestRMS_ConstantSignal(t *testing.T) {
	values := []float64{0.5, 0.5, 0.5, 0.5}
	assert.InDelta(t, 0.5, rms(values), 1e-9)
}

func TestRMS_MixedSignal(t *testing.T) {
	values := []float64{0, 1, 0, 1}
	assert.InDelta(t, 0.7071, rms(values), 1e-3)
}
