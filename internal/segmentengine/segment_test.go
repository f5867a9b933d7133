package segmentengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tuan6100/audio-pipeline/internal/audio"
)

func TestInvertRanges_NoSilence(t *testing.T) {
	out := invertRanges(nil, 5000)
	assert.Equal(t, []Bounds{{StartMS: 0, EndMS: 5000}}, out)
}

func TestInvertRanges_SilenceInMiddle(t *testing.T) {
	silences := []audio.SilenceRange{{Start: 2.0, End: 3.0}}
	out := invertRanges(silences, 5000)

	assert.Equal(t, []Bounds{
		{StartMS: 0, EndMS: 2000},
		{StartMS: 3000, EndMS: 5000},
	}, out)
}

func TestInvertRanges_SilenceAtStartAndEnd(t *testing.T) {
	silences := []audio.SilenceRange{
		{Start: 0, End: 1.0},
		{Start: 4.0, End: 5.0},
	}
	out := invertRanges(silences, 5000)

	assert.Equal(t, []Bounds{{StartMS: 1000, EndMS: 4000}}, out)
}

func TestInvertRanges_AllSilence(t *testing.T) {
	silences := []audio.SilenceRange{{Start: 0, End: 5.0}}
	out := invertRanges(silences, 5000)

	assert.Equal(t, []Bounds{{StartMS: 0, EndMS: 5000}}, out)
}

func TestCapBounds_SplitsLongRangeAndAssignsIndices(t *testing.T) {
	ranges := []Bounds{{StartMS: 0, EndMS: 150_000}}
	out := capBounds(ranges)

	assert.Equal(t, []Bounds{
		{Index: 0, StartMS: 0, EndMS: 60_000},
		{Index: 1, StartMS: 60_000, EndMS: 120_000},
		{Index: 2, StartMS: 120_000, EndMS: 150_000},
	}, out)
}

func TestCapBounds_IndicesContinueAcrossRanges(t *testing.T) {
	ranges := []Bounds{
		{StartMS: 0, EndMS: 30_000},
		{StartMS: 40_000, EndMS: 110_000},
	}
	out := capBounds(ranges)

	assert.Len(t, out, 3)
	assert.Equal(t, 0, out[0].Index)
	assert.Equal(t, 1, out[1].Index)
	assert.Equal(t, 2, out[2].Index)
}

func TestCapBounds_ShortRangeUnsplit(t *testing.T) {
	ranges := []Bounds{{StartMS: 0, EndMS: 8_000}}
	out := capBounds(ranges)

	assert.Equal(t, []Bounds{{Index: 0, StartMS: 0, EndMS: 8_000}}, out)
}
