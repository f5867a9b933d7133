package recognizeengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynthesizeWords_CoversFullDuration(t *testing.T) {
	words := synthesizeWords(4.0)

	assert.NotEmpty(t, words)
	assert.Equal(t, 0.0, words[0].Start)
	assert.InDelta(t, 4.0, words[len(words)-1].End, 1e-9)
}

func TestSynthesizeWords_ZeroDuration(t *testing.T) {
	assert.Nil(t, synthesizeWords(0))
}

func TestSynthesizeWords_VeryShortDurationStillProducesOneWord(t *testing.T) {
	words := synthesizeWords(0.1)
	assert.Len(t, words, 1)
}

func TestJoinWords(t *testing.T) {
	words := []Word{{Word: "a"}, {Word: "b"}, {Word: "c"}}
	assert.Equal(t, "a b c", joinWords(words))
}

func TestJoinWords_Empty(t *testing.T) {
	assert.Equal(t, "", joinWords(nil))
}
