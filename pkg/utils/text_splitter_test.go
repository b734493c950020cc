package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTextShortTextSingleChunk(t *testing.T) {
	chunks := SplitText("short passage", 100, 10)
	assert.Equal(t, []string{"short passage"}, chunks)
}

func TestSplitTextChunksOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 chars
	chunks := SplitText(text, 40, 10)

	assert.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		// each chunk starts with the tail of the previous one
		assert.True(t, strings.HasSuffix(prev, chunks[i][:10]) || len(chunks[i]) < 10)
	}

	// no content lost at the seams
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		if len(chunks[i]) > 10 {
			rebuilt.WriteString(chunks[i][10:])
		}
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitTextOverlapLargerThanChunkFallsBack(t *testing.T) {
	text := strings.Repeat("x", 50)
	chunks := SplitText(text, 20, 30)
	assert.NotEmpty(t, chunks)
	assert.Equal(t, 20, len(chunks[0]))
}
