package translate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDefinition(lines int) string {
	parts := make([]string, lines)
	for i := range parts {
		parts[i] = fmt.Sprintf("-- line %d", i+1)
	}
	return strings.Join(parts, "\n")
}

func rejoin(chunks []Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}
	return strings.Join(texts, "\n")
}

func TestSplit_ReassemblesAndCounts(t *testing.T) {
	tests := []struct {
		name  string
		lines int
		size  int
		want  int
	}{
		{"single line", 1, 500, 1},
		{"exactly one chunk", 500, 500, 1},
		{"one over", 501, 500, 2},
		{"get orders", 1200, 500, 3},
		{"small size", 10, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := makeDefinition(tt.lines)
			chunks := Split(def, tt.size)

			require.Len(t, chunks, tt.want)
			assert.Equal(t, def, rejoin(chunks))
			for i, c := range chunks {
				assert.Equal(t, i, c.Index)
				assert.Equal(t, tt.want, c.Total)
				assert.LessOrEqual(t, len(c.Lines), tt.size)
			}
		})
	}
}

func TestSplit_GetOrdersSizes(t *testing.T) {
	chunks := Split(makeDefinition(1200), DefaultChunkSize)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Lines, 500)
	assert.Len(t, chunks[1].Lines, 500)
	assert.Len(t, chunks[2].Lines, 200)
	assert.Equal(t, "-- line 501", chunks[1].Lines[0])
	assert.True(t, chunks[0].First())
	assert.True(t, chunks[2].Last())
	assert.False(t, chunks[1].First() || chunks[1].Last())
}

func TestSplit_EmptyInputYieldsOneEmptyChunk(t *testing.T) {
	chunks := Split("", DefaultChunkSize)

	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Text())
	assert.True(t, chunks[0].First())
	assert.True(t, chunks[0].Last())
}

func TestSplit_NonPositiveSizeUsesDefault(t *testing.T) {
	assert.Len(t, Split(makeDefinition(501), 0), 2)
	assert.Len(t, Split(makeDefinition(501), -1), 2)
}

func TestSplit_TrailingNewlineIsALine(t *testing.T) {
	def := "a\nb\n"
	chunks := Split(def, 2)

	require.Len(t, chunks, 2)
	assert.Equal(t, []string{""}, chunks[1].Lines)
	assert.Equal(t, def, rejoin(chunks))
}
