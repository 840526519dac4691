package translate

import "strings"

// DefaultChunkSize is the number of definition lines sent per request.
const DefaultChunkSize = 500

// Chunk is a contiguous run of definition lines.
type Chunk struct {
	Index int
	Total int
	Lines []string
}

// Text rejoins the chunk's lines with newlines.
func (c Chunk) Text() string {
	return strings.Join(c.Lines, "\n")
}

// First reports whether c is the opening chunk.
func (c Chunk) First() bool {
	return c.Index == 0
}

// Last reports whether c is the final chunk.
func (c Chunk) Last() bool {
	return c.Index == c.Total-1
}

// Split breaks definition on "\n" into chunks of at most size lines,
// preserving order. A size of zero or less selects DefaultChunkSize.
// The result always has at least one chunk; empty input yields one empty chunk.
func Split(definition string, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}

	lines := strings.Split(definition, "\n")
	total := (len(lines) + size - 1) / size

	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		end := min((i+1)*size, len(lines))
		chunks = append(chunks, Chunk{
			Index: i,
			Total: total,
			Lines: lines[i*size : end],
		})
	}
	return chunks
}
