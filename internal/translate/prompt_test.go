package translate

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/procmigrate/internal/sqltext"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestChunkPrompt_Golden(t *testing.T) {
	tests := []struct {
		name  string
		chunk Chunk
	}{
		{"first_chunk", Chunk{Index: 0, Total: 3, Lines: []string{"CREATE PROCEDURE dbo.GetOrders", "AS", "BEGIN"}}},
		{"middle_chunk", Chunk{Index: 1, Total: 3, Lines: []string{"SELECT * FROM #orders;"}}},
		{"last_chunk", Chunk{Index: 2, Total: 3, Lines: []string{"END"}}},
		{"single_chunk", Chunk{Index: 0, Total: 1, Lines: []string{"CREATE PROCEDURE dbo.Ping AS SELECT 1"}}},
	}

	g := newGolden(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(ChunkPrompt(tt.chunk, sqltext.DefaultLanguage)))
		})
	}
}

func TestCorrectionPrompt_Golden(t *testing.T) {
	prompt := CorrectionPrompt(
		"CREATE FUNCTION f(@id int) RETURNS void AS $$ BEGIN END; $$ LANGUAGE plpgsql;",
		`ERROR: syntax error at or near "@" (SQLSTATE 42601)`,
	)
	newGolden(t).Assert(t, "correction", []byte(prompt))
}

func TestChunkPrompt_RulesOnlyOnFirstChunk(t *testing.T) {
	first := ChunkPrompt(Chunk{Index: 0, Total: 2, Lines: []string{"x"}}, sqltext.DefaultLanguage)
	second := ChunkPrompt(Chunk{Index: 1, Total: 2, Lines: []string{"y"}}, sqltext.DefaultLanguage)

	assert.Contains(t, first, "Follow these rules:")
	assert.NotContains(t, first, "Make sure the code ends with")
	assert.NotContains(t, second, "Follow these rules:")
	assert.Contains(t, second, "part 2 of 2")
	assert.Contains(t, second, "Make sure the code ends with $$ LANGUAGE plpgsql;")
}

func TestChunkPrompt_UsesConfiguredLanguage(t *testing.T) {
	p := ChunkPrompt(Chunk{Index: 0, Total: 1, Lines: []string{"x"}}, "sql")
	assert.Contains(t, p, "$$ LANGUAGE sql;")
}
