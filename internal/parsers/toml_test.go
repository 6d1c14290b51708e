package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOMLParserDecodesMapping(t *testing.T) {
	p := NewTOMLParser()
	raw := "title = \"widget\"\n\n[owner]\nname = \"alice\"\n"
	require.True(t, p.CanParse(raw, ""))

	result := p.Parse(raw)
	require.True(t, result.Success)
	assert.True(t, result.IsStructured)
	assert.Equal(t, "widget", result.Normalized["title"])

	owner, ok := result.Normalized["owner"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", owner["name"])
}

func TestTOMLParserRejectsInvalidSyntax(t *testing.T) {
	p := NewTOMLParser()
	assert.False(t, p.CanParse("just a line of plain prose with no key-value structure at all", ""))
}

func TestTOMLParserHintForcesCandidate(t *testing.T) {
	p := NewTOMLParser()
	assert.True(t, p.CanParse("anything", "toml"))
}
