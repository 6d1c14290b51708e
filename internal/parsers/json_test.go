package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONParserAcceptsMapLiteral(t *testing.T) {
	p := NewJSONParser()
	raw := map[string]any{"a": 1}
	assert.True(t, p.CanParse(raw, ""))
	result := p.Parse(raw)
	require.True(t, result.Success)
	assert.Equal(t, raw, result.Normalized)
}

func TestJSONParserAcceptsObjectString(t *testing.T) {
	p := NewJSONParser()
	raw := `{"name": "widget", "count": 2}`
	require.True(t, p.CanParse(raw, ""))
	result := p.Parse(raw)
	require.True(t, result.Success)
	assert.Equal(t, "widget", result.Normalized["name"])
}

func TestJSONParserRejectsArrayTopLevel(t *testing.T) {
	p := NewJSONParser()
	assert.False(t, p.CanParse(`[1, 2, 3]`, ""))
}

func TestJSONParserRejectsMalformed(t *testing.T) {
	p := NewJSONParser()
	assert.False(t, p.CanParse(`{not json`, ""))
}

func TestJSONParserHintForcesCandidate(t *testing.T) {
	p := NewJSONParser()
	assert.True(t, p.CanParse("anything", "json"))
}
