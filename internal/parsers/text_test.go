package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTextParserAlwaysCanParse(t *testing.T) {
	p := NewPlainTextParser()
	assert.True(t, p.CanParse("anything at all", ""))
	assert.True(t, p.CanParse(42, ""))
	assert.True(t, p.CanParse(nil, ""))
}

func TestPlainTextParserWrapsNonStringInput(t *testing.T) {
	p := NewPlainTextParser()
	result := p.Parse(42)
	require.True(t, result.Success)
	assert.False(t, result.IsStructured)
	assert.Equal(t, "42", result.Normalized["content"])
	assert.Equal(t, "text", result.Normalized["content_type"])
}

func TestPlainTextParserPreservesStringContent(t *testing.T) {
	p := NewPlainTextParser()
	result := p.Parse("hello world")
	require.True(t, result.Success)
	assert.Equal(t, "hello world", result.Normalized["content"])
}
