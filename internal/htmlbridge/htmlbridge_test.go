package htmlbridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertRecognizesGenuineHTMLDocument(t *testing.T) {
	raw := "<html><body><h1>Title</h1><p>Some text</p></body></html>"
	out, ok := Convert(raw, "")
	require.True(t, ok)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Some text")
}

func TestConvertRejectsPlainXML(t *testing.T) {
	raw := "<root><item>1</item></root>"
	_, ok := Convert(raw, "")
	assert.False(t, ok)
}

func TestConvertRejectsNonString(t *testing.T) {
	_, ok := Convert(42, "")
	assert.False(t, ok)
}

func TestConvertHintForcesAttempt(t *testing.T) {
	raw := "<html><body><p>hi</p></body></html>"
	out, ok := Convert(raw, "html")
	require.True(t, ok)
	assert.True(t, strings.Contains(out, "hi"))
}

func TestConvertRejectsPlainText(t *testing.T) {
	_, ok := Convert("just a sentence", "")
	assert.False(t, ok)
}
