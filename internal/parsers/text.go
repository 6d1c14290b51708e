package parsers

import (
	"fmt"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

// PlainTextParser is the guaranteed terminal parser: it always succeeds
// (§4.1).
type PlainTextParser struct{}

func NewPlainTextParser() *PlainTextParser { return &PlainTextParser{} }

func (p *PlainTextParser) FormatName() models.Format { return models.FormatText }

func (p *PlainTextParser) Priority() int { return 100 }

func (p *PlainTextParser) CanParse(raw any, hint string) bool {
	return true
}

func (p *PlainTextParser) Parse(raw any) interfaces.ParseResult {
	text, ok := raw.(string)
	if !ok {
		text = fmt.Sprintf("%v", raw)
	}

	return interfaces.ParseResult{
		Success: true,
		Normalized: map[string]any{
			"content":      text,
			"content_type": "text",
		},
		IsStructured: false,
	}
}
