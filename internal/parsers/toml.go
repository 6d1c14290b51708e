package parsers

import (
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

// TOMLParser decodes string input to a mapping (§4.1).
type TOMLParser struct{}

func NewTOMLParser() *TOMLParser { return &TOMLParser{} }

func (p *TOMLParser) FormatName() models.Format { return models.FormatTOML }

func (p *TOMLParser) Priority() int { return 2 }

func (p *TOMLParser) CanParse(raw any, hint string) bool {
	if hint == "toml" {
		return true
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}
	var obj map[string]any
	return toml.Unmarshal([]byte(s), &obj) == nil
}

func (p *TOMLParser) Parse(raw any) interfaces.ParseResult {
	s, ok := raw.(string)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotString("TOML")}
	}

	var obj map[string]any
	if err := toml.Unmarshal([]byte(s), &obj); err != nil {
		return interfaces.ParseResult{Success: false, Error: err}
	}
	return interfaces.ParseResult{Success: true, Normalized: obj, IsStructured: true}
}
