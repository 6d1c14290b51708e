package parsers

import (
	"encoding/json"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

// JSONParser accepts mappings or strings decoding to a mapping (§4.1).
type JSONParser struct{}

func NewJSONParser() *JSONParser { return &JSONParser{} }

func (p *JSONParser) FormatName() models.Format { return models.FormatJSON }

func (p *JSONParser) Priority() int { return 0 }

func (p *JSONParser) CanParse(raw any, hint string) bool {
	if hint == "json" {
		return true
	}
	if _, ok := raw.(map[string]any); ok {
		return true
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}
	var obj any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return false
	}
	_, isMap := obj.(map[string]any)
	return isMap
}

func (p *JSONParser) Parse(raw any) interfaces.ParseResult {
	if m, ok := raw.(map[string]any); ok {
		return interfaces.ParseResult{Success: true, Normalized: m, IsStructured: true}
	}

	s, ok := raw.(string)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotString("JSON")}
	}

	var obj any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return interfaces.ParseResult{Success: false, Error: err}
	}

	m, ok := obj.(map[string]any)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotObject("JSON")}
	}
	return interfaces.ParseResult{Success: true, Normalized: m, IsStructured: true}
}
