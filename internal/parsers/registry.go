package parsers

import (
	"sort"

	"github.com/ternarybob/contex/internal/interfaces"
)

// Registry holds the fixed, priority-ordered set of format parsers and
// implements the C2 dispatch rule (§4.1): iterate in priority order, try
// the first whose CanParse returns true, fall through to the next
// candidate on parse failure, with PlainText as the guaranteed terminal.
type Registry struct {
	parsers []interfaces.FormatParser
}

// NewRegistry builds the standard parser set in priority order.
func NewRegistry() *Registry {
	parsers := []interfaces.FormatParser{
		NewJSONParser(),
		NewYAMLParser(),
		NewTOMLParser(),
		NewXMLParser(),
		NewCSVParser(),
		NewMarkdownParser(),
		NewCodeParser(),
		NewPlainTextParser(),
	}
	sort.Slice(parsers, func(i, j int) bool { return parsers[i].Priority() < parsers[j].Priority() })
	return &Registry{parsers: parsers}
}

// Dispatch runs the priority-ordered can_parse/parse contract and returns
// the first successful result. PlainText always succeeds, so a non-nil
// result is always returned.
func (r *Registry) Dispatch(raw any, hint string) (interfaces.ParseResult, interfaces.FormatParser) {
	for _, p := range r.parsers {
		if !p.CanParse(raw, hint) {
			continue
		}
		result := p.Parse(raw)
		if result.Success {
			return result, p
		}
	}
	// Unreachable: PlainTextParser.CanParse always returns true and its
	// Parse never fails.
	pt := NewPlainTextParser()
	return pt.Parse(raw), pt
}
