package parsers

import (
	"encoding/xml"
	"strings"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

// XMLParser converts an XML document into a nested map, collapsing
// single-text leaves to bare strings (§4.1).
type XMLParser struct{}

func NewXMLParser() *XMLParser { return &XMLParser{} }

func (p *XMLParser) FormatName() models.Format { return models.FormatXML }

func (p *XMLParser) Priority() int { return 10 }

func (p *XMLParser) CanParse(raw any, hint string) bool {
	if hint == "xml" {
		return true
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "<") || !strings.HasSuffix(trimmed, ">") {
		return false
	}
	var node xmlNode
	return xml.Unmarshal([]byte(s), &node) == nil
}

func (p *XMLParser) Parse(raw any) interfaces.ParseResult {
	s, ok := raw.(string)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotString("XML")}
	}

	var node xmlNode
	if err := xml.Unmarshal([]byte(s), &node); err != nil {
		return interfaces.ParseResult{Success: false, Error: err}
	}

	result := xmlToDict(&node)
	m, ok := result.(map[string]any)
	if !ok {
		// A root element that collapsed to a bare string or empty map still
		// needs a map[string]any normalized form; wrap it under its tag.
		m = map[string]any{node.XMLName.Local: result}
	}

	return interfaces.ParseResult{
		Success:      true,
		Normalized:   m,
		IsStructured: true,
		Metadata:     map[string]any{"root_tag": node.XMLName.Local},
	}
}

// xmlNode is a generic XML tree node used purely for attribute/text/child
// traversal; it does not constrain the schema of the input document.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

// xmlToDict mirrors original_source's _xml_to_dict: attributes go under
// "@attributes", text under "@text", repeated child tags collapse to a
// list, and a leaf with only text collapses to that text string.
func xmlToDict(n *xmlNode) any {
	result := make(map[string]any)

	if len(n.Attrs) > 0 {
		attrs := make(map[string]any, len(n.Attrs))
		for _, a := range n.Attrs {
			attrs[a.Name.Local] = a.Value
		}
		result["@attributes"] = attrs
	}

	text := strings.TrimSpace(n.Text)
	if text != "" {
		result["@text"] = text
	}

	for i := range n.Children {
		child := &n.Children[i]
		tag := child.XMLName.Local
		childData := xmlToDict(child)

		if existing, ok := result[tag]; ok {
			list, isList := existing.([]any)
			if !isList {
				list = []any{existing}
			}
			result[tag] = append(list, childData)
		} else {
			result[tag] = childData
		}
	}

	if len(result) == 0 && text != "" {
		return text
	}

	if len(result) == 1 {
		if v, ok := result["@text"]; ok {
			return v
		}
	}

	return result
}
