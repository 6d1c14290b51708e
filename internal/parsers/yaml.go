package parsers

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

var (
	yamlProsePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(the|a|an|we|they|this|that|these|those)\b`),
		regexp.MustCompile(`(?i)\b(discussed|decided|should|would|could|will)\b`),
	}
	yamlStructuralPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*[\w-]+:\s*\S`),
		regexp.MustCompile(`(?m)^\s*-\s+[\w-]+:`),
		regexp.MustCompile(`(?m)^\s*[\w-]+:\s*$`),
	}
)

// YAMLParser rejects prose-like input and requires a structural pattern
// before attempting a decode (§4.1).
type YAMLParser struct{}

func NewYAMLParser() *YAMLParser { return &YAMLParser{} }

func (p *YAMLParser) FormatName() models.Format { return models.FormatYAML }

func (p *YAMLParser) Priority() int { return 1 }

func (p *YAMLParser) CanParse(raw any, hint string) bool {
	if hint == "yaml" {
		return true
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}

	if strings.Count(s, ".") >= 2 {
		proseMatches := 0
		for _, re := range yamlProsePatterns {
			if re.MatchString(s) {
				proseMatches++
			}
		}
		if proseMatches >= 2 {
			return false
		}
	}

	hasPattern := false
	for _, re := range yamlStructuralPatterns {
		if re.MatchString(s) {
			hasPattern = true
			break
		}
	}
	if !hasPattern {
		return false
	}

	var obj map[string]any
	if err := yaml.Unmarshal([]byte(s), &obj); err != nil {
		return false
	}
	if obj == nil {
		return false
	}
	if len(obj) >= 2 {
		return true
	}
	if len(obj) == 1 {
		for _, v := range obj {
			switch v.(type) {
			case map[string]any, []any:
				return true
			}
		}
	}
	return false
}

func (p *YAMLParser) Parse(raw any) interfaces.ParseResult {
	s, ok := raw.(string)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotString("YAML")}
	}

	var obj any
	if err := yaml.Unmarshal([]byte(s), &obj); err != nil {
		return interfaces.ParseResult{Success: false, Error: err}
	}

	m, ok := normalizeYAMLMap(obj)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotObject("YAML")}
	}
	return interfaces.ParseResult{Success: true, Normalized: m, IsStructured: true}
}

// normalizeYAMLMap converts a yaml.v3-decoded value into map[string]any,
// coercing a top-level map[any]any into map[string]any as yaml.v3 may
// produce for non-string keys. Entries with non-string keys are dropped,
// and nested maps are left as decoded.
func normalizeYAMLMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}
