package parsers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/htmlbridge"
	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

// Normalizer is C2: it dispatches to the parser registry and then derives
// the embedding text that is fed to C3 (§4.2).
type Normalizer struct {
	registry *Registry
}

func NewNormalizer() *Normalizer {
	return &Normalizer{registry: NewRegistry()}
}

// NormalizeResult is the outcome of normalizing one published item.
type NormalizeResult struct {
	Format        models.Format
	Normalized    map[string]any
	IsStructured  bool
	EmbeddingText string
	FieldPaths    []string // supplemented, not embedding-text-authoritative; see SPEC_FULL.md §C.4
}

// Normalize runs the HTML bridge (if applicable), the C1 dispatch rule,
// and the C2 embedding-text rule over raw input for the given data_key.
func (n *Normalizer) Normalize(dataKey string, raw any, hint string) NormalizeResult {
	if converted, ok := htmlbridge.Convert(raw, hint); ok {
		raw = converted
		hint = "markdown"
	}

	result, parser := n.registry.Dispatch(raw, hint)

	var fieldPaths []string
	if result.IsStructured {
		fieldPaths = FieldPaths(result.Normalized)
	}

	return NormalizeResult{
		Format:        parser.FormatName(),
		Normalized:    result.Normalized,
		IsStructured:  result.IsStructured,
		EmbeddingText: GenerateEmbeddingText(dataKey, result.Normalized, result.IsStructured),
		FieldPaths:    fieldPaths,
	}
}

var reservedStructuredKeys = map[string]bool{
	"content_type": true,
	"structure":    true,
	"schema":       true,
}

// GenerateEmbeddingText implements the §4.2 rule. Go maps have no stable
// iteration order (unlike the Python source's insertion-ordered dicts), so
// keys are rendered in sorted order: this keeps the function pure in
// (data_key, normalized_form) per invariant 5, at the cost of byte parity
// with the original's key ordering.
func GenerateEmbeddingText(dataKey string, normalized map[string]any, isStructured bool) string {
	if isStructured {
		return generateStructuredEmbeddingText(dataKey, normalized)
	}
	return generateUnstructuredEmbeddingText(dataKey, normalized)
}

func generateStructuredEmbeddingText(dataKey string, normalized map[string]any) string {
	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		if strings.HasPrefix(k, "_") || reservedStructuredKeys[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+renderEmbeddingValue(normalized[k]))
	}
	content := truncateWithEllipsis(strings.Join(parts, " | "), common.EmbeddingTextMaxLen)

	cleanKey := cleanKeyOf(dataKey)
	if cleanKey != "" && cleanKey != dataKey {
		return fmt.Sprintf("%s (%s)", content, cleanKey)
	}
	return fmt.Sprintf("%s: %s", dataKey, content)
}

func generateUnstructuredEmbeddingText(dataKey string, normalized map[string]any) string {
	content, _ := normalized["content"].(string)
	content = truncateWithEllipsis(content, common.EmbeddingTextMaxLen)
	return fmt.Sprintf("%s: %s", dataKey, content)
}

func renderEmbeddingValue(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truncateWithEllipsis(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// cleanKeyOf derives the last path segment of data_key after splitting on
// '[' then '.', matching original_source's data_normalizer.py.
func cleanKeyOf(dataKey string) string {
	if !strings.ContainsAny(dataKey, "[.") {
		return dataKey
	}
	before := strings.SplitN(dataKey, "[", 2)[0]
	segs := strings.Split(before, ".")
	return segs[len(segs)-1]
}

// FieldPaths flattens a structured item's keys into dotted/indexed paths
// (not used by the embedding-text rule). The result is returned on
// NormalizeResult only; it is not stored on DataItem or listed by
// GET /projects/{id}/data.
func FieldPaths(data map[string]any) []string {
	return fieldPaths(data, "", 5)
}

func fieldPaths(data map[string]any, prefix string, maxDepth int) []string {
	if maxDepth <= 0 {
		return nil
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		if strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []string
	for _, k := range keys {
		fieldPath := k
		if prefix != "" {
			fieldPath = prefix + "." + k
		}
		switch val := data[k].(type) {
		case map[string]any:
			if len(val) > 0 {
				fields = append(fields, fieldPaths(val, fieldPath, maxDepth-1)...)
			} else {
				fields = append(fields, fieldPath)
			}
		case []any:
			if len(val) > 0 {
				if _, isMap := val[0].(map[string]any); isMap {
					fields = append(fields, fieldPath+"[]")
				} else {
					fields = append(fields, fieldPath)
				}
			} else {
				fields = append(fields, fieldPath)
			}
		default:
			fields = append(fields, fieldPath)
		}
	}
	return fields
}

// ensure FormatParser implementations satisfy interfaces.FormatParser.
var (
	_ interfaces.FormatParser = (*JSONParser)(nil)
	_ interfaces.FormatParser = (*YAMLParser)(nil)
	_ interfaces.FormatParser = (*TOMLParser)(nil)
	_ interfaces.FormatParser = (*XMLParser)(nil)
	_ interfaces.FormatParser = (*CSVParser)(nil)
	_ interfaces.FormatParser = (*MarkdownParser)(nil)
	_ interfaces.FormatParser = (*CodeParser)(nil)
	_ interfaces.FormatParser = (*PlainTextParser)(nil)
)
