package parsers

import (
	"regexp"
	"strings"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

var codeDetectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*(def|class|function|const|let|var|import|from)\s`),
	regexp.MustCompile(`(?m)^\s*@\w+`),
	regexp.MustCompile(`=>\s*{`),
	regexp.MustCompile(`(?m)^\s*(public|private|protected)\s`),
}

var codeHintSet = map[string]bool{
	"code": true, "python": true, "py": true,
	"javascript": true, "js": true, "typescript": true, "ts": true,
}

// CodeParser classifies source language by keyword vote and extracts
// per-language structure via regex, matching original_source's heuristics
// (§4.1).
type CodeParser struct{}

func NewCodeParser() *CodeParser { return &CodeParser{} }

func (p *CodeParser) FormatName() models.Format { return models.FormatCode }

func (p *CodeParser) Priority() int { return 21 }

func (p *CodeParser) CanParse(raw any, hint string) bool {
	if codeHintSet[hint] {
		return true
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}
	for _, re := range codeDetectPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (p *CodeParser) Parse(raw any) interfaces.ParseResult {
	s, ok := raw.(string)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotString("Code")}
	}

	language := detectLanguage(s)

	var structure map[string]any
	switch language {
	case "python":
		structure = extractPythonStructure(s)
	case "javascript", "typescript":
		structure = extractJSStructure(s)
	default:
		structure = extractGenericStructure(s)
	}

	normalized := map[string]any{
		"content":      s,
		"content_type": "code",
		"language":     language,
		"structure":    structure,
	}

	meta := map[string]any{"language": language}
	for k, v := range structure {
		meta[k] = v
	}

	return interfaces.ParseResult{
		Success:      true,
		Normalized:   normalized,
		IsStructured: false,
		Metadata:     meta,
	}
}

var (
	pythonKeywords = []string{"def ", "class ", "import ", "from ", "elif ", "pass"}
	jsKeywords     = []string{"function ", "const ", "let ", "var ", "=>", "interface ", "type "}
)

func detectLanguage(code string) string {
	pythonScore := 0
	for _, kw := range pythonKeywords {
		if strings.Contains(code, kw) {
			pythonScore++
		}
	}
	jsScore := 0
	for _, kw := range jsKeywords {
		if strings.Contains(code, kw) {
			jsScore++
		}
	}

	if pythonScore > jsScore {
		return "python"
	}
	if jsScore > 0 {
		if strings.Contains(code, "interface ") || strings.Contains(code, ": ") {
			return "typescript"
		}
		return "javascript"
	}
	return "unknown"
}

var (
	pyFuncPattern    = regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*\((.*?)\)(?:\s*->\s*([^:]+))?:`)
	pyClassPattern   = regexp.MustCompile(`(?m)^\s*class\s+(\w+)(?:\(([^)]*)\))?:`)
	pyImportPattern  = regexp.MustCompile(`(?m)^\s*import\s+(.+)$`)
	pyFromPattern    = regexp.MustCompile(`(?m)^\s*from\s+(\S+)\s+import`)
	pyDecoratorRegex = regexp.MustCompile(`(?m)^\s*@(\w+(?:\.\w+)*)`)
)

func extractPythonStructure(code string) map[string]any {
	var functions []any
	for _, m := range pyFuncPattern.FindAllStringSubmatch(code, -1) {
		var returnType any
		if strings.TrimSpace(m[3]) != "" {
			returnType = strings.TrimSpace(m[3])
		}
		functions = append(functions, map[string]any{
			"name": m[1], "params": strings.TrimSpace(m[2]), "return_type": returnType,
		})
	}

	var classes []any
	for _, m := range pyClassPattern.FindAllStringSubmatch(code, -1) {
		var bases any
		if strings.TrimSpace(m[2]) != "" {
			bases = strings.TrimSpace(m[2])
		}
		classes = append(classes, map[string]any{"name": m[1], "bases": bases})
	}

	imports := newStringSet()
	for _, m := range pyImportPattern.FindAllStringSubmatch(code, -1) {
		for _, part := range strings.Split(m[1], ",") {
			imports.add(strings.TrimSpace(part))
		}
	}
	for _, m := range pyFromPattern.FindAllStringSubmatch(code, -1) {
		imports.add(m[1])
	}

	decorators := newStringSet()
	for _, m := range pyDecoratorRegex.FindAllStringSubmatch(code, -1) {
		decorators.add(m[1])
	}

	return map[string]any{
		"functions":  functions,
		"classes":    classes,
		"imports":    imports.slice(),
		"decorators": decorators.slice(),
	}
}

var (
	jsFuncPattern    = regexp.MustCompile(`function\s+(\w+)\s*\((.*?)\)`)
	jsArrowPattern   = regexp.MustCompile(`(?:const|let|var)\s+(\w+)\s*=\s*(?:\([^)]*\)|[^=])*\s*=>`)
	jsClassPattern   = regexp.MustCompile(`class\s+(\w+)(?:\s+extends\s+(\w+))?`)
	jsImportPattern  = regexp.MustCompile(`import\s+.*?from\s+["']([^"']+)["']`)
	jsRequirePattern = regexp.MustCompile(`require\(["']([^"']+)["']\)`)
	jsExportPattern  = regexp.MustCompile(`export\s+(?:const|let|var|function|class)\s+(\w+)`)
)

func extractJSStructure(code string) map[string]any {
	var functions []any
	for _, m := range jsFuncPattern.FindAllStringSubmatch(code, -1) {
		functions = append(functions, map[string]any{"name": m[1], "type": "function"})
	}
	for _, m := range jsArrowPattern.FindAllStringSubmatch(code, -1) {
		functions = append(functions, map[string]any{"name": m[1], "type": "arrow"})
	}

	var classes []any
	for _, m := range jsClassPattern.FindAllStringSubmatch(code, -1) {
		var extends any
		if m[2] != "" {
			extends = m[2]
		}
		classes = append(classes, map[string]any{"name": m[1], "extends": extends})
	}

	imports := newStringSet()
	for _, m := range jsImportPattern.FindAllStringSubmatch(code, -1) {
		imports.add(m[1])
	}
	for _, m := range jsRequirePattern.FindAllStringSubmatch(code, -1) {
		imports.add(m[1])
	}

	var exports []any
	for _, m := range jsExportPattern.FindAllStringSubmatch(code, -1) {
		exports = append(exports, m[1])
	}

	return map[string]any{
		"functions": functions,
		"classes":   classes,
		"imports":   imports.slice(),
		"exports":   exports,
	}
}

func extractGenericStructure(code string) map[string]any {
	lines := strings.Split(code, "\n")
	nonEmpty := 0
	comments := 0
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t != "" {
			nonEmpty++
		}
		if strings.HasPrefix(t, "#") || strings.HasPrefix(t, "//") ||
			strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "*") {
			comments++
		}
	}
	return map[string]any{
		"line_count":      len(lines),
		"non_empty_lines": nonEmpty,
		"comment_lines":   comments,
	}
}

type stringSet struct {
	m       map[string]bool
	ordered []string
}

func newStringSet() *stringSet {
	return &stringSet{m: make(map[string]bool)}
}

func (s *stringSet) add(v string) {
	if v == "" || s.m[v] {
		return
	}
	s.m[v] = true
	s.ordered = append(s.ordered, v)
}

func (s *stringSet) slice() []string {
	if s.ordered == nil {
		return []string{}
	}
	return s.ordered
}
