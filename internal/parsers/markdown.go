package parsers

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

var markdownDetectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}\s`),
	regexp.MustCompile(`(?m)^\*\*[^*]+\*\*`),
	regexp.MustCompile(`(?m)^\*[^*]+\*`),
	regexp.MustCompile(`(?m)^\[.+\]\(.+\)`),
	regexp.MustCompile("(?m)^```"),
	regexp.MustCompile(`(?m)^-\s`),
	regexp.MustCompile(`(?m)^\d+\.\s`),
}

// MarkdownParser extracts headings, links, code blocks and list counts via
// a goldmark AST walk, the idiomatic Go replacement for the original's
// regex-based structure extraction (§4.1, SPEC_FULL.md B).
type MarkdownParser struct {
	md goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{md: goldmark.New()}
}

func (p *MarkdownParser) FormatName() models.Format { return models.FormatMarkdown }

func (p *MarkdownParser) Priority() int { return 20 }

func (p *MarkdownParser) CanParse(raw any, hint string) bool {
	if hint == "markdown" || hint == "md" {
		return true
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}
	for _, re := range markdownDetectPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

type mdHeading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type mdLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type mdCodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (p *MarkdownParser) Parse(raw any) interfaces.ParseResult {
	s, ok := raw.(string)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotString("Markdown")}
	}

	src := []byte(s)
	doc := p.md.Parser().Parse(text.NewReader(src))

	var headings []mdHeading
	var links []mdLink
	var codeBlocks []mdCodeBlock
	unordered, ordered := 0, 0

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			headings = append(headings, mdHeading{Level: node.Level, Text: string(node.Text(src))})
		case *ast.Link:
			links = append(links, mdLink{Text: string(node.Text(src)), URL: string(node.Destination)})
		case *ast.FencedCodeBlock:
			lang := string(node.Language(src))
			if lang == "" {
				lang = "text"
			}
			var code strings.Builder
			for i := 0; i < node.Lines().Len(); i++ {
				line := node.Lines().At(i)
				code.Write(line.Value(src))
			}
			codeBlocks = append(codeBlocks, mdCodeBlock{Language: lang, Code: strings.TrimSuffix(code.String(), "\n")})
		case *ast.List:
			count := countListItems(node)
			if node.IsOrdered() {
				ordered += count
			} else {
				unordered += count
			}
		}
		return ast.WalkContinue, nil
	})

	structure := map[string]any{
		"headings":    headingsToAny(headings),
		"links":       linksToAny(links),
		"code_blocks": codeBlocksToAny(codeBlocks),
		"lists": map[string]any{
			"unordered_items": unordered,
			"ordered_items":   ordered,
		},
	}

	meta := extractMarkdownMetadata(s, headings, links, codeBlocks)

	normalized := map[string]any{
		"content":      s,
		"content_type": "markdown",
		"structure":    structure,
	}
	for k, v := range meta {
		normalized[k] = v
	}

	return interfaces.ParseResult{
		Success:      true,
		Normalized:   normalized,
		IsStructured: false,
		Metadata:     structure,
	}
}

func countListItems(list *ast.List) int {
	count := 0
	for c := list.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.ListItem); ok {
			count++
		}
	}
	return count
}

func headingsToAny(hs []mdHeading) []any {
	out := make([]any, len(hs))
	for i, h := range hs {
		out[i] = map[string]any{"level": h.Level, "text": h.Text}
	}
	return out
}

func linksToAny(ls []mdLink) []any {
	out := make([]any, len(ls))
	for i, l := range ls {
		out[i] = map[string]any{"text": l.Text, "url": l.URL}
	}
	return out
}

func codeBlocksToAny(cs []mdCodeBlock) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = map[string]any{"language": c.Language, "code": c.Code}
	}
	return out
}

var mdParagraphSplit = regexp.MustCompile(`\n\n+`)

// extractMarkdownMetadata mirrors original_source's _extract_metadata:
// title is the first heading's text or the first line truncated to 100
// chars; summary is the first non-heading paragraph truncated to 200.
func extractMarkdownMetadata(markdown string, headings []mdHeading, links []mdLink, codeBlocks []mdCodeBlock) map[string]any {
	meta := map[string]any{}

	if len(headings) > 0 {
		meta["title"] = headings[0].Text
	} else {
		firstLine := markdown
		if idx := strings.IndexByte(markdown, '\n'); idx >= 0 {
			firstLine = markdown[:idx]
		}
		meta["title"] = truncateRunes(firstLine, 100)
	}

	paragraphs := make([]string, 0)
	for _, p := range mdParagraphSplit.Split(markdown, -1) {
		t := strings.TrimSpace(p)
		if t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	if len(paragraphs) > 0 {
		startIdx := 0
		if strings.HasPrefix(paragraphs[0], "#") {
			startIdx = 1
		}
		if startIdx < len(paragraphs) {
			meta["summary"] = truncateRunes(paragraphs[startIdx], 200)
		}
	}

	meta["heading_count"] = len(headings)
	meta["link_count"] = len(links)
	meta["code_block_count"] = len(codeBlocks)

	return meta
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
