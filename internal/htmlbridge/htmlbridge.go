// Package htmlbridge sniffs and converts HTML input into Markdown before
// it reaches the format parser set, an ingestion path the format list
// implies ("arbitrary document formats") but never names (SPEC_FULL.md
// §B/§C). Grounded on the teacher's internal/services/transform/service.go
// (html-to-markdown) and internal/services/crawler/helpers.go (goquery).
package htmlbridge

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Convert attempts to convert raw into a markdown-ready string if it is
// either hinted as HTML or sniffs as a genuine HTML document (has a root
// html/body structure, as opposed to merely XML-like markup). The second
// return value reports whether the bridge fired; callers should pass
// through the original input with hint "" otherwise.
func Convert(raw any, hint string) (converted string, ok bool) {
	s, isString := raw.(string)
	if !isString {
		return "", false
	}

	if hint != "html" && !looksLikeHTML(s) {
		return "", false
	}

	out, err := md.NewConverter("", true, nil).ConvertString(s)
	if err != nil || strings.TrimSpace(out) == "" {
		return "", false
	}
	return out, true
}

// looksLikeHTML sniffs for a genuine HTML document rather than bare XML:
// it requires goquery to find an <html> or <body> element, which a plain
// XML payload parsed as HTML will not produce.
func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	if !strings.Contains(lower, "<html") && !strings.Contains(lower, "<!doctype html") && !strings.Contains(lower, "<body") {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return false
	}
	return doc.Find("html").Length() > 0 || doc.Find("body").Length() > 0
}
