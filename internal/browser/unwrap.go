package browser

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const xmlViewerSourceID = "webkit-xml-viewer-source-xml"

var cdataSection = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

// Unwrap recovers the raw sitemap from rendered page content. Chromium's
// XML viewer keeps the source inside a dedicated container, and some servers
// deliver XML as escaped text in a <pre> block of an HTML page. Anything
// else is returned unchanged.
func Unwrap(content string) string {
	if !strings.Contains(content, xmlViewerSourceID) && !looksLikeHTML(content) {
		return content
	}

	// The HTML parser turns CDATA into comments; keep the text as escaped data.
	markup := content
	if strings.Contains(markup, xmlViewerSourceID) {
		markup = cdataSection.ReplaceAllStringFunc(markup, func(m string) string {
			return html.EscapeString(cdataSection.FindStringSubmatch(m)[1])
		})
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return content
	}

	if viewer := doc.Find("#" + xmlViewerSourceID); viewer.Length() > 0 {
		if inner, err := viewer.First().Html(); err == nil && strings.TrimSpace(inner) != "" {
			return strings.TrimSpace(inner)
		}
	}

	if pre := doc.Find("body > pre").First(); pre.Length() > 0 {
		if text := strings.TrimSpace(pre.Text()); strings.HasPrefix(text, "<") {
			return text
		}
	}

	return content
}

func looksLikeHTML(content string) bool {
	head := strings.ToLower(strings.TrimSpace(content))
	if len(head) > 64 {
		head = head[:64]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}
