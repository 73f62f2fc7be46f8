package render

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

/*
Listing descriptions arrive either as Markdown or as an HTML fragment,
depending on the tool that produced the metadata document.

Normalization:
  - HTML input is converted to Markdown first
  - Markdown is rendered to HTML with raw HTML dropped, so the output is
    safe to embed
  - Text is the rendered HTML's text content with whitespace collapsed

Rendering is pure: the same description always yields the same output.
*/

var htmlTagPattern = regexp.MustCompile(`(?i)<(p|div|br|hr|ul|ol|li|h[1-6]|strong|em|b|i|a|img|span|table|blockquote|pre|code)\b[^>]*>`)

// Description renders raw. An empty description renders to the zero value.
func Description(raw string) (Rendered, *RenderError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Rendered{}, nil
	}

	md := trimmed
	if looksLikeHTML(trimmed) {
		converted, err := toMarkdown(trimmed)
		if err != nil {
			return Rendered{}, err
		}
		md = converted
	}

	htmlOut := toHTML(md)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlOut))
	if err != nil {
		return Rendered{}, &RenderError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseParseFailure,
		}
	}

	return Rendered{
		Markdown: md,
		HTML:     htmlOut,
		Text:     collapseWhitespace(doc.Text()),
		Links:    extractLinks(doc),
	}, nil
}

func looksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

func toMarkdown(fragment string) (string, *RenderError) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	md, err := conv.ConvertString(fragment)
	if err != nil {
		return "", &RenderError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseConversionFailure,
		}
	}
	return strings.TrimSpace(md), nil
}

// toHTML uses a fresh parser per call; gomarkdown parsers are single-use.
func toHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.HrefTargetBlank,
	})
	return strings.TrimSpace(string(markdown.ToHTML([]byte(md), p, renderer)))
}

// extractLinks returns anchors and images in document order.
func extractLinks(doc *goquery.Document) []Link {
	var links []Link
	doc.Find("a[href], img[src]").Each(func(i int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "a":
			if href, ok := s.Attr("href"); ok {
				links = append(links, toLink("a", href))
			}
		case "img":
			if src, ok := s.Attr("src"); ok {
				links = append(links, toLink("img", src))
			}
		}
	})
	return links
}

func toLink(tagName, raw string) Link {
	var kind LinkKind
	switch {
	case tagName == "img":
		kind = KindImage
	case strings.HasPrefix(raw, "#"):
		kind = KindAnchor
	default:
		kind = KindNavigation
	}
	return Link{Kind: kind, URL: raw}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
