package scraper

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findAll returns every element node accepted by match in document order
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if found := findAll(root, match); len(found) > 0 {
		return found[0]
	}
	return nil
}

// textContent returns the visible text below n with whitespace collapsed
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteString(" ")
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseWhitespace(b.String())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveURL resolves href against base and keeps only http(s) URLs
// without their fragment.
func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// pageTitle prefers the first h1 and falls back to the document title
func pageTitle(doc *html.Node) string {
	if h1 := findFirst(doc, func(n *html.Node) bool { return n.Data == "h1" }); h1 != nil {
		if title := textContent(h1); title != "" {
			return title
		}
	}
	if title := findFirst(doc, func(n *html.Node) bool { return n.Data == "title" }); title != nil {
		return textContent(title)
	}
	return ""
}

var publishedLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// publishedAt reads the article:published_time meta tag or the first
// <time datetime> element.
func publishedAt(doc *html.Node) *time.Time {
	var candidates []string
	if meta := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "meta" && attr(n, "property") == "article:published_time"
	}); meta != nil {
		candidates = append(candidates, attr(meta, "content"))
	}
	if t := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "time" && attr(n, "datetime") != ""
	}); t != nil {
		candidates = append(candidates, attr(t, "datetime"))
	}

	for _, value := range candidates {
		for _, layout := range publishedLayouts {
			if parsed, err := time.Parse(layout, value); err == nil {
				parsed = parsed.UTC()
				return &parsed
			}
		}
	}
	return nil
}
