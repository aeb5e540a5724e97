package main

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxFilenameLen  = 120
	truncateNameLen = 100
)

// canonicalURL is the identity used for the processed set and cache keys:
// lowercase scheme and host, no fragment, dot-segments resolved, trailing
// slash dropped except at the root. The query is kept.
func canonicalURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)

	cleaned := path.Clean(c.Path)
	if cleaned == "." || cleaned == "" {
		cleaned = "/"
	}
	c.Path = cleaned

	return c.String()
}

// filenameForURL derives the deterministic output filename for a URL: path
// without the leading slash, slashes replaced by underscores. Overlong names
// are truncated and suffixed with a digest of the full path so that two long
// paths differing after the cut still map to different files.
func filenameForURL(u *url.URL) string {
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return "index.html"
	}

	name := strings.ReplaceAll(p, "/", "_")
	if len(name) > maxFilenameLen {
		name = name[:truncateNameLen] + "-" + shortDigest(u.Path)
	}
	return name + ".html"
}

// extractTitle returns the trimmed <title> text of a document, or "" when
// the document has none or cannot be parsed.
func extractTitle(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// extractLinks collects the same-origin hyperlinks of a document, resolved
// against base and canonicalized, in document order without repeats.
func extractLinks(html []byte, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || href == "#" {
			return
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "javascript:") ||
			strings.HasPrefix(lower, "mailto:") ||
			strings.HasPrefix(lower, "tel:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !strings.EqualFold(resolved.Hostname(), base.Hostname()) {
			return
		}

		link := canonicalURL(resolved)
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links
}
