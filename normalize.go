package main

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// scrubRule is one step of the normalization pass. Rules are applied in
// order; later rules assume the noise removed by earlier ones is gone.
type scrubRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// The input is lowercased before the table runs, so the patterns only need
// to match lowercase text.
var scrubRules = []scrubRule{
	// Script and style blocks, including multi-line bodies.
	{regexp.MustCompile(`(?s)<script\b[^>]*>.*?</script>`), ""},
	{regexp.MustCompile(`(?s)<style\b[^>]*>.*?</style>`), ""},

	// HTML comments.
	{regexp.MustCompile(`(?s)<!--.*?-->`), ""},

	// Meta tags carry generators, descriptions and cache-busting tokens.
	{regexp.MustCompile(`<meta\b[^>]*>`), ""},

	// Presentation and framework attributes that change without the
	// content changing.
	{regexp.MustCompile(`\s+(?:data-[a-z0-9_-]*|id|class|style|aria-[a-z0-9_-]*|role)\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`), ""},

	// Timestamps: ISO-like, day-first, and bare times with fractions.
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[t ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:z|[+-]\d{2}:?\d{2})?`), ""},
	// The time component is required: a bare NN-NN-NNNN token could just
	// as well be a phone fragment or an issue range.
	{regexp.MustCompile(`\d{2}-\d{2}-\d{4}[t ]\d{2}:\d{2}:\d{2}(?:\.\d+)?`), ""},
	{regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d+z?`), ""},

	// Semantic version tokens.
	{regexp.MustCompile(`\bv\d+\.\d+(?:\.\d+)?\b`), ""},

	// Query strings on URLs; session ids and cache busters live there.
	{regexp.MustCompile(`(https?://[^\s"'<>?#]+)\?[^\s"'<>]*`), "${1}"},

	// GitBook dynamic markers.
	{regexp.MustCompile(`\s*updated-at\s*=\s*(?:"[^"]*"|'[^']*')`), ""},
	{regexp.MustCompile(`\s*gitbook-[a-z0-9_-]*\s*=\s*(?:"[^"]*"|'[^']*')`), ""},

	// data-* attributes whose value is a JSON literal.
	{regexp.MustCompile(`\s*data-[a-z0-9_-]*\s*=\s*(?:"[\[{][^"]*"|'[\[{][^']*')`), ""},

	// UUIDs and bare 32-char hex strings.
	{regexp.MustCompile(`\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`), ""},
	{regexp.MustCompile(`\b[0-9a-f]{32}\b`), ""},

	// The html and body tags collect theme/session attributes not caught
	// above; strip them wholesale.
	{regexp.MustCompile(`<html\b[^>]*>`), "<html>"},
	{regexp.MustCompile(`<body\b[^>]*>`), "<body>"},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeHTML reduces a document to its comparison form: lowercased,
// stripped of volatile substructure, whitespace collapsed. Malformed HTML is
// fine; unmatched patterns are a no-op and unbalanced tags stay as text.
func normalizeHTML(text string) string {
	text = strings.ToLower(text)
	for _, rule := range scrubRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// fingerprint returns the hex digest of the normalized form of a document.
// Two documents that normalize identically always share a fingerprint; this
// is the equivalence relation the cache's md5 field records.
func fingerprint(text string) string {
	sum := md5.Sum([]byte(normalizeHTML(text)))
	return hex.EncodeToString(sum[:])
}

// shortDigest hashes an arbitrary string down to a compact hex token, used
// to disambiguate truncated filenames.
func shortDigest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
